package mise_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/pkg/adapters/memory"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/observability"
	"github.com/aretw0/mise/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func eggs() domain.Recipe {
	return domain.Recipe{
		ID:         "eggs",
		Title:      "Soft Boiled Eggs",
		Difficulty: domain.DifficultyEasy,
		Steps: []domain.Step{
			{Description: "Boil water", DurationMinutes: 2, Kind: domain.StepCooking},
			{Description: "Cook eggs", DurationMinutes: 3, Kind: domain.StepCooking},
		},
	}
}

func newKitchen(t *testing.T, opts ...mise.Option) (*mise.Kitchen, *runner.ManualClock) {
	t.Helper()
	clock := runner.NewManualClock(epoch)
	store := memory.NewStore(
		eggs(),
		domain.Recipe{ID: "empty", Title: "Nothing"},
		domain.Recipe{
			ID:         "stew",
			Title:      "Stew",
			Difficulty: domain.DifficultyHard,
			Steps:      []domain.Step{{Description: "Simmer", DurationMinutes: 90, Kind: domain.StepCooking}},
		},
	)
	k := mise.New(store, append([]mise.Option{mise.WithClock(clock)}, opts...)...)
	t.Cleanup(k.Close)
	return k, clock
}

func TestKitchen_StartErrors(t *testing.T) {
	k, _ := newKitchen(t)
	ctx := context.Background()

	_, err := k.Start(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	_, err = k.Start(ctx, "empty")
	assert.ErrorIs(t, err, domain.ErrNoSteps)

	assert.Empty(t, k.Sessions())
}

func TestKitchen_CooksThroughRecipe(t *testing.T) {
	k, clock := newKitchen(t)
	ctx := context.Background()

	s, err := k.Start(ctx, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 120, s.StepRemainingSec)
	assert.Equal(t, 300, s.OverallRemainingSec)

	clock.Advance(130 * time.Second)
	require.Eventually(t, func() bool {
		s, _ := k.Session("eggs")
		return s.CurrentStepIndex == 1
	}, time.Second, 5*time.Millisecond)

	s, _ = k.Session("eggs")
	assert.Equal(t, 180, s.StepRemainingSec)
	assert.Equal(t, 170, s.OverallRemainingSec)

	clock.Advance(180 * time.Second)
	require.Eventually(t, func() bool {
		_, ok := k.Session("eggs")
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, ok := k.Active()
	assert.False(t, ok)
}

func TestKitchen_StartTwiceFocusesWithoutReset(t *testing.T) {
	k, _ := newKitchen(t)
	ctx := context.Background()

	_, err := k.Start(ctx, "eggs")
	require.NoError(t, err)
	_, err = k.SkipStep("eggs")
	require.NoError(t, err)
	_, err = k.Start(ctx, "stew")
	require.NoError(t, err)

	s, err := k.Start(ctx, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 0, s.StepRemainingSec, "existing session is kept")
	assert.False(t, s.IsRunning, "focus does not resume")

	active, _ := k.Active()
	assert.Equal(t, "eggs", active.RecipeID)

	stew, _ := k.Session("stew")
	assert.False(t, stew.IsRunning)
}

func TestKitchen_PauseResumeToggle(t *testing.T) {
	k, clock := newKitchen(t)
	ctx := context.Background()

	_, err := k.Start(ctx, "eggs")
	require.NoError(t, err)

	s, err := k.Pause("eggs")
	require.NoError(t, err)
	assert.False(t, s.IsRunning)

	clock.Advance(time.Minute)
	s, _ = k.Session("eggs")
	assert.Equal(t, 120, s.StepRemainingSec, "paused sessions do not tick")

	s, err = k.Toggle("eggs")
	require.NoError(t, err)
	assert.True(t, s.IsRunning)
	assert.Equal(t, clock.Now(), s.LastTick)

	s, err = k.Toggle("eggs")
	require.NoError(t, err)
	assert.False(t, s.IsRunning)

	s, err = k.Resume("eggs")
	require.NoError(t, err)
	assert.True(t, s.IsRunning)

	_, err = k.Pause("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = k.Resume("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = k.SkipStep("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = k.Focus("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, k.EndSession("missing"), domain.ErrSessionNotFound)
}

func TestKitchen_SkipAdvancesOnNextFiring(t *testing.T) {
	k, clock := newKitchen(t)
	ctx := context.Background()

	_, err := k.Start(ctx, "eggs")
	require.NoError(t, err)
	_, err = k.SkipStep("eggs")
	require.NoError(t, err)

	clock.Advance(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		s, _ := k.Session("eggs")
		return s.CurrentStepIndex == 1
	}, time.Second, 5*time.Millisecond)

	s, _ := k.Session("eggs")
	assert.Equal(t, 180, s.StepRemainingSec)
	assert.Equal(t, 180, s.OverallRemainingSec)
}

func TestKitchen_End(t *testing.T) {
	k, _ := newKitchen(t)
	ctx := context.Background()

	assert.False(t, k.End())

	_, err := k.Start(ctx, "eggs")
	require.NoError(t, err)
	assert.True(t, k.End())
	assert.False(t, k.End())
	assert.Empty(t, k.Sessions())
}

func TestKitchen_RecipeEditing(t *testing.T) {
	k, _ := newKitchen(t)
	ctx := context.Background()

	created, err := k.SaveRecipe(ctx, domain.Recipe{Title: "Tea", Steps: []domain.Step{{DurationMinutes: 3}}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, epoch, created.CreatedAt)

	_, err = k.Start(ctx, "eggs")
	require.NoError(t, err)

	_, err = k.SaveRecipe(ctx, eggs())
	assert.ErrorIs(t, err, domain.ErrRecipeInUse)

	fav, err := k.ToggleFavorite(ctx, "eggs")
	require.NoError(t, err)
	assert.True(t, fav.Favorite)

	var reasons []domain.EndReason
	k.Subscribe(func(e domain.SessionEvent) {
		if e.Type == domain.EventEnded {
			reasons = append(reasons, e.Reason)
		}
	})

	require.NoError(t, k.DeleteRecipe(ctx, "eggs"))
	_, ok := k.Session("eggs")
	assert.False(t, ok)
	assert.Equal(t, []domain.EndReason{domain.EndRemoved}, reasons)

	assert.ErrorIs(t, k.DeleteRecipe(ctx, "eggs"), domain.ErrRecipeNotFound)
}

// gateStore holds every Save until release is closed.
type gateStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gateStore) Save(ctx context.Context, r domain.Recipe) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.Save(ctx, r)
}

func TestKitchen_StartWaitsForRecipeEdit(t *testing.T) {
	store := &gateStore{
		Store:   memory.NewStore(eggs()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	k := mise.New(store, mise.WithClock(runner.NewManualClock(epoch)))
	t.Cleanup(k.Close)
	ctx := context.Background()

	edit := eggs()
	edit.Steps = edit.Steps[:1]
	saved := make(chan error, 1)
	go func() {
		_, err := k.SaveRecipe(ctx, edit)
		saved <- err
	}()
	<-store.entered

	started := make(chan error, 1)
	go func() {
		_, err := k.Start(ctx, "eggs")
		started <- err
	}()

	select {
	case err := <-started:
		t.Fatalf("Start returned while the edit was being written: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-saved)
	require.NoError(t, <-started)

	s, ok := k.Session("eggs")
	require.True(t, ok)
	assert.Equal(t, 1, s.StepCount, "session is built from the edited recipe")
	assert.Equal(t, 120, s.OverallRemainingSec)

	_, err := k.SaveRecipe(ctx, eggs())
	assert.ErrorIs(t, err, domain.ErrRecipeInUse)
}

func TestKitchen_ImportRecipes(t *testing.T) {
	k, _ := newKitchen(t)
	ctx := context.Background()

	n, err := k.ImportRecipes(ctx, []domain.Recipe{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = k.Start(ctx, "eggs")
	require.NoError(t, err)

	n, err = k.ImportRecipes(ctx, []domain.Recipe{{ID: "c"}, eggs(), {ID: "d"}})
	assert.ErrorIs(t, err, domain.ErrRecipeInUse)
	assert.Equal(t, 1, n)
}

func TestKitchen_ListRecipes(t *testing.T) {
	k, _ := newKitchen(t)

	list, err := k.ListRecipes(context.Background(), catalog.Query{Sort: catalog.SortDesc})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "stew", list[0].ID)

	list, err = k.ListRecipes(context.Background(), catalog.Query{Difficulty: domain.DifficultyEasy})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "eggs", list[0].ID)
}

func TestKitchen_Projections(t *testing.T) {
	k, clock := newKitchen(t)
	ctx := context.Background()

	p, err := k.Progress(ctx, "eggs")
	require.NoError(t, err)
	assert.False(t, p.Started())
	assert.Equal(t, "02:00", p.StepRemaining)

	_, ok, err := k.MiniPlayer(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = k.Start(ctx, "eggs")
	require.NoError(t, err)
	clock.Advance(60 * time.Second)
	require.Eventually(t, func() bool {
		s, _ := k.Session("eggs")
		return s.StepRemainingSec == 60
	}, time.Second, 5*time.Millisecond)

	p, err = k.Progress(ctx, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 50, p.StepPercent)
	assert.Equal(t, 20, p.OverallPercent)

	mini, ok, err := k.MiniPlayer(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Step 1 · 01:00 · Running", mini.Label)

	_, err = k.Progress(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestKitchen_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	k, _ := newKitchen(t, mise.WithMetrics(metrics))

	_, err := k.Start(context.Background(), "eggs")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Active))

	k.End()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Active))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ended.WithLabelValues(string(domain.EndCancelled))))
}

func TestKitchen_CloseStopsTicking(t *testing.T) {
	k, clock := newKitchen(t)

	_, err := k.Start(context.Background(), "eggs")
	require.NoError(t, err)
	k.Close()

	clock.Advance(time.Minute)
	s, ok := k.Session("eggs")
	require.True(t, ok)
	assert.Equal(t, 120, s.StepRemainingSec)
}
