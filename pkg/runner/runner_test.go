package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/runner"
	"github.com/aretw0/mise/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(0)

type recipeMap map[string]domain.Recipe

func (m recipeMap) Get(_ context.Context, id string) (domain.Recipe, error) {
	r, ok := m[id]
	if !ok {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	return r, nil
}

type mockRecipes struct {
	mock.Mock
}

func (m *mockRecipes) Get(ctx context.Context, id string) (domain.Recipe, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Recipe), args.Error(1)
}

func eggs() domain.Recipe {
	return domain.Recipe{
		ID: "eggs",
		Steps: []domain.Step{
			{Description: "Boil water", DurationMinutes: 2, Kind: domain.StepCooking},
			{Description: "Cook eggs", DurationMinutes: 3, Kind: domain.StepCooking},
		},
	}
}

func pasta() domain.Recipe {
	return domain.Recipe{
		ID: "pasta",
		Steps: []domain.Step{
			{Description: "Cook pasta", DurationMinutes: 10, Kind: domain.StepCooking},
		},
	}
}

func setup(t *testing.T, recipes runner.RecipeGetter) (*session.Machine, *runner.Runner, *runner.ManualClock) {
	t.Helper()
	clock := runner.NewManualClock(epoch)
	m := session.NewMachine()
	r := runner.New(m, recipes, runner.WithClock(clock))
	unwatch := r.Watch()
	t.Cleanup(func() {
		unwatch()
		r.Close()
	})
	return m, r, clock
}

func TestRunner_Scenario(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs()})

	require.True(t, m.Start(eggs(), clock.Now()))
	require.True(t, r.Ticking())

	clock.Set(epoch.Add(130 * time.Second))
	require.True(t, r.Fire())

	s, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.Equal(t, 180, s.StepRemainingSec)
	assert.Equal(t, 170, s.OverallRemainingSec)
	assert.True(t, s.IsRunning)

	clock.Set(epoch.Add(310 * time.Second))
	require.True(t, r.Fire())

	_, ok = m.Get("eggs")
	assert.False(t, ok, "session ends after the last step")
	_, ok = m.ActiveID()
	assert.False(t, ok)
	assert.False(t, r.Ticking())
	assert.False(t, r.Fire())
}

func TestRunner_AdvancesOncePerCompletion(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs()})

	var advanced int
	m.Subscribe(func(e domain.SessionEvent) {
		if e.Type == domain.EventAdvanced {
			advanced++
		}
	})

	require.True(t, m.Start(eggs(), clock.Now()))
	clock.Set(epoch.Add(125 * time.Second))

	for range 5 {
		r.Fire()
	}

	assert.Equal(t, 1, advanced)
	s, _ := m.Active()
	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.Equal(t, 180, s.StepRemainingSec)
}

func TestRunner_SkipIsObservedOnNextFiring(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs()})

	require.True(t, m.Start(eggs(), clock.Now()))
	require.True(t, m.ForceEndStep("eggs"))

	s, _ := m.Active()
	assert.Equal(t, 0, s.CurrentStepIndex)

	clock.Set(epoch.Add(500 * time.Millisecond))
	require.True(t, r.Fire())

	s, _ = m.Active()
	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.Equal(t, 180, s.StepRemainingSec)
	assert.Equal(t, epoch.Add(500*time.Millisecond), s.LastTick)
}

func TestRunner_PauseStopsTicking(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs()})

	require.True(t, m.Start(eggs(), clock.Now()))
	require.True(t, m.Pause("eggs"))
	assert.False(t, r.Ticking())
	assert.False(t, r.Fire())

	clock.Advance(30 * time.Second)
	require.True(t, m.Resume("eggs", clock.Now()))
	assert.True(t, r.Ticking())

	clock.Set(clock.Now().Add(5 * time.Second))
	require.True(t, r.Fire())

	s, _ := m.Get("eggs")
	assert.Equal(t, 115, s.StepRemainingSec)
}

func TestRunner_SingleTickerAcrossReconciles(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs(), "pasta": pasta()})

	require.True(t, m.Start(eggs(), clock.Now()))
	for range 3 {
		m.Pause("eggs")
		m.Resume("eggs", clock.Now())
	}
	require.True(t, r.Ticking())

	assert.Eventually(t, func() bool { return clock.Tickers() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestRunner_RetargetsOnNewActiveRecipe(t *testing.T) {
	m, r, clock := setup(t, recipeMap{"eggs": eggs(), "pasta": pasta()})

	require.True(t, m.Start(eggs(), clock.Now()))
	require.True(t, m.Start(pasta(), clock.Now()))

	clock.Set(epoch.Add(10 * time.Second))
	require.True(t, r.Fire())

	eggsSession, _ := m.Get("eggs")
	pastaSession, _ := m.Get("pasta")
	assert.Equal(t, 120, eggsSession.StepRemainingSec)
	assert.Equal(t, 590, pastaSession.StepRemainingSec)
}

func TestRunner_CachesRecipePerTarget(t *testing.T) {
	recipes := new(mockRecipes)
	recipes.On("Get", mock.Anything, "eggs").Return(eggs(), nil).Once()

	m, r, clock := setup(t, recipes)

	require.True(t, m.Start(eggs(), clock.Now()))
	clock.Set(epoch.Add(130 * time.Second))
	r.Fire()
	r.Fire()
	m.ForceEndStep("eggs")

	recipes.AssertExpectations(t)
}

func TestRunner_MissingRecipeDoesNotTick(t *testing.T) {
	recipes := new(mockRecipes)
	recipes.On("Get", mock.Anything, "eggs").Return(domain.Recipe{}, errors.New("gone"))

	m, r, clock := setup(t, recipes)

	require.True(t, m.Start(eggs(), clock.Now()))
	assert.False(t, r.Ticking())

	s, ok := m.Get("eggs")
	require.True(t, ok)
	assert.Equal(t, 120, s.StepRemainingSec)
}

// blockingRecipes holds Get until release is closed. With only set, other ids pass through.
type blockingRecipes struct {
	recipeMap
	only    string
	entered chan string
	release chan struct{}
}

func (b *blockingRecipes) Get(ctx context.Context, id string) (domain.Recipe, error) {
	if b.only != "" && id != b.only {
		return b.recipeMap.Get(ctx, id)
	}
	b.entered <- id
	<-b.release
	return b.recipeMap.Get(ctx, id)
}

func TestRunner_LoadsRecipeOutsideLock(t *testing.T) {
	recipes := &blockingRecipes{
		recipeMap: recipeMap{"eggs": eggs(), "pasta": pasta()},
		entered:   make(chan string, 4),
		release:   make(chan struct{}),
	}
	m, r, clock := setup(t, recipes)

	started := make(chan struct{})
	go func() {
		defer close(started)
		m.Start(eggs(), clock.Now())
	}()
	assert.Equal(t, "eggs", <-recipes.entered)

	ticking := make(chan bool, 1)
	go func() { ticking <- r.Ticking() }()
	select {
	case got := <-ticking:
		assert.False(t, got)
	case <-time.After(time.Second):
		t.Fatal("runner lock held during the recipe load")
	}

	close(recipes.release)
	<-started
	assert.True(t, r.Ticking())
}

func TestRunner_DropsStaleRecipeLoad(t *testing.T) {
	recipes := &blockingRecipes{
		recipeMap: recipeMap{"eggs": eggs(), "pasta": pasta()},
		entered:   make(chan string, 4),
		release:   make(chan struct{}),
	}
	m, r, clock := setup(t, recipes)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Start(eggs(), clock.Now())
	}()
	assert.Equal(t, "eggs", <-recipes.entered)

	// The eggs load is still in flight when the session is paused.
	m.Pause("eggs")
	close(recipes.release)
	<-done

	assert.False(t, r.Ticking())
}

func TestRunner_StopsPreviousTargetBeforeLoading(t *testing.T) {
	recipes := &blockingRecipes{
		recipeMap: recipeMap{"eggs": eggs(), "pasta": pasta()},
		only:      "pasta",
		entered:   make(chan string, 4),
		release:   make(chan struct{}),
	}
	m, r, clock := setup(t, recipes)

	require.True(t, m.Start(eggs(), clock.Now()))
	require.True(t, r.Ticking())

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Start(pasta(), clock.Now())
	}()
	assert.Equal(t, "pasta", <-recipes.entered)

	clock.Set(epoch.Add(10 * time.Second))
	assert.False(t, r.Fire(), "the eggs callback must not tick pasta")

	close(recipes.release)
	<-done
	require.True(t, r.Ticking())

	s, _ := m.Get("pasta")
	assert.Equal(t, 600, s.StepRemainingSec)
}

func TestRunner_TickerDrivesFirings(t *testing.T) {
	m, _, clock := setup(t, recipeMap{"eggs": eggs()})

	require.True(t, m.Start(eggs(), clock.Now()))

	assert.Eventually(t, func() bool {
		clock.Advance(time.Second)
		s, _ := m.Get("eggs")
		return s.StepRemainingSec < 120
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_NoDecrementAfterClose(t *testing.T) {
	clock := runner.NewManualClock(epoch)
	m := session.NewMachine()
	r := runner.New(m, recipeMap{"eggs": eggs()}, runner.WithClock(clock))
	unwatch := r.Watch()
	defer unwatch()

	require.True(t, m.Start(eggs(), clock.Now()))
	r.Close()

	assert.Equal(t, 0, clock.Tickers())
	assert.False(t, r.Ticking())

	before, _ := m.Get("eggs")
	clock.Advance(time.Minute)
	r.Fire()
	after, _ := m.Get("eggs")
	assert.Equal(t, before, after)

	m.Pause("eggs")
	m.Resume("eggs", clock.Now())
	assert.False(t, r.Ticking(), "a closed runner never re-arms")
}

func TestRunner_RunWithSystemClock(t *testing.T) {
	quick := domain.Recipe{
		ID: "quick",
		Steps: []domain.Step{
			{Description: "Stir", DurationMinutes: 1.0 / 60, Kind: domain.StepInstruction},
			{Description: "Serve", DurationMinutes: 1.0 / 60, Kind: domain.StepInstruction},
		},
	}
	m := session.NewMachine()
	r := runner.New(m, recipeMap{"quick": quick}, runner.WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.True(t, m.Start(quick, time.Now()))
	require.Eventually(t, r.Ticking, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, ok := m.Get("quick")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
