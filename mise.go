package mise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/observability"
	"github.com/aretw0/mise/pkg/ports"
	"github.com/aretw0/mise/pkg/recipes"
	"github.com/aretw0/mise/pkg/runner"
	"github.com/aretw0/mise/pkg/session"
	"github.com/aretw0/mise/pkg/view"
)

// Kitchen is the high-level entry point of the library.
type Kitchen struct {
	book    *recipes.Book
	machine *session.Machine
	runner  *runner.Runner
	clock   runner.Clock
	logger  *slog.Logger

	interval time.Duration
	locker   ports.DistributedLocker
	metrics  *observability.Metrics

	unsubscribe []func()
}

// Option defines a functional option for configuring the Kitchen.
type Option func(*Kitchen)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kitchen) {
		k.logger = logger
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock runner.Clock) Option {
	return func(k *Kitchen) {
		k.clock = clock
	}
}

// WithTickInterval overrides the ticking period (default one second).
func WithTickInterval(d time.Duration) Option {
	return func(k *Kitchen) {
		k.interval = d
	}
}

// WithLocker serializes recipe edits across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(k *Kitchen) {
		k.locker = locker
	}
}

// WithMetrics records session events on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(k *Kitchen) {
		k.metrics = m
	}
}

// New creates a Kitchen over store and arms the ticking driver.
// Call Close to stop it.
func New(store ports.RecipeStore, opts ...Option) *Kitchen {
	k := &Kitchen{
		clock:    runner.SystemClock{},
		logger:   logging.NewNop(),
		interval: runner.DefaultInterval,
	}
	for _, opt := range opts {
		opt(k)
	}

	bookOpts := []recipes.Option{
		recipes.WithLogger(k.logger),
		recipes.WithClock(k.clock.Now),
	}
	if k.locker != nil {
		bookOpts = append(bookOpts, recipes.WithLocker(k.locker))
	}
	k.book = recipes.NewBook(store, bookOpts...)

	k.machine = session.NewMachine(
		session.WithLogger(k.logger),
		session.WithClock(k.clock.Now),
	)
	k.runner = runner.New(k.machine, k.book,
		runner.WithLogger(k.logger),
		runner.WithClock(k.clock),
		runner.WithInterval(k.interval),
	)

	k.unsubscribe = append(k.unsubscribe, k.machine.Subscribe(observability.LogEvents(k.logger)))
	if k.metrics != nil {
		k.unsubscribe = append(k.unsubscribe, k.machine.Subscribe(k.metrics.Observe))
	}
	k.unsubscribe = append(k.unsubscribe, k.runner.Watch())
	return k
}

// Run blocks until ctx is cancelled and then closes the Kitchen.
func (k *Kitchen) Run(ctx context.Context) error {
	<-ctx.Done()
	k.Close()
	return nil
}

// Close stops the ticking driver. Sessions are kept but no longer tick.
func (k *Kitchen) Close() {
	for _, fn := range k.unsubscribe {
		fn()
	}
	k.unsubscribe = nil
	k.runner.Close()
}

// Subscribe registers fn for every session event.
func (k *Kitchen) Subscribe(fn func(domain.SessionEvent)) func() {
	return k.machine.Subscribe(fn)
}

// Start begins cooking a recipe and makes it the active session.
// Starting a recipe that already has a session focuses it without resetting.
// The recipe is read and the session created under the recipe lock, so an edit
// either lands before the session exists or is rejected with ErrRecipeInUse.
func (k *Kitchen) Start(ctx context.Context, recipeID string) (domain.Session, error) {
	var s domain.Session
	err := k.book.WithLock(ctx, recipeID, func(ctx context.Context) error {
		recipe, err := k.book.Get(ctx, recipeID)
		if err != nil {
			return err
		}
		if len(recipe.Steps) == 0 {
			return domain.ErrNoSteps
		}

		now := k.clock.Now()
		k.machine.Update(func(tx *session.Tx) {
			if !tx.Start(recipe, now) {
				tx.Focus(recipeID, now)
			}
			s, _ = tx.Get(recipeID)
		})
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// Pause stops the countdown of a session.
func (k *Kitchen) Pause(recipeID string) (domain.Session, error) {
	return k.apply(recipeID, func(tx *session.Tx) { tx.Pause(recipeID) })
}

// Resume restarts the countdown of a session from now.
func (k *Kitchen) Resume(recipeID string) (domain.Session, error) {
	now := k.clock.Now()
	return k.apply(recipeID, func(tx *session.Tx) { tx.Resume(recipeID, now) })
}

// Toggle pauses a running session and resumes a paused one.
func (k *Kitchen) Toggle(recipeID string) (domain.Session, error) {
	now := k.clock.Now()
	return k.apply(recipeID, func(tx *session.Tx) {
		if s, ok := tx.Get(recipeID); ok && s.IsRunning {
			tx.Pause(recipeID)
			return
		}
		tx.Resume(recipeID, now)
	})
}

// SkipStep finishes the current step; the driver advances on its next firing.
func (k *Kitchen) SkipStep(recipeID string) (domain.Session, error) {
	return k.apply(recipeID, func(tx *session.Tx) { tx.ForceEndStep(recipeID) })
}

// Focus makes an existing session the active one.
func (k *Kitchen) Focus(recipeID string) (domain.Session, error) {
	now := k.clock.Now()
	return k.apply(recipeID, func(tx *session.Tx) { tx.Focus(recipeID, now) })
}

// End cancels the active session, if any.
func (k *Kitchen) End() bool {
	return k.machine.End()
}

// EndSession cancels the session of a specific recipe.
func (k *Kitchen) EndSession(recipeID string) error {
	if !k.machine.EndSession(recipeID, domain.EndCancelled) {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (k *Kitchen) apply(recipeID string, fn func(tx *session.Tx)) (domain.Session, error) {
	var (
		s     domain.Session
		found bool
	)
	k.machine.Update(func(tx *session.Tx) {
		if _, found = tx.Get(recipeID); !found {
			return
		}
		fn(tx)
		s, found = tx.Get(recipeID)
	})
	if !found {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

// Session returns a snapshot of the session for a recipe.
func (k *Kitchen) Session(recipeID string) (domain.Session, bool) {
	return k.machine.Get(recipeID)
}

// Active returns a snapshot of the active session.
func (k *Kitchen) Active() (domain.Session, bool) {
	return k.machine.Active()
}

// Sessions returns every live session.
func (k *Kitchen) Sessions() []domain.Session {
	return k.machine.Sessions()
}

// Progress projects the cook page of a recipe, with or without a session.
func (k *Kitchen) Progress(ctx context.Context, recipeID string) (view.Progress, error) {
	recipe, err := k.book.Get(ctx, recipeID)
	if err != nil {
		return view.Progress{}, err
	}
	if s, ok := k.machine.Get(recipeID); ok {
		return view.Cook(recipe, &s), nil
	}
	return view.Cook(recipe, nil), nil
}

// MiniPlayer projects the active session. It reports false when nothing is active.
func (k *Kitchen) MiniPlayer(ctx context.Context) (view.MiniPlayer, bool, error) {
	s, ok := k.machine.Active()
	if !ok {
		return view.MiniPlayer{}, false, nil
	}
	recipe, err := k.book.Get(ctx, s.RecipeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return view.MiniPlayer{}, false, nil
		}
		return view.MiniPlayer{}, false, err
	}
	mini, ok := view.Mini(recipe, s)
	return mini, ok, nil
}

// GetRecipe returns a recipe by ID.
func (k *Kitchen) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	return k.book.Get(ctx, id)
}

// ListRecipes returns the recipes matching q.
func (k *Kitchen) ListRecipes(ctx context.Context, q catalog.Query) ([]domain.Recipe, error) {
	all, err := k.book.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Apply(all, q), nil
}

// SaveRecipe creates or updates a recipe. Recipes being cooked cannot be edited.
func (k *Kitchen) SaveRecipe(ctx context.Context, recipe domain.Recipe) (domain.Recipe, error) {
	return k.book.Save(ctx, recipe, k.notCooking)
}

func (k *Kitchen) notCooking(_ context.Context, id string) error {
	if _, live := k.machine.Get(id); live {
		return domain.ErrRecipeInUse
	}
	return nil
}

// ImportRecipes saves every recipe in order and returns how many were stored.
func (k *Kitchen) ImportRecipes(ctx context.Context, list []domain.Recipe) (int, error) {
	for i, r := range list {
		if _, err := k.SaveRecipe(ctx, r); err != nil {
			return i, fmt.Errorf("recipe %d (%q): %w", i, r.Title, err)
		}
	}
	return len(list), nil
}

// DeleteRecipe removes a recipe and ends its session.
func (k *Kitchen) DeleteRecipe(ctx context.Context, id string) error {
	return k.book.Delete(ctx, id, func(id string) {
		k.machine.EndSession(id, domain.EndRemoved)
	})
}

// ToggleFavorite flips the favorite flag of a recipe.
func (k *Kitchen) ToggleFavorite(ctx context.Context, id string) (domain.Recipe, error) {
	return k.book.ToggleFavorite(ctx, id)
}
