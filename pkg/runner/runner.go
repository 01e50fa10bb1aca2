package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/session"
)

// RecipeGetter resolves the recipe a session is cooking.
type RecipeGetter interface {
	Get(ctx context.Context, id string) (domain.Recipe, error)
}

// Runner is the ticking driver. It keeps exactly one periodic callback alive
// while the active session is running, feeds ticks into the Machine and
// advances or ends the session once the current step runs out.
type Runner struct {
	machine  *session.Machine
	recipes  RecipeGetter
	clock    Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	handle *handle
	closed bool
	nextID uint64

	// current is the id of the handle allowed to mutate the Machine; 0 means none.
	current atomic.Uint64
	loops   sync.WaitGroup
}

// target identifies one session lifetime: a recipe restarted after ending is a new target.
type target struct {
	recipeID  string
	startedAt time.Time
}

type handle struct {
	id     uint64
	target target
	recipe domain.Recipe
	cancel context.CancelFunc
}

// New creates a Runner for machine. It does nothing until Run or Reconcile is called.
func New(machine *session.Machine, recipes RecipeGetter, opts ...Option) *Runner {
	r := &Runner{
		machine:  machine,
		recipes:  recipes,
		clock:    SystemClock{},
		interval: DefaultInterval,
		logger:   logging.NewNop(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the active session until ctx is cancelled, then tears the driver down.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	unwatch := r.Watch()
	defer unwatch()

	<-ctx.Done()
	r.Close()
	return nil
}

// Watch reconciles now and after every Machine event until the returned
// function is called.
func (r *Runner) Watch() func() {
	unsubscribe := r.machine.Subscribe(func(e domain.SessionEvent) {
		if e.Type == domain.EventTicked {
			return
		}
		r.Reconcile()
	})
	r.Reconcile()
	return unsubscribe
}

// Reconcile starts, replaces or cancels the periodic callback so that it matches
// the active session. It never waits for a callback to finish, so it is safe to
// call from a Machine listener. The recipe is loaded without holding the runner
// lock; the target is checked again before the callback is armed.
func (r *Runner) Reconcile() {
	want, ctx, ok := r.pending()
	if !ok {
		return
	}

	recipe, err := r.recipes.Get(ctx, want.recipeID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	got, ok := r.wantedLocked()
	if !ok {
		r.stopLocked()
		return
	}
	if got != want {
		// A later event moved the active session; its own Reconcile arms it.
		return
	}
	if r.handle != nil && r.handle.target == want {
		return
	}

	r.stopLocked()
	if err != nil {
		r.logger.Warn("Active session has no recipe, not ticking",
			"recipe_id", want.recipeID,
			"err", err,
		)
		return
	}
	r.startLocked(want, recipe)
}

// pending reports the target that still needs a callback. A callback armed
// for another target is stopped right away, so it cannot tick the new session
// while its recipe loads.
func (r *Runner) pending() (target, context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return target{}, nil, false
	}
	want, ok := r.wantedLocked()
	if !ok {
		r.stopLocked()
		return target{}, nil, false
	}
	if r.handle != nil && r.handle.target == want {
		return target{}, nil, false
	}
	r.stopLocked()
	return want, r.ctx, true
}

func (r *Runner) wantedLocked() (target, bool) {
	s, ok := r.machine.Active()
	if !ok || !s.IsRunning {
		return target{}, false
	}
	return target{recipeID: s.RecipeID, startedAt: s.StartedAt}, true
}

// Fire runs one firing of the current callback synchronously.
// It reports false when no callback is armed.
func (r *Runner) Fire() bool {
	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()

	if h == nil {
		return false
	}
	r.fire(h)
	return true
}

// Ticking reports whether a periodic callback is armed.
func (r *Runner) Ticking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle != nil
}

// Close cancels the callback and waits for every callback goroutine to exit.
// No tick is applied once Close returns. It must not be called from a Machine listener.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.stopLocked()
	r.mu.Unlock()

	r.loops.Wait()
}

func (r *Runner) startLocked(t target, recipe domain.Recipe) {
	r.nextID++
	ctx, cancel := context.WithCancel(r.ctx)
	h := &handle{
		id:     r.nextID,
		target: t,
		recipe: recipe,
		cancel: cancel,
	}
	r.handle = h
	r.current.Store(h.id)

	ticker := r.clock.NewTicker(r.interval)
	r.loops.Add(1)
	go r.loop(ctx, h, ticker)

	r.logger.Debug("Ticking started", "recipe_id", t.recipeID, "interval", r.interval)
}

func (r *Runner) stopLocked() {
	if r.handle == nil {
		return
	}
	r.current.Store(0)
	r.handle.cancel()
	r.logger.Debug("Ticking stopped", "recipe_id", r.handle.target.recipeID)
	r.handle = nil
}

func (r *Runner) loop(ctx context.Context, h *handle, ticker Ticker) {
	defer r.loops.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.fire(h)
		}
	}
}

// fire applies one tick and the follow-up advance or end as a single batch.
// The ownership check runs under the Machine lock, so a replaced callback
// can never decrement time.
func (r *Runner) fire(h *handle) {
	now := r.clock.Now()

	r.machine.Update(func(tx *session.Tx) {
		if r.current.Load() != h.id {
			return
		}

		tx.Tick(now)

		s, ok := tx.Active()
		if !ok || !s.IsRunning || s.RecipeID != h.target.recipeID || !s.StepComplete() {
			return
		}

		if !s.HasNextStep() {
			tx.End(domain.EndCompleted)
			return
		}

		next, ok := h.recipe.StepAt(s.CurrentStepIndex + 1)
		if !ok {
			r.logger.Warn("Recipe has fewer steps than its session, ending",
				"recipe_id", s.RecipeID,
				"step", s.CurrentStepIndex+1,
			)
			tx.End(domain.EndCompleted)
			return
		}
		tx.AdvanceStep(next.DurationSec(), now)
	})
}
