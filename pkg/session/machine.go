package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/domain"
)

// Listener receives every event applied by the Machine, in order.
// Listeners run on the goroutine that applied the event, after the Machine lock
// has been released, so they may call back into the Machine.
type Listener func(domain.SessionEvent)

// Machine owns the session registry and serializes every transition.
type Machine struct {
	mu       sync.Mutex
	registry *Registry
	now      func() time.Time
	logger   *slog.Logger

	// pending events wait here until the draining caller delivers them,
	// which keeps deliveries in application order across goroutines.
	pending  []domain.SessionEvent
	draining bool

	subsMu  sync.RWMutex
	subs    map[int]Listener
	nextSub int
}

// Option configures the Machine.
type Option func(*Machine)

// WithLogger configures a logger for transition traces.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithClock overrides the clock used to timestamp events.
// Operations that take a "now" argument never consult it.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// NewMachine creates a Machine with an empty registry.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		registry: NewRegistry(),
		now:      time.Now,
		logger:   logging.NewNop(),
		subs:     make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (m *Machine) Subscribe(fn Listener) func() {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}

// Update applies fn atomically. Reads made through the Tx observe every prior
// write of the same batch and no interleaving from other callers.
//
// Events produced by fn are delivered once the lock is released. When another
// caller is already delivering, the events are queued behind its batch and
// Update returns without waiting for them.
func (m *Machine) Update(fn func(tx *Tx)) {
	m.mu.Lock()
	tx := &Tx{reg: m.registry, stamp: m.now}
	fn(tx)
	m.pending = append(m.pending, tx.events...)
	if m.draining {
		m.mu.Unlock()
		return
	}

	m.draining = true
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil
		m.mu.Unlock()
		m.publish(batch)
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

func (m *Machine) publish(events []domain.SessionEvent) {
	if len(events) == 0 {
		return
	}

	m.subsMu.RLock()
	listeners := make([]Listener, 0, len(m.subs))
	for id := 0; id < m.nextSub; id++ {
		if fn, ok := m.subs[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	m.subsMu.RUnlock()

	for _, e := range events {
		m.logger.Debug("session event",
			"type", e.Type,
			"recipe_id", e.RecipeID,
			"active_id", e.ActiveID,
		)
		for _, fn := range listeners {
			m.deliver(fn, e)
		}
	}
}

func (m *Machine) deliver(fn Listener, e domain.SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session listener panicked", "type", e.Type, "panic", r)
		}
	}()
	fn(e)
}

// Start creates a running session for recipe. See Tx.Start.
func (m *Machine) Start(recipe domain.Recipe, now time.Time) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.Start(recipe, now) })
	return ok
}

// Pause stops the countdown of the session for recipeID.
func (m *Machine) Pause(recipeID string) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.Pause(recipeID) })
	return ok
}

// Resume restarts the countdown of the session for recipeID from now.
func (m *Machine) Resume(recipeID string, now time.Time) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.Resume(recipeID, now) })
	return ok
}

// Tick charges elapsed time to the active session.
func (m *Machine) Tick(now time.Time) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.Tick(now) })
	return ok
}

// ForceEndStep zeroes the remaining time of the current step.
func (m *Machine) ForceEndStep(recipeID string) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.ForceEndStep(recipeID) })
	return ok
}

// AdvanceStep moves the active session to its next step.
func (m *Machine) AdvanceStep(nextStepDurationSec int, now time.Time) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.AdvanceStep(nextStepDurationSec, now) })
	return ok
}

// End cancels the active session. Calling it with no active session is a no-op.
func (m *Machine) End() (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.End(domain.EndCancelled) })
	return ok
}

// EndSession cancels the session for recipeID, active or not.
func (m *Machine) EndSession(recipeID string, reason domain.EndReason) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.EndSession(recipeID, reason) })
	return ok
}

// Focus makes the session for recipeID the active one.
func (m *Machine) Focus(recipeID string, now time.Time) (ok bool) {
	m.Update(func(tx *Tx) { ok = tx.Focus(recipeID, now) })
	return ok
}

// Get returns a snapshot of the session for recipeID.
func (m *Machine) Get(recipeID string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Get(recipeID)
}

// Active returns a snapshot of the active session.
func (m *Machine) Active() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Active()
}

// ActiveID returns the active recipe ID.
func (m *Machine) ActiveID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.ActiveID()
}

// Sessions returns snapshots of every live session, ordered by recipe ID.
func (m *Machine) Sessions() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.registry.IDs()
	out := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		s, _ := m.registry.Get(id)
		out = append(out, s)
	}
	return out
}
