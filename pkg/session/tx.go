package session

import (
	"time"

	"github.com/aretw0/mise/pkg/domain"
)

// Tx applies state machine operations to the registry.
// A Tx is only valid inside the Machine.Update call that created it.
type Tx struct {
	reg    *Registry
	stamp  func() time.Time
	events []domain.SessionEvent
}

// Get returns a snapshot of the session for recipeID.
func (tx *Tx) Get(recipeID string) (domain.Session, bool) {
	return tx.reg.Get(recipeID)
}

// Active returns a snapshot of the active session.
func (tx *Tx) Active() (domain.Session, bool) {
	return tx.reg.Active()
}

// Start creates a running session at step 0 and makes it active.
// It is a no-op when the recipe has no steps or a session already exists.
// Any other active session is paused so that it stays frozen while not targeted.
func (tx *Tx) Start(recipe domain.Recipe, now time.Time) bool {
	if len(recipe.Steps) == 0 {
		return false
	}
	if tx.reg.lookup(recipe.ID) != nil {
		return false
	}

	tx.freezeActive(recipe.ID)

	s := &domain.Session{
		RecipeID:            recipe.ID,
		CurrentStepIndex:    0,
		StepCount:           len(recipe.Steps),
		IsRunning:           true,
		StepRemainingSec:    recipe.Steps[0].DurationSec(),
		OverallRemainingSec: recipe.TotalDurationSec(),
		LastTick:            now,
		StartedAt:           now,
	}
	tx.reg.put(s)
	tx.reg.setActive(recipe.ID)

	tx.emit(domain.EventStarted, nil, s, nil)
	return true
}

// Pause stops the countdown and drops the clock reference.
func (tx *Tx) Pause(recipeID string) bool {
	s := tx.reg.lookup(recipeID)
	if s == nil || (!s.IsRunning && s.LastTick.IsZero()) {
		return false
	}
	before := *s
	s.IsRunning = false
	s.LastTick = time.Time{}

	tx.emit(domain.EventPaused, &before, s, nil)
	return true
}

// Resume restarts the countdown from now. Resuming a running session re-arms
// the clock reference.
func (tx *Tx) Resume(recipeID string, now time.Time) bool {
	s := tx.reg.lookup(recipeID)
	if s == nil {
		return false
	}
	if s.IsRunning && s.LastTick.Equal(now) {
		return false
	}
	before := *s
	s.IsRunning = true
	s.LastTick = now

	tx.emit(domain.EventResumed, &before, s, nil)
	return true
}

// Tick charges the whole seconds elapsed since the last tick to the active session.
// Sub-second and backwards deltas are ignored and leave the clock reference untouched,
// so fractions accumulate until a full second has passed. A charged delta moves the
// reference to now, so its own fraction (0.9s of a 1.9s delta) is dropped.
func (tx *Tx) Tick(now time.Time) bool {
	s := tx.reg.active()
	if s == nil || !s.IsRunning || s.LastTick.IsZero() {
		return false
	}

	deltaSec := int(now.Sub(s.LastTick) / time.Second)
	if deltaSec <= 0 {
		return false
	}

	before := *s
	s.LastTick = now
	s.StepRemainingSec = max(0, s.StepRemainingSec-deltaSec)
	s.OverallRemainingSec = max(0, s.OverallRemainingSec-deltaSec)

	tx.emit(domain.EventTicked, &before, s, func(e *domain.SessionEvent) {
		e.Elapsed = deltaSec
	})
	return true
}

// ForceEndStep drops the current step's remaining time to zero so the driver
// advances on its next firing. It does more than zero the step: the skipped
// seconds are also removed from the overall remaining time, which keeps overall
// equal to the seconds left in the recipe.
func (tx *Tx) ForceEndStep(recipeID string) bool {
	s := tx.reg.lookup(recipeID)
	if s == nil || s.StepRemainingSec == 0 {
		return false
	}
	before := *s
	s.OverallRemainingSec = max(0, s.OverallRemainingSec-s.StepRemainingSec)
	s.StepRemainingSec = 0

	tx.emit(domain.EventSkipped, &before, s, nil)
	return true
}

// AdvanceStep moves the active session to its next step and keeps it running.
// The overall remaining time is left alone: ticking already charged it.
func (tx *Tx) AdvanceStep(nextStepDurationSec int, now time.Time) bool {
	s := tx.reg.active()
	if s == nil || !s.HasNextStep() {
		return false
	}
	before := *s
	s.CurrentStepIndex++
	s.StepRemainingSec = max(0, nextStepDurationSec)
	s.IsRunning = true
	s.LastTick = now

	tx.emit(domain.EventAdvanced, &before, s, nil)
	return true
}

// End removes the active session and clears the active pointer.
func (tx *Tx) End(reason domain.EndReason) bool {
	id, ok := tx.reg.ActiveID()
	if !ok {
		return false
	}
	return tx.EndSession(id, reason)
}

// EndSession removes the session for recipeID, clearing the active pointer if
// it pointed there.
func (tx *Tx) EndSession(recipeID string, reason domain.EndReason) bool {
	s := tx.reg.lookup(recipeID)
	if s == nil {
		return false
	}
	before := *s
	tx.reg.remove(recipeID)

	tx.emit(domain.EventEnded, &before, nil, func(e *domain.SessionEvent) {
		e.Reason = reason
	})
	return true
}

// Focus points the active pointer at an existing session. The previously active
// session is paused; the focused one keeps its running flag.
func (tx *Tx) Focus(recipeID string, now time.Time) bool {
	s := tx.reg.lookup(recipeID)
	if s == nil {
		return false
	}
	if id, ok := tx.reg.ActiveID(); ok && id == recipeID {
		return false
	}

	tx.freezeActive(recipeID)

	before := *s
	tx.reg.setActive(recipeID)
	if s.IsRunning {
		// Time spent unfocused is not charged.
		s.LastTick = now
	}

	tx.emit(domain.EventFocused, &before, s, nil)
	return true
}

func (tx *Tx) freezeActive(nextID string) {
	current := tx.reg.active()
	if current == nil || current.RecipeID == nextID {
		return
	}
	tx.Pause(current.RecipeID)
}

func (tx *Tx) emit(typ domain.EventType, before, after *domain.Session, decorate func(*domain.SessionEvent)) {
	e := domain.SessionEvent{
		Timestamp: tx.stamp(),
		Type:      typ,
		Before:    before,
	}
	if after != nil {
		snap := *after
		e.After = &snap
		e.RecipeID = after.RecipeID
	} else if before != nil {
		e.RecipeID = before.RecipeID
	}
	e.ActiveID, _ = tx.reg.ActiveID()
	if decorate != nil {
		decorate(&e)
	}
	tx.events = append(tx.events, e)
}
