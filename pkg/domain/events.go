package domain

import "time"

// EventType defines the category of a session event.
type EventType string

const (
	EventStarted  EventType = "session_started"
	EventPaused   EventType = "session_paused"
	EventResumed  EventType = "session_resumed"
	EventTicked   EventType = "session_ticked"
	EventSkipped  EventType = "step_skipped"
	EventAdvanced EventType = "step_advanced"
	EventFocused  EventType = "session_focused"
	EventEnded    EventType = "session_ended"
)

// EndReason explains why a session left the registry.
type EndReason string

const (
	EndCompleted EndReason = "completed" // Last step ran out
	EndCancelled EndReason = "cancelled" // Explicit user termination
	EndRemoved   EndReason = "removed"   // Recipe deleted underneath the session
)

// SessionEvent is emitted after every applied state machine operation.
type SessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RecipeID  string    `json:"recipe_id"`

	// Before is the snapshot prior to the operation (nil for EventStarted).
	Before *Session `json:"before,omitempty"`

	// After is the snapshot once applied (nil for EventEnded).
	After *Session `json:"after,omitempty"`

	// ActiveID is the active recipe pointer after the operation ("" when absent).
	ActiveID string `json:"active_id"`

	// Elapsed is the whole seconds consumed by a tick.
	Elapsed int `json:"elapsed,omitempty"`

	Reason EndReason `json:"reason,omitempty"`
}
