package domain

import "time"

// Session is a snapshot of the cooking progress for one recipe.
// Values handed out by the session package are copies; mutating them has no effect.
type Session struct {
	RecipeID string `json:"recipe_id"`

	// CurrentStepIndex is in [0, StepCount) and only ever increases.
	CurrentStepIndex int `json:"current_step_index"`

	// StepCount is the number of steps of the recipe when the session started.
	StepCount int `json:"step_count"`

	// IsRunning reports whether the timer is counting down.
	IsRunning bool `json:"is_running"`

	StepRemainingSec    int `json:"step_remaining_sec"`
	OverallRemainingSec int `json:"overall_remaining_sec"`

	// LastTick is the wall-clock reference of the last applied tick.
	// It is the zero time iff IsRunning is false.
	LastTick time.Time `json:"last_tick,omitzero"`

	StartedAt time.Time `json:"started_at"`
}

// HasNextStep reports whether another step follows the current one.
func (s Session) HasNextStep() bool {
	return s.CurrentStepIndex+1 < s.StepCount
}

// StepComplete reports whether the current step has no time left.
func (s Session) StepComplete() bool {
	return s.StepRemainingSec <= 0
}
