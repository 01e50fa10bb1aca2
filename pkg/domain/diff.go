package domain

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// RecipeID is always present to identify the target.
	RecipeID string `json:"recipe_id"`

	CurrentStepIndex    *int  `json:"current_step_index,omitempty"`
	IsRunning           *bool `json:"is_running,omitempty"`
	StepRemainingSec    *int  `json:"step_remaining_sec,omitempty"`
	OverallRemainingSec *int  `json:"overall_remaining_sec,omitempty"`

	// Ended is set when the session left the registry.
	Ended *bool `json:"ended,omitempty"`
}

// Diff calculates the difference between two snapshots of the same session.
// A nil old snapshot yields the whole new snapshot (initial load); a nil new
// snapshot yields an ended marker. It returns nil when nothing changed.
func Diff(old, new *Session) *SessionDiff {
	if old == nil && new == nil {
		return nil
	}

	if new == nil {
		ended := true
		return &SessionDiff{RecipeID: old.RecipeID, Ended: &ended}
	}

	diff := &SessionDiff{RecipeID: new.RecipeID}

	if old == nil || old.CurrentStepIndex != new.CurrentStepIndex {
		diff.CurrentStepIndex = &new.CurrentStepIndex
	}
	if old == nil || old.IsRunning != new.IsRunning {
		diff.IsRunning = &new.IsRunning
	}
	if old == nil || old.StepRemainingSec != new.StepRemainingSec {
		diff.StepRemainingSec = &new.StepRemainingSec
	}
	if old == nil || old.OverallRemainingSec != new.OverallRemainingSec {
		diff.OverallRemainingSec = &new.OverallRemainingSec
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentStepIndex == nil &&
		d.IsRunning == nil &&
		d.StepRemainingSec == nil &&
		d.OverallRemainingSec == nil &&
		d.Ended == nil
}
