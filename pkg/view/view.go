package view

import (
	"fmt"

	"github.com/aretw0/mise/pkg/domain"
)

// Status is the coarse state shown next to a timer.
type Status string

const (
	StatusNotStarted Status = "Not started"
	StatusRunning    Status = "Running"
	StatusPaused     Status = "Paused"
)

// Progress is everything the cook page displays for one recipe.
type Progress struct {
	RecipeID string `json:"recipe_id"`
	Title    string `json:"title"`
	Status   Status `json:"status"`

	// StepNumber is 1-based.
	StepNumber      int             `json:"step_number"`
	StepCount       int             `json:"step_count"`
	StepDescription string          `json:"step_description"`
	StepKind        domain.StepKind `json:"step_kind,omitempty"`

	StepDurationSec  int    `json:"step_duration_sec"`
	StepRemainingSec int    `json:"step_remaining_sec"`
	StepRemaining    string `json:"step_remaining"`
	StepPercent      int    `json:"step_percent"`

	TotalDurationSec    int    `json:"total_duration_sec"`
	OverallRemainingSec int    `json:"overall_remaining_sec"`
	OverallRemaining    string `json:"overall_remaining"`
	OverallPercent      int    `json:"overall_percent"`
}

// Started reports whether a session exists for the recipe.
func (p Progress) Started() bool {
	return p.Status != StatusNotStarted
}

// Cook projects a recipe and its optional session. Without a session the first
// step is shown with full durations and 0% progress.
func Cook(recipe domain.Recipe, s *domain.Session) Progress {
	p := Progress{
		RecipeID:         recipe.ID,
		Title:            recipe.Title,
		Status:           StatusNotStarted,
		StepCount:        len(recipe.Steps),
		TotalDurationSec: recipe.TotalDurationSec(),
	}

	index := 0
	if s != nil {
		index = s.CurrentStepIndex
		p.Status = StatusPaused
		if s.IsRunning {
			p.Status = StatusRunning
		}
	}

	step, ok := recipe.StepAt(index)
	if ok {
		p.StepNumber = index + 1
		p.StepDescription = step.Description
		p.StepKind = step.Kind
		p.StepDurationSec = step.DurationSec()
	}

	p.StepRemainingSec = p.StepDurationSec
	p.OverallRemainingSec = p.TotalDurationSec
	if s != nil {
		p.StepRemainingSec = s.StepRemainingSec
		p.OverallRemainingSec = s.OverallRemainingSec
	}

	p.StepRemaining = MMSS(p.StepRemainingSec)
	p.StepPercent = StepPercent(p.StepDurationSec, p.StepRemainingSec)
	p.OverallRemaining = MMSS(p.OverallRemainingSec)
	p.OverallPercent = OverallPercent(p.TotalDurationSec, p.OverallRemainingSec)
	return p
}

// MiniPlayer is the compact view of the active session shown away from its cook page.
type MiniPlayer struct {
	RecipeID    string `json:"recipe_id"`
	Title       string `json:"title"`
	Label       string `json:"label"`
	StepPercent int    `json:"step_percent"`
	Running     bool   `json:"running"`
}

// Mini projects the active session. It reports false when the session points
// past the recipe's steps.
func Mini(recipe domain.Recipe, s domain.Session) (MiniPlayer, bool) {
	step, ok := recipe.StepAt(s.CurrentStepIndex)
	if !ok {
		return MiniPlayer{}, false
	}

	status := StatusPaused
	if s.IsRunning {
		status = StatusRunning
	}

	return MiniPlayer{
		RecipeID:    recipe.ID,
		Title:       recipe.Title,
		Label:       fmt.Sprintf("Step %d · %s · %s", s.CurrentStepIndex+1, MMSS(s.StepRemainingSec), status),
		StepPercent: StepPercent(step.DurationSec(), s.StepRemainingSec),
		Running:     s.IsRunning,
	}, true
}
