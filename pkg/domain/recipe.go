package domain

import (
	"math"
	"time"
)

// StepKind classifies a recipe step.
type StepKind string

const (
	StepInstruction StepKind = "instruction" // Hands-on work (chop, mix, plate)
	StepCooking     StepKind = "cooking"     // Passive time (bake, simmer, rest)
)

// Difficulty is the coarse effort label shown in recipe lists.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Ingredient is a single line of a recipe's shopping list.
type Ingredient struct {
	Name     string  `json:"name" yaml:"name" mapstructure:"name"`
	Quantity float64 `json:"quantity,omitempty" yaml:"quantity,omitempty" mapstructure:"quantity"`
	Unit     string  `json:"unit,omitempty" yaml:"unit,omitempty" mapstructure:"unit"`
}

// Step is one timed stage of a recipe.
type Step struct {
	Description string `json:"description" yaml:"description" mapstructure:"description"`

	// DurationMinutes may be fractional (e.g. 0.5 for thirty seconds).
	DurationMinutes float64 `json:"duration_minutes" yaml:"duration_minutes" mapstructure:"duration_minutes"`

	Kind StepKind `json:"kind" yaml:"kind" mapstructure:"kind"`
}

// DurationSec converts the step duration to whole seconds.
// Negative durations are treated as zero.
func (s Step) DurationSec() int {
	sec := math.Round(s.DurationMinutes * 60)
	if sec <= 0 {
		return 0
	}
	return int(sec)
}

// Recipe is the read-only input of a cooking session.
// Recipes are never mutated while a session for them is live.
type Recipe struct {
	ID          string       `json:"id" yaml:"id" mapstructure:"id"`
	Title       string       `json:"title" yaml:"title" mapstructure:"title"`
	Cuisine     string       `json:"cuisine,omitempty" yaml:"cuisine,omitempty" mapstructure:"cuisine"`
	Difficulty  Difficulty   `json:"difficulty,omitempty" yaml:"difficulty,omitempty" mapstructure:"difficulty"`
	Ingredients []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty" mapstructure:"ingredients"`
	Steps       []Step       `json:"steps" yaml:"steps" mapstructure:"steps"`
	Favorite    bool         `json:"favorite,omitempty" yaml:"favorite,omitempty" mapstructure:"favorite"`

	CreatedAt time.Time `json:"created_at" yaml:"-" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" mapstructure:"-"`
}

// TotalDurationSec is the sum of every step duration.
func (r Recipe) TotalDurationSec() int {
	total := 0
	for _, s := range r.Steps {
		total += s.DurationSec()
	}
	return total
}

// TotalMinutes is the unrounded sum of step durations, used for sorting.
func (r Recipe) TotalMinutes() float64 {
	total := 0.0
	for _, s := range r.Steps {
		total += s.DurationMinutes
	}
	return total
}

// StepAt returns the step at index i, if any.
func (r Recipe) StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(r.Steps) {
		return Step{}, false
	}
	return r.Steps[i], true
}

// Clone returns a deep copy so callers can't mutate stored slices.
func (r Recipe) Clone() Recipe {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	}
	if r.Steps != nil {
		out.Steps = append([]Step(nil), r.Steps...)
	}
	return out
}
