package process

import (
	"slices"

	"github.com/aretw0/mise/pkg/domain"
)

// Hook is a local command run when a session event of one of the listed types happens.
type Hook struct {
	Name    string             `yaml:"name" json:"name"`
	On      []domain.EventType `yaml:"on" json:"on"`
	Command string             `yaml:"command" json:"command"`
	Args    []string           `yaml:"args" json:"args"`
	Env     map[string]string  `yaml:"env" json:"env"`
}

// Matches reports whether the hook subscribes to t. A hook without event
// types fires on step advances and endings only; ticks would be far too noisy.
func (h Hook) Matches(t domain.EventType) bool {
	if len(h.On) == 0 {
		return t == domain.EventAdvanced || t == domain.EventEnded
	}
	return slices.Contains(h.On, t)
}
