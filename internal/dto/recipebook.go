package dto

import "github.com/aretw0/mise/pkg/domain"

// RecipeBook is the on-disk shape of an importable recipe collection.
// It uses "mapstructure" tags so YAML and JSON documents decode the same way.
type RecipeBook struct {
	Version string          `json:"version,omitempty" mapstructure:"version"`
	Recipes []domain.Recipe `json:"recipes" mapstructure:"recipes"`
}
