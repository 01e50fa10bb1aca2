package ports

import (
	"context"

	"github.com/aretw0/mise/pkg/domain"
)

// RecipeStore defines the interface for persisting recipes.
// Implementations keep recipes in insertion order; re-saving an existing
// recipe replaces it in place.
type RecipeStore interface {
	// Get retrieves a recipe by ID.
	// Returns domain.ErrRecipeNotFound if the recipe does not exist.
	Get(ctx context.Context, id string) (domain.Recipe, error)

	// List returns every recipe in insertion order.
	List(ctx context.Context) ([]domain.Recipe, error)

	// Save inserts or replaces the recipe keyed by recipe.ID.
	Save(ctx context.Context, recipe domain.Recipe) error

	// Delete removes a recipe.
	// Returns domain.ErrRecipeNotFound if the recipe does not exist.
	Delete(ctx context.Context, id string) error
}
