package ports_test

import (
	"context"
	"slices"
	"testing"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
)

// sliceStore is the smallest RecipeStore honoring the contract.
type sliceStore struct {
	recipes []domain.Recipe
}

func (s *sliceStore) index(id string) int {
	return slices.IndexFunc(s.recipes, func(r domain.Recipe) bool { return r.ID == id })
}

func (s *sliceStore) Get(_ context.Context, id string) (domain.Recipe, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	return s.recipes[i].Clone(), nil
}

func (s *sliceStore) List(_ context.Context) ([]domain.Recipe, error) {
	out := make([]domain.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *sliceStore) Save(_ context.Context, recipe domain.Recipe) error {
	if i := s.index(recipe.ID); i >= 0 {
		s.recipes[i] = recipe.Clone()
		return nil
	}
	s.recipes = append(s.recipes, recipe.Clone())
	return nil
}

func (s *sliceStore) Delete(_ context.Context, id string) error {
	i := s.index(id)
	if i < 0 {
		return domain.ErrRecipeNotFound
	}
	s.recipes = slices.Delete(s.recipes, i, i+1)
	return nil
}

func TestRecipeStore_Contract(t *testing.T) {
	ports.RunRecipeStoreContract(t, &sliceStore{})
}
