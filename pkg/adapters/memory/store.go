package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/mise/pkg/domain"
)

// Store implements ports.RecipeStore in memory.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	order []string
	data  map[string]domain.Recipe
}

// NewStore creates a new in-memory store, optionally seeded with recipes.
func NewStore(seed ...domain.Recipe) *Store {
	s := &Store{
		data: make(map[string]domain.Recipe),
	}
	for _, r := range seed {
		_ = s.Save(context.Background(), r)
	}
	return s
}

// Save inserts or replaces the recipe.
func (s *Store) Save(ctx context.Context, recipe domain.Recipe) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := recipe.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[recipe.ID]; !ok {
		s.order = append(s.order, recipe.ID)
	}
	s.data[recipe.ID] = copied
	return nil
}

// Get retrieves a copy of the recipe.
func (s *Store) Get(ctx context.Context, id string) (domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	return r.Clone(), nil
}

// List returns copies of every recipe in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Recipe, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Clone())
	}
	return out, nil
}

// Delete removes the recipe.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return domain.ErrRecipeNotFound
	}
	delete(s.data, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}
