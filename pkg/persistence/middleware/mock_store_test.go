package middleware_test

import (
	"context"
	"errors"

	"github.com/aretw0/mise/pkg/adapters/memory"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
)

var errBroken = errors.New("disk on fire")

// MockStore wraps the memory store and fails every call once broken.
type MockStore struct {
	*memory.Store
	broken bool
	calls  []string
}

func NewMockStore(seed ...domain.Recipe) *MockStore {
	return &MockStore{Store: memory.NewStore(seed...)}
}

func (s *MockStore) Get(ctx context.Context, id string) (domain.Recipe, error) {
	s.calls = append(s.calls, "get")
	if s.broken {
		return domain.Recipe{}, errBroken
	}
	return s.Store.Get(ctx, id)
}

func (s *MockStore) Save(ctx context.Context, recipe domain.Recipe) error {
	s.calls = append(s.calls, "save")
	if s.broken {
		return errBroken
	}
	return s.Store.Save(ctx, recipe)
}

var _ ports.RecipeStore = (*MockStore)(nil)
