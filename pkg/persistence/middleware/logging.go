package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
)

// NewLoggingMiddleware logs writes at debug level and failures at warn level.
// Missing recipes are expected and not logged.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.RecipeStore) ports.RecipeStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

type loggingMiddleware struct {
	next   ports.RecipeStore
	logger *slog.Logger
}

func (m *loggingMiddleware) failed(op, id string, err error) {
	if err == nil || errors.Is(err, domain.ErrRecipeNotFound) {
		return
	}
	m.logger.Warn("Recipe store failed", "op", op, "recipe_id", id, "err", err)
}

func (m *loggingMiddleware) Get(ctx context.Context, id string) (domain.Recipe, error) {
	r, err := m.next.Get(ctx, id)
	m.failed("get", id, err)
	return r, err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]domain.Recipe, error) {
	list, err := m.next.List(ctx)
	m.failed("list", "", err)
	return list, err
}

func (m *loggingMiddleware) Save(ctx context.Context, recipe domain.Recipe) error {
	err := m.next.Save(ctx, recipe)
	if err == nil {
		m.logger.Debug("Recipe saved", "recipe_id", recipe.ID, "steps", len(recipe.Steps))
	}
	m.failed("save", recipe.ID, err)
	return err
}

func (m *loggingMiddleware) Delete(ctx context.Context, id string) error {
	err := m.next.Delete(ctx, id)
	if err == nil {
		m.logger.Debug("Recipe deleted", "recipe_id", id)
	}
	m.failed("delete", id, err)
	return err
}
