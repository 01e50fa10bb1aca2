// Package sqlite provides a SQLite-backed recipe store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/mise/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/mise/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.RecipeStore on a SQLite database.
// Insertion order is the autoincrement sequence; upserts keep it.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite recipe store and applies embedded migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const selectColumns = `id, title, cuisine, difficulty, favorite, ingredients, steps, created_at, updated_at`

// Get returns one recipe by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Recipe, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

// List returns every recipe in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Recipe, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+selectColumns+` FROM recipes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []domain.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return recipes, nil
}

// Save inserts the recipe or updates it in place.
func (s *Store) Save(ctx context.Context, recipe domain.Recipe) error {
	if recipe.ID == "" {
		return fmt.Errorf("recipe id is required")
	}

	ingredients, err := json.Marshal(orEmpty(recipe.Ingredients))
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(orEmpty(recipe.Steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO recipes (id, title, cuisine, difficulty, favorite, ingredients, steps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   cuisine = excluded.cuisine,
		   difficulty = excluded.difficulty,
		   favorite = excluded.favorite,
		   ingredients = excluded.ingredients,
		   steps = excluded.steps,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		recipe.ID,
		recipe.Title,
		recipe.Cuisine,
		string(recipe.Difficulty),
		recipe.Favorite,
		string(ingredients),
		string(steps),
		toMillis(recipe.CreatedAt),
		toMillis(recipe.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	return nil
}

// Delete removes the recipe.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if n == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row scanner) (domain.Recipe, error) {
	var (
		r                  domain.Recipe
		difficulty         string
		ingredients, steps string
		created, updated   int64
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Cuisine, &difficulty, &r.Favorite, &ingredients, &steps, &created, &updated); err != nil {
		return domain.Recipe{}, err
	}
	r.Difficulty = domain.Difficulty(difficulty)
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)

	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode steps: %w", err)
	}
	if len(r.Ingredients) == 0 {
		r.Ingredients = nil
	}
	if len(r.Steps) == 0 {
		r.Steps = nil
	}
	return r, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
