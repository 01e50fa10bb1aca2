package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/domain"
)

// DefaultFileName is the versioned name of the recipe collection file.
const DefaultFileName = "recipes.v1.json"

// Store implements ports.RecipeStore as a single JSON array on disk.
// Every mutation rewrites the whole file atomically.
type Store struct {
	Path string

	mu     sync.Mutex
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures the logger used to report unreadable collections.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store backed by path.
// If path is empty, it defaults to ".mise/recipes.v1.json". A directory path
// gets DefaultFileName appended.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = filepath.Join(".mise", DefaultFileName)
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}

	s := &Store{Path: path, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a recipe by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.load()
	if err != nil {
		return domain.Recipe{}, err
	}
	i := indexOf(recipes, id)
	if i < 0 {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	return recipes[i], nil
}

// List returns every recipe in file order.
func (s *Store) List(ctx context.Context) ([]domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save inserts or replaces the recipe and rewrites the file.
func (s *Store) Save(ctx context.Context, recipe domain.Recipe) error {
	if recipe.ID == "" {
		return fmt.Errorf("recipe id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.load()
	if err != nil {
		return err
	}
	if i := indexOf(recipes, recipe.ID); i >= 0 {
		recipes[i] = recipe.Clone()
	} else {
		recipes = append(recipes, recipe.Clone())
	}
	return s.write(recipes)
}

// Delete removes the recipe and rewrites the file.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(recipes, id)
	if i < 0 {
		return domain.ErrRecipeNotFound
	}
	return s.write(slices.Delete(recipes, i, i+1))
}

// load reads the collection. A missing file is an empty collection, and so is
// a file that does not hold a JSON array; entries without an ID are skipped.
func (s *Store) load() ([]domain.Recipe, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Recipe{}, nil
		}
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("Recipe file is unreadable, starting empty", "path", s.Path, "err", err)
		return []domain.Recipe{}, nil
	}

	recipes := make([]domain.Recipe, 0, len(raw))
	for i, entry := range raw {
		var r domain.Recipe
		if err := json.Unmarshal(entry, &r); err != nil || r.ID == "" {
			s.logger.Warn("Skipping malformed recipe entry", "path", s.Path, "index", i, "err", err)
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// write persists the collection atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(recipes []domain.Recipe) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure recipe directory: %w", err)
	}

	data, err := json.MarshalIndent(recipes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipes: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-recipes-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(s.Path); err == nil {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing recipe file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file to recipe file: %w", err)
	}
	return nil
}

func indexOf(recipes []domain.Recipe, id string) int {
	return slices.IndexFunc(recipes, func(r domain.Recipe) bool { return r.ID == id })
}
