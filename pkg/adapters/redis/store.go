package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/mise/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "mise:"

// Store implements ports.RecipeStore using Redis.
// Each recipe is a JSON string; a sorted set scored by an insertion counter
// keeps the collection order.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for recipes.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to build a Locker on the same connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + "recipe:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) seqKey() string {
	return s.prefix + "seq"
}

// Save persists the recipe. New recipes are appended to the index; existing
// ones keep their position.
func (s *Store) Save(ctx context.Context, recipe domain.Recipe) error {
	if recipe.ID == "" {
		return fmt.Errorf("recipe id cannot be empty")
	}

	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	var seq int64
	err = s.client.ZScore(ctx, s.indexKey(), recipe.ID).Err()
	switch {
	case errors.Is(err, backend.Nil):
		seq, err = s.client.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate recipe position: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read recipe index: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(recipe.ID), data, 0)
	if seq > 0 {
		// NX keeps the first position when two writers race on a new recipe.
		pipe.ZAddNX(ctx, s.indexKey(), backend.Z{
			Score:  float64(seq),
			Member: recipe.ID,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the recipe from Redis.
func (s *Store) Get(ctx context.Context, id string) (domain.Recipe, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Recipe{}, domain.ErrRecipeNotFound
		}
		return domain.Recipe{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(val)
}

// List returns recipes in index order. Index entries whose value is gone are skipped.
func (s *Store) List(ctx context.Context) ([]domain.Recipe, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Recipe{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	recipes := make([]domain.Recipe, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decode(str)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Delete removes the recipe and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(val string) (domain.Recipe, error) {
	var r domain.Recipe
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return domain.Recipe{}, fmt.Errorf("failed to unmarshal recipe: %w", err)
	}
	return r, nil
}
