package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed replica can hold a recipe lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Book orchestrates recipe edits on top of a RecipeStore.
// Read-modify-write operations on one recipe are serialized in process and,
// with a DistributedLocker, across replicas. Locks are reference counted and
// dropped once unused.
type Book struct {
	store ports.RecipeStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures the Book.
type Option func(*Book)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Book) {
		b.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(b *Book) {
		b.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Book.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Book) {
		b.logger = logger
	}
}

// WithClock overrides the clock used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Book) {
		b.now = now
	}
}

// WithIDGenerator overrides the ID assigned to recipes saved without one.
func WithIDGenerator(fn func() string) Option {
	return func(b *Book) {
		b.newID = fn
	}
}

// NewBook creates a Book over store.
func NewBook(store ports.RecipeStore, opts ...Option) *Book {
	b := &Book{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store returns the underlying recipe store.
func (b *Book) Store() ports.RecipeStore {
	return b.store
}

// Get delegates to the store.
func (b *Book) Get(ctx context.Context, id string) (domain.Recipe, error) {
	return b.store.Get(ctx, id)
}

// List delegates to the store.
func (b *Book) List(ctx context.Context) ([]domain.Recipe, error) {
	return b.store.List(ctx)
}

// Guard runs under the recipe lock before a write. A non-nil error aborts the write.
type Guard func(ctx context.Context, id string) error

// Save creates or updates a recipe and returns what was stored.
// A recipe without ID gets a fresh one. New recipes are stamped with CreatedAt
// (unless they carry one) and every save refreshes UpdatedAt; CreatedAt of an
// existing recipe is never overwritten.
func (b *Book) Save(ctx context.Context, recipe domain.Recipe, guards ...Guard) (domain.Recipe, error) {
	if recipe.ID == "" {
		recipe.ID = b.newID()
	}

	err := b.WithLock(ctx, recipe.ID, func(ctx context.Context) error {
		for _, guard := range guards {
			if err := guard(ctx, recipe.ID); err != nil {
				return err
			}
		}
		now := b.now().UTC()

		existing, err := b.store.Get(ctx, recipe.ID)
		switch {
		case err == nil:
			recipe.CreatedAt = existing.CreatedAt
		case errors.Is(err, domain.ErrRecipeNotFound):
			if recipe.CreatedAt.IsZero() {
				recipe.CreatedAt = now
			}
		default:
			return fmt.Errorf("failed to check recipe existence: %w", err)
		}
		recipe.UpdatedAt = now

		return b.store.Save(ctx, recipe)
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Delete removes a recipe. Each of onDeleted runs under the recipe lock once
// the store delete succeeded.
func (b *Book) Delete(ctx context.Context, id string, onDeleted ...func(id string)) error {
	return b.WithLock(ctx, id, func(ctx context.Context) error {
		if err := b.store.Delete(ctx, id); err != nil {
			return err
		}
		for _, fn := range onDeleted {
			fn(id)
		}
		return nil
	})
}

// ToggleFavorite flips the favorite flag and returns the updated recipe.
func (b *Book) ToggleFavorite(ctx context.Context, id string) (domain.Recipe, error) {
	var recipe domain.Recipe
	err := b.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		recipe, err = b.store.Get(ctx, id)
		if err != nil {
			return err
		}
		recipe.Favorite = !recipe.Favorite
		recipe.UpdatedAt = b.now().UTC()
		return b.store.Save(ctx, recipe)
	})
	return recipe, err
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (b *Book) acquire(id string) *lockEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.locks[id]
	if !exists {
		entry = &lockEntry{}
		b.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (b *Book) release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(b.locks, id)
	}
}

// activeLocks reports how many lock entries are alive.
func (b *Book) activeLocks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.locks)
}

// WithLock executes fn while holding the lock for the recipe.
func (b *Book) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := b.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		b.release(id)
	}()

	if b.locker != nil {
		unlock, err := b.locker.Lock(ctx, "recipe:"+id, b.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				b.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"recipe_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
