package recipes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/mise/pkg/adapters/memory"
	"github.com/aretw0/mise/pkg/adapters/redis"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
	"github.com/aretw0/mise/pkg/recipes"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency to provoke lost updates if locking is missing.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Get(ctx context.Context, id string) (domain.Recipe, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Get(ctx, id)
}

func (s slowStore) Save(ctx context.Context, r domain.Recipe) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, r)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(ports.UnlockFunc)
	return unlock, args.Error(1)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBook_SaveStampsNewRecipes(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	book := recipes.NewBook(memory.NewStore(),
		recipes.WithClock(fixedClock(created)),
		recipes.WithIDGenerator(func() string { return "generated" }),
	)

	saved, err := book.Save(context.Background(), domain.Recipe{Title: "Toast"})
	require.NoError(t, err)

	assert.Equal(t, "generated", saved.ID)
	assert.Equal(t, created, saved.CreatedAt)
	assert.Equal(t, created, saved.UpdatedAt)

	stored, err := book.Get(context.Background(), "generated")
	require.NoError(t, err)
	assert.Equal(t, "Toast", stored.Title)
}

func TestBook_SaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	book := recipes.NewBook(memory.NewStore(), recipes.WithClock(func() time.Time { return now }))

	first, err := book.Save(ctx, domain.Recipe{ID: "toast", Title: "Toast"})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	second, err := book.Save(ctx, domain.Recipe{ID: "toast", Title: "Better Toast", CreatedAt: now.Add(24 * time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, now, second.UpdatedAt)
	assert.Equal(t, "Better Toast", second.Title)
}

func TestBook_SaveKeepsImportedCreatedAt(t *testing.T) {
	imported := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	book := recipes.NewBook(memory.NewStore())

	saved, err := book.Save(context.Background(), domain.Recipe{ID: "old", CreatedAt: imported})
	require.NoError(t, err)
	assert.Equal(t, imported, saved.CreatedAt)
	assert.True(t, saved.UpdatedAt.After(imported))
}

func TestBook_ToggleFavorite(t *testing.T) {
	ctx := context.Background()
	book := recipes.NewBook(memory.NewStore(domain.Recipe{ID: "soup"}))

	r, err := book.ToggleFavorite(ctx, "soup")
	require.NoError(t, err)
	assert.True(t, r.Favorite)

	r, err = book.ToggleFavorite(ctx, "soup")
	require.NoError(t, err)
	assert.False(t, r.Favorite)

	_, err = book.ToggleFavorite(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestBook_SaveGuards(t *testing.T) {
	ctx := context.Background()
	book := recipes.NewBook(memory.NewStore(domain.Recipe{ID: "soup", Title: "Soup"}))
	busy := errors.New("busy")

	var seen []string
	_, err := book.Save(ctx, domain.Recipe{ID: "soup", Title: "Stew"}, func(_ context.Context, id string) error {
		seen = append(seen, id)
		return busy
	})
	assert.ErrorIs(t, err, busy)
	assert.Equal(t, []string{"soup"}, seen)

	stored, err := book.Get(ctx, "soup")
	require.NoError(t, err)
	assert.Equal(t, "Soup", stored.Title, "a failing guard leaves the store alone")

	_, err = book.Save(ctx, domain.Recipe{ID: "soup", Title: "Stew"}, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	stored, err = book.Get(ctx, "soup")
	require.NoError(t, err)
	assert.Equal(t, "Stew", stored.Title)
}

func TestBook_Delete(t *testing.T) {
	ctx := context.Background()
	book := recipes.NewBook(memory.NewStore(domain.Recipe{ID: "soup"}))

	var deleted []string
	onDeleted := func(id string) { deleted = append(deleted, id) }

	require.NoError(t, book.Delete(ctx, "soup", onDeleted))
	assert.ErrorIs(t, book.Delete(ctx, "soup", onDeleted), domain.ErrRecipeNotFound)
	assert.Equal(t, []string{"soup"}, deleted, "hooks only run after a successful delete")

	list, err := book.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBook_SerializesEdits(t *testing.T) {
	ctx := context.Background()
	book := recipes.NewBook(slowStore{memory.NewStore(domain.Recipe{ID: "soup"})})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := book.ToggleFavorite(ctx, "soup")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	r, err := book.Get(ctx, "soup")
	require.NoError(t, err)
	assert.False(t, r.Favorite, "an even number of toggles must cancel out")
	assert.Equal(t, 0, book.ActiveLocks(), "lock entries are garbage collected")
}

func TestBook_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := memory.NewStore(domain.Recipe{ID: "soup"})
	replicaA := recipes.NewBook(store, recipes.WithLocker(redis.NewLocker(client, "test:")))
	replicaB := recipes.NewBook(store, recipes.WithLocker(redis.NewLocker(client, "test:")))

	var wg sync.WaitGroup
	for _, book := range []*recipes.Book{replicaA, replicaB, replicaA, replicaB} {
		wg.Add(1)
		go func(b *recipes.Book) {
			defer wg.Done()
			_, err := b.ToggleFavorite(context.Background(), "soup")
			assert.NoError(t, err)
		}(book)
	}
	wg.Wait()

	r, err := store.Get(context.Background(), "soup")
	require.NoError(t, err)
	assert.False(t, r.Favorite)
	assert.False(t, mr.Exists("test:lock:recipe:soup"))
}

func TestBook_LockFailure(t *testing.T) {
	locker := new(mockLocker)
	locker.On("Lock", mock.Anything, "recipe:soup", recipes.DefaultLockTTL).
		Return(nil, errors.New("redis down"))

	book := recipes.NewBook(memory.NewStore(domain.Recipe{ID: "soup"}), recipes.WithLocker(locker))

	_, err := book.ToggleFavorite(context.Background(), "soup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distributed lock")
	locker.AssertExpectations(t)
}
