package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/mise/pkg/adapters/sqlite"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipes.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openTempStore(t)
	ports.RunRecipeStoreContract(t, store)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunRecipeStoreContract(t, store)
}

func TestSQLiteStore_ReopenKeepsDataAndOrder(t *testing.T) {
	ctx := context.Background()
	store, path := openTempStore(t)

	require.NoError(t, store.Save(ctx, domain.Recipe{ID: "z", Title: "Zucchini"}))
	require.NoError(t, store.Save(ctx, domain.Recipe{ID: "a", Title: "Apple"}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err, "migrations must be re-runnable")
	defer reopened.Close()

	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "z", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}
