package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecipeStoreContract runs a suite of tests to verify that a RecipeStore implementation
// adheres to the defined interface contract.
func RunRecipeStoreContract(t *testing.T, store RecipeStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000")

	sample := func(suffix string) domain.Recipe {
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		return domain.Recipe{
			ID:         prefix + "-" + suffix,
			Title:      "Recipe " + suffix,
			Cuisine:    "Italian",
			Difficulty: domain.DifficultyMedium,
			Ingredients: []domain.Ingredient{
				{Name: "Flour", Quantity: 0.5, Unit: "kg"},
			},
			Steps: []domain.Step{
				{Description: "Knead", DurationMinutes: 1.5, Kind: domain.StepInstruction},
				{Description: "Bake", DurationMinutes: 20, Kind: domain.StepCooking},
			},
			CreatedAt: created,
			UpdatedAt: created.Add(time.Minute),
		}
	}

	ours := func(t *testing.T) []string {
		all, err := store.List(ctx)
		require.NoError(t, err)
		var ids []string
		for _, r := range all {
			if len(r.ID) > len(prefix) && r.ID[:len(prefix)] == prefix {
				ids = append(ids, r.ID)
			}
		}
		return ids
	}

	t.Run("Save and Get", func(t *testing.T) {
		recipe := sample("roundtrip")
		recipe.Favorite = true

		require.NoError(t, store.Save(ctx, recipe), "Save should not return error")
		defer func() { _ = store.Delete(ctx, recipe.ID) }()

		loaded, err := store.Get(ctx, recipe.ID)
		require.NoError(t, err, "Get should not return error")
		assertSameRecipe(t, recipe, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})

	t.Run("List keeps insertion order", func(t *testing.T) {
		var want []string
		for _, suffix := range []string{"c", "a", "b"} {
			r := sample("order-" + suffix)
			require.NoError(t, store.Save(ctx, r))
			want = append(want, r.ID)
		}
		defer func() {
			for _, id := range want {
				_ = store.Delete(ctx, id)
			}
		}()

		assert.Equal(t, want, ours(t))
	})

	t.Run("Save replaces in place", func(t *testing.T) {
		first, second := sample("upsert-1"), sample("upsert-2")
		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))
		defer func() {
			_ = store.Delete(ctx, first.ID)
			_ = store.Delete(ctx, second.ID)
		}()

		first.Title = "Renamed"
		first.Steps = first.Steps[:1]
		require.NoError(t, store.Save(ctx, first))

		loaded, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Title)
		assert.Len(t, loaded.Steps, 1)
		assert.Equal(t, []string{first.ID, second.ID}, ours(t))
	})

	t.Run("Delete", func(t *testing.T) {
		recipe := sample("delete")
		require.NoError(t, store.Save(ctx, recipe))

		require.NoError(t, store.Delete(ctx, recipe.ID), "Delete should not return error")

		_, err := store.Get(ctx, recipe.ID)
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound, "Get after Delete should return ErrRecipeNotFound")
		assert.Empty(t, ours(t))

		err = store.Delete(ctx, recipe.ID)
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})

	t.Run("Returned values are copies", func(t *testing.T) {
		recipe := sample("copy")
		require.NoError(t, store.Save(ctx, recipe))
		defer func() { _ = store.Delete(ctx, recipe.ID) }()

		loaded, err := store.Get(ctx, recipe.ID)
		require.NoError(t, err)
		loaded.Steps[0].Description = "mutated"

		again, err := store.Get(ctx, recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Knead", again.Steps[0].Description)
	})
}

func assertSameRecipe(t *testing.T, want, got domain.Recipe) {
	t.Helper()
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), fmt.Sprintf("CreatedAt: want %v, got %v", want.CreatedAt, got.CreatedAt))
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), fmt.Sprintf("UpdatedAt: want %v, got %v", want.UpdatedAt, got.UpdatedAt))
	want.CreatedAt, want.UpdatedAt = time.Time{}, time.Time{}
	got.CreatedAt, got.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}
