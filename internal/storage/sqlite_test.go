package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestSaveAndGetMapping(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	mapping := &model.MerchantMapping{
		Merchant:    "coursera",
		Category:    "Education",
		Source:      model.SourceLearned,
		LastUpdated: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UseCount:    1,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))

	got, err := store.GetMapping(ctx, "coursera")
	require.NoError(t, err)
	assert.Equal(t, "coursera", got.Merchant)
	assert.Equal(t, "Education", got.Category)
	assert.Equal(t, model.SourceLearned, got.Source)
	assert.Equal(t, 1, got.UseCount)
}

func TestSaveMapping_UpsertReplacesCategory(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first := &model.MerchantMapping{
		Merchant: "coursera",
		Category: "Entertainment",
		Source:   model.SourceLearned,
	}
	require.NoError(t, store.SaveMapping(ctx, first))

	second := &model.MerchantMapping{
		Merchant: "coursera",
		Category: "Education",
		Source:   model.SourceLearned,
		UseCount: 2,
	}
	require.NoError(t, store.SaveMapping(ctx, second))

	got, err := store.GetMapping(ctx, "coursera")
	require.NoError(t, err)
	assert.Equal(t, "Education", got.Category)
	assert.Equal(t, 2, got.UseCount)

	mappings, err := store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestSaveMapping_Validation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, store.SaveMapping(ctx, nil))
	assert.Error(t, store.SaveMapping(ctx, &model.MerchantMapping{Category: "Education"}))
	assert.Error(t, store.SaveMapping(ctx, &model.MerchantMapping{Merchant: "coursera"}))
}

func TestGetMapping_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetMapping(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListMappings_OrderedByMerchant(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, merchant := range []string{"zelle", "acme", "coursera"} {
		require.NoError(t, store.SaveMapping(ctx, &model.MerchantMapping{
			Merchant: merchant,
			Category: "Education",
			Source:   model.SourceLearned,
		}))
	}

	mappings, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "acme", mappings[0].Merchant)
	assert.Equal(t, "coursera", mappings[1].Merchant)
	assert.Equal(t, "zelle", mappings[2].Merchant)
}

func TestDeleteMapping(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &model.MerchantMapping{
		Merchant: "coursera",
		Category: "Education",
		Source:   model.SourceLearned,
	}))

	require.NoError(t, store.DeleteMapping(ctx, "coursera"))

	_, err := store.GetMapping(ctx, "coursera")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteMapping_NotFound(t *testing.T) {
	store := setupTestDB(t)

	err := store.DeleteMapping(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	assert.NoError(t, store.Migrate(context.Background()))
}
