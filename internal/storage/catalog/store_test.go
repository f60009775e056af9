package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCatalog_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []models.CatalogSymbol{
		{Symbol: "petr4.sa", Name: "Petrobras PN", Sector: "Energy"},
	})
	require.NoError(t, err)

	sym, err := store.Get(ctx, "PETR4.SA")
	require.NoError(t, err)
	assert.Equal(t, "PETR4.SA", sym.Symbol, "symbols are stored uppercased")
	assert.Equal(t, "Petrobras PN", sym.Name)
}

func TestCatalog_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "NOPE4.SA")
	assert.Error(t, err)
}

func TestCatalog_SearchRanking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []models.CatalogSymbol{
		{Symbol: "PETR4.SA", Name: "Petrobras PN"},
		{Symbol: "PETR3.SA", Name: "Petrobras ON"},
		{Symbol: "PRIO3.SA", Name: "PetroRio ON"},
		{Symbol: "VALE3.SA", Name: "Vale ON"},
	}))

	results, err := store.Search(ctx, "PETR4", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "PETR4.SA", results[0].Symbol, "exact ticker match ranks first")

	results, err = store.Search(ctx, "petro", 10)
	require.NoError(t, err)
	// PETR3/PETR4 hit by name, PRIO3 by name too; VALE3 absent
	for _, r := range results {
		assert.NotEqual(t, "VALE3.SA", r.Symbol)
	}
}

func TestCatalog_SearchLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SeedIfEmpty(ctx))

	results, err := store.Search(ctx, "P", 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)
}

func TestCatalog_SeedIfEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedIfEmpty(ctx))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 30)

	// second seed is a no-op
	require.NoError(t, store.SeedIfEmpty(ctx))
	count2, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, count2)
}
