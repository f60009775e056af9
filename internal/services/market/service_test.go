package market

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brstocks/mercado/internal/cache"
	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/models"
	"github.com/brstocks/mercado/internal/ratelimit"
)

type mockProvider struct {
	quoteCalls   atomic.Int32
	quoteFn      func(symbol string) (*models.StockData, error)
	historyFn    func(symbol, period, interval string) ([]models.Bar, error)
	screenFn     func(category string, limit int) ([]*models.ScreenResult, error)
	searchFn     func(query string, limit int) ([]*models.SearchResult, error)
	fundamentals func(symbol string) (*models.Fundamentals, error)
}

func (m *mockProvider) GetQuote(_ context.Context, symbol string) (*models.StockData, error) {
	m.quoteCalls.Add(1)
	if m.quoteFn != nil {
		return m.quoteFn(symbol)
	}
	return &models.StockData{Symbol: symbol, Price: 10, LastUpdated: time.Now()}, nil
}

func (m *mockProvider) GetHistory(_ context.Context, symbol, period, interval string) ([]models.Bar, error) {
	if m.historyFn != nil {
		return m.historyFn(symbol, period, interval)
	}
	return nil, nil
}

func (m *mockProvider) GetFundamentals(_ context.Context, symbol string) (*models.Fundamentals, error) {
	if m.fundamentals != nil {
		return m.fundamentals(symbol)
	}
	return &models.Fundamentals{Symbol: symbol}, nil
}

func (m *mockProvider) Search(_ context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(query, limit)
	}
	return nil, nil
}

func (m *mockProvider) Screen(_ context.Context, category string, limit int) ([]*models.ScreenResult, error) {
	if m.screenFn != nil {
		return m.screenFn(category, limit)
	}
	return nil, nil
}

type mockCatalog struct {
	symbols map[string]models.CatalogSymbol
}

func (m *mockCatalog) Upsert(_ context.Context, symbols []models.CatalogSymbol) error {
	for _, s := range symbols {
		m.symbols[s.Symbol] = s
	}
	return nil
}

func (m *mockCatalog) Get(_ context.Context, symbol string) (*models.CatalogSymbol, error) {
	if s, ok := m.symbols[symbol]; ok {
		return &s, nil
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockCatalog) Search(_ context.Context, query string, limit int) ([]models.CatalogSymbol, error) {
	var out []models.CatalogSymbol
	for _, s := range m.symbols {
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockCatalog) Count(_ context.Context) (int, error) { return len(m.symbols), nil }
func (m *mockCatalog) Close() error                         { return nil }

func newTestService(provider *mockProvider, maxRequests int) *Service {
	return NewService(
		provider,
		cache.New(),
		ratelimit.New(maxRequests, time.Minute),
		&mockCatalog{symbols: map[string]models.CatalogSymbol{
			"PETR4.SA": {Symbol: "PETR4.SA", Name: "Petrobras PN"},
			"PETR3.SA": {Symbol: "PETR3.SA", Name: "Petrobras ON"},
		}},
		common.CacheConfig{TTLSeconds: 300, TrendingTTLSeconds: 60, ValidationFactor: 4},
		common.NewSilentLogger(),
	)
}

func TestGetStockData_FetchThenCache(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, 100)
	ctx := context.Background()

	first, err := svc.GetStockData(ctx, "client", "PETR4", "", "")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "PETR4.SA", first.Symbol, "symbol normalized before fetch")

	second, err := svc.GetStockData(ctx, "client", "PETR4", "", "")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), provider.quoteCalls.Load(), "second call must be served from cache")
}

func TestGetStockData_EmptySymbol(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)
	_, err := svc.GetStockData(context.Background(), "client", "  ", "", "")

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestGetStockData_RateLimited(t *testing.T) {
	svc := newTestService(&mockProvider{}, 1)
	ctx := context.Background()

	_, err := svc.GetStockData(ctx, "client", "PETR4", "", "")
	require.NoError(t, err)

	_, err = svc.GetStockData(ctx, "client", "VALE3", "", "")
	var rerr *models.RateLimitError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 1, rerr.Limit)

	// a different caller still has budget
	_, err = svc.GetStockData(ctx, "other", "VALE3", "", "")
	assert.NoError(t, err)
}

func TestGetStockData_ProviderErrorPassesThrough(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			return nil, models.NewProviderError("yahoo", symbol, "boom", nil)
		},
	}
	svc := newTestService(provider, 100)

	_, err := svc.GetStockData(context.Background(), "client", "PETR4", "", "")
	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "PETR4.SA", perr.Symbol)
}

func TestGetStockData_HistoryFailureIsSoft(t *testing.T) {
	provider := &mockProvider{
		historyFn: func(symbol, period, interval string) ([]models.Bar, error) {
			return nil, models.NewProviderError("yahoo", symbol, "chart down", nil)
		},
	}
	svc := newTestService(provider, 100)

	data, err := svc.GetStockData(context.Background(), "client", "PETR4", "1mo", "1d")
	require.NoError(t, err, "quote should survive a history failure")
	assert.Empty(t, data.History)
}

func TestGetBulkData_PartialFailure(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			if symbol == "FAIL4.SA" {
				return nil, models.NewProviderError("yahoo", symbol, "no data", nil)
			}
			return &models.StockData{Symbol: symbol, Price: 10}, nil
		},
	}
	svc := newTestService(provider, 100)

	result, err := svc.GetBulkData(context.Background(), "client", []string{"PETR4", "FAIL4", "VALE3"}, "", "")
	require.NoError(t, err, "one failed symbol must not abort the batch")

	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 2, result.Fetched)
	assert.Contains(t, result.Succeeded, "PETR4.SA")
	assert.Contains(t, result.Succeeded, "VALE3.SA")
	assert.Contains(t, result.Failed, "FAIL4.SA")
	assert.NotEmpty(t, result.RequestID)
}

func TestGetBulkData_DeduplicatesSymbols(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, 100)

	result, err := svc.GetBulkData(context.Background(), "client", []string{"PETR4", "petr4", "PETR4.SA"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Requested)
}

func TestGetBulkData_SingleRateDebit(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, 1)

	_, err := svc.GetBulkData(context.Background(), "client", []string{"PETR4", "VALE3", "ITUB4"}, "", "")
	require.NoError(t, err, "a bulk request debits the budget once")
}

func TestValidateTicker_Valid(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			return &models.StockData{Symbol: symbol, Name: "Petrobras PN"}, nil
		},
	}
	svc := newTestService(provider, 100)

	result, err := svc.ValidateTicker(context.Background(), "client", "petr4")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "PETR4.SA", result.Normalized)
	assert.Equal(t, "Petrobras PN", result.Name)
}

func TestValidateTicker_CatalogFallback(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			return nil, models.NewProviderError("yahoo", symbol, "upstream down", nil)
		},
	}
	svc := newTestService(provider, 100)

	result, err := svc.ValidateTicker(context.Background(), "client", "PETR4")
	require.NoError(t, err)
	assert.True(t, result.Valid, "known catalog symbol stays valid during outages")
	assert.Equal(t, "Petrobras PN", result.Name)
}

func TestValidateTicker_InvalidWithSuggestions(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			return nil, models.NewProviderError("yahoo", symbol, "not found", nil)
		},
	}
	svc := newTestService(provider, 100)

	result, err := svc.ValidateTicker(context.Background(), "client", "ZZZZ9")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Suggestions)
}

func TestValidateTicker_CachedLongerThanQuotes(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, 100)
	ctx := context.Background()

	_, err := svc.ValidateTicker(ctx, "client", "PETR4")
	require.NoError(t, err)
	_, err = svc.ValidateTicker(ctx, "client", "PETR4")
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.quoteCalls.Load())
}

func TestGetTrending_FiltersAndSorts(t *testing.T) {
	provider := &mockProvider{
		screenFn: func(category string, limit int) ([]*models.ScreenResult, error) {
			assert.Equal(t, "most_actives_br", category, "empty market defaults to the BR screener")
			return []*models.ScreenResult{
				{Symbol: "A", ChangePct: 2.0},
				{Symbol: "B", ChangePct: -1.0},
				{Symbol: "C", ChangePct: 8.5},
				{Symbol: "D", ChangePct: 0},
			}, nil
		},
	}
	svc := newTestService(provider, 100)

	trending, err := svc.GetTrending(context.Background(), "client", "", 10)
	require.NoError(t, err)
	require.Len(t, trending, 2, "non-positive movers are dropped")
	assert.Equal(t, "C", trending[0].Symbol)
	assert.Equal(t, "A", trending[1].Symbol)
}

func TestGetTrending_MarketSelectsScreener(t *testing.T) {
	var categories []string
	provider := &mockProvider{
		screenFn: func(category string, limit int) ([]*models.ScreenResult, error) {
			categories = append(categories, category)
			return []*models.ScreenResult{{Symbol: "A", ChangePct: 1}}, nil
		},
	}
	svc := newTestService(provider, 100)
	ctx := context.Background()

	_, err := svc.GetTrending(ctx, "client", "br", 5)
	require.NoError(t, err)
	_, err = svc.GetTrending(ctx, "client", "US", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"most_actives_br", "most_actives"}, categories,
		"each market maps to its own screener, cached separately")
}

func TestGetTrending_UnknownMarket(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)

	_, err := svc.GetTrending(context.Background(), "client", "MOON", 10)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "market", verr.Field)
}

func TestScreen_UnknownCategoryRejected(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)

	_, err := svc.Screen(context.Background(), "client", "pump_and_dumps", models.ScreenOptions{Limit: 10})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestScreen_UnknownSortFieldRejected(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)

	_, err := svc.Screen(context.Background(), "client", "day_gainers", models.ScreenOptions{SortBy: "vibes"})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sort", verr.Field)
}

func TestScreen_SectorFilterAndSort(t *testing.T) {
	provider := &mockProvider{
		screenFn: func(category string, limit int) ([]*models.ScreenResult, error) {
			assert.Equal(t, 8, limit, "sector filtering over-fetches to fill the page")
			return []*models.ScreenResult{
				{Symbol: "PETR4.SA", Sector: "Energy", ChangePct: 1.2},
				{Symbol: "ITUB4.SA", Sector: "Financial Services", ChangePct: 3.0},
				{Symbol: "PRIO3.SA", Sector: "energy", ChangePct: 4.5},
				{Symbol: "VALE3.SA", Sector: "Basic Materials", ChangePct: 0.4},
			}, nil
		},
	}
	svc := newTestService(provider, 100)

	rows, err := svc.Screen(context.Background(), "client", "day_gainers", models.ScreenOptions{
		Limit:  2,
		Sector: "Energy",
		SortBy: "change_pct",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2, "only energy rows survive, case-insensitively")
	assert.Equal(t, "PRIO3.SA", rows[0].Symbol, "descending is the default sort order")
	assert.Equal(t, "PETR4.SA", rows[1].Symbol)
}

func TestScreen_SortAscending(t *testing.T) {
	provider := &mockProvider{
		screenFn: func(category string, limit int) ([]*models.ScreenResult, error) {
			return []*models.ScreenResult{
				{Symbol: "B", Price: 20},
				{Symbol: "A", Price: 5},
				{Symbol: "C", Price: 12},
			}, nil
		},
	}
	svc := newTestService(provider, 100)

	rows, err := svc.Screen(context.Background(), "client", "day_gainers", models.ScreenOptions{
		SortBy:  "price",
		SortAsc: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{5, 12, 20}, []float64{rows[0].Price, rows[1].Price, rows[2].Price})
}

func TestScreen_OptionsKeyedSeparatelyInCache(t *testing.T) {
	var calls int
	provider := &mockProvider{
		screenFn: func(category string, limit int) ([]*models.ScreenResult, error) {
			calls++
			return []*models.ScreenResult{{Symbol: "A", Sector: "Energy"}}, nil
		},
	}
	svc := newTestService(provider, 100)
	ctx := context.Background()

	_, err := svc.Screen(ctx, "client", "day_gainers", models.ScreenOptions{Limit: 10})
	require.NoError(t, err)
	_, err = svc.Screen(ctx, "client", "day_gainers", models.ScreenOptions{Limit: 10, Sector: "Energy"})
	require.NoError(t, err)
	_, err = svc.Screen(ctx, "client", "day_gainers", models.ScreenOptions{Limit: 10, Sector: "Energy"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "distinct filter options must not share a cache entry")
}

func TestScreenCategories_SortedWhitelist(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)
	categories := svc.ScreenCategories()
	assert.Contains(t, categories, "day_gainers")
	assert.Contains(t, categories, "most_actives")
	for i := 1; i < len(categories); i++ {
		assert.Less(t, categories[i-1], categories[i])
	}
}

func TestMarketOverview_SkipsFailedSymbols(t *testing.T) {
	provider := &mockProvider{
		quoteFn: func(symbol string) (*models.StockData, error) {
			if symbol == "^BVSP" {
				return nil, models.NewProviderError("yahoo", symbol, "down", nil)
			}
			return &models.StockData{Symbol: symbol, Price: 1}, nil
		},
	}
	svc := newTestService(provider, 100)

	overview, err := svc.MarketOverview(context.Background(), "client", "indices")
	require.NoError(t, err)
	assert.Equal(t, "indices", overview.Category)
	assert.Len(t, overview.Quotes, 3, "the failed index is skipped")
}

func TestMarketOverview_UnknownCategory(t *testing.T) {
	svc := newTestService(&mockProvider{}, 100)
	_, err := svc.MarketOverview(context.Background(), "client", "crypto")
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestPeriodPerformance(t *testing.T) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	provider := &mockProvider{
		historyFn: func(symbol, period, interval string) ([]models.Bar, error) {
			return []models.Bar{
				{Date: now.AddDate(0, 0, -365), Close: 100},
				{Date: now.AddDate(0, 0, -30), Close: 110},
				{Date: now.AddDate(0, 0, -1), Close: 120},
				{Date: now, Close: 121},
			}, nil
		},
	}
	svc := newTestService(provider, 100)

	perf, err := svc.PeriodPerformance(context.Background(), "client", "PETR4")
	require.NoError(t, err)
	assert.Equal(t, 121.0, perf.Price)
	assert.InDelta(t, 21.0, perf.Periods["1Y"], 0.001)
	assert.InDelta(t, 10.0, perf.Periods["1M"], 0.001)
	assert.InDelta(t, (121.0-120.0)/120.0*100, perf.Periods["1D"], 0.001)
}

func TestHealthAndClearCache(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, 100)
	ctx := context.Background()

	_, err := svc.GetStockData(ctx, "client", "PETR4", "", "")
	require.NoError(t, err)

	health := svc.Health(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.CacheEntries)

	svc.ClearCache()
	assert.Equal(t, 0, svc.Health(ctx).CacheEntries)
}
