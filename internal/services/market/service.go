// Package market orchestrates rate limiting, caching and upstream
// fetches for market data operations.
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brstocks/mercado/internal/cache"
	"github.com/brstocks/mercado/internal/clients/yahoo"
	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
	"github.com/brstocks/mercado/internal/ratelimit"
)

// screenCategories is the whitelist of predefined screener categories
var screenCategories = map[string]bool{
	"day_gainers":                true,
	"day_losers":                 true,
	"most_actives":               true,
	"undervalued_growth_stocks":  true,
	"growth_technology_stocks":   true,
	"aggressive_small_caps":      true,
	"small_cap_gainers":          true,
	"undervalued_large_caps":     true,
	"conservative_foreign_funds": true,
}

// trendingScreeners maps market codes onto the screener feeding trending
var trendingScreeners = map[string]string{
	"BR": "most_actives_br",
	"US": "most_actives",
}

// screenSortLess holds the comparators for client-side screener sorting
var screenSortLess = map[string]func(a, b *models.ScreenResult) bool{
	"symbol":     func(a, b *models.ScreenResult) bool { return a.Symbol < b.Symbol },
	"price":      func(a, b *models.ScreenResult) bool { return a.Price < b.Price },
	"change_pct": func(a, b *models.ScreenResult) bool { return a.ChangePct < b.ChangePct },
	"volume":     func(a, b *models.ScreenResult) bool { return a.Volume < b.Volume },
	"market_cap": func(a, b *models.ScreenResult) bool { return a.MarketCap < b.MarketCap },
}

// overviewSets maps overview categories onto fixed symbol groups
var overviewSets = map[string][]string{
	"indices":     {"^BVSP", "^GSPC", "^IXIC", "^DJI"},
	"currencies":  {"USDBRL=X", "EURBRL=X", "BTC-USD"},
	"commodities": {"CL=F", "GC=F", "SI=F"},
	"brazil":      {"PETR4.SA", "VALE3.SA", "ITUB4.SA", "BBDC4.SA", "ABEV3.SA", "BBAS3.SA"},
}

// performanceWindows are the lookback windows for period performance
var performanceWindows = []struct {
	label string
	days  int
}{
	{"1D", 1},
	{"7D", 7},
	{"1M", 30},
	{"3M", 91},
	{"6M", 182},
	{"1Y", 365},
}

// Service implements the MarketService interface
type Service struct {
	provider  interfaces.MarketDataProvider
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	catalog   interfaces.CatalogStore
	cacheCfg  common.CacheConfig
	logger    *common.Logger
	startedAt time.Time
}

// NewService creates a market service with its dependencies injected
func NewService(
	provider interfaces.MarketDataProvider,
	dataCache *cache.Cache,
	limiter *ratelimit.Limiter,
	catalogStore interfaces.CatalogStore,
	cacheCfg common.CacheConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		provider:  provider,
		cache:     dataCache,
		limiter:   limiter,
		catalog:   catalogStore,
		cacheCfg:  cacheCfg,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// checkRate debits one request from the caller's budget
func (s *Service) checkRate(caller string) error {
	if s.limiter.Allow(caller) {
		return nil
	}
	return &models.RateLimitError{
		Identifier: caller,
		Limit:      s.limiter.Limit(),
		Window:     s.limiter.Window(),
		RetryAfter: s.limiter.RetryAfter(caller),
	}
}

func cacheKey(op, symbol, period, interval string) string {
	return fmt.Sprintf("%s:%s:%s:%s", op, symbol, period, interval)
}

// GetStockData returns a quote for symbol, serving from cache when
// fresh. Pipeline: rate check, cache lookup, upstream fetch, cache
// store.
func (s *Service) GetStockData(ctx context.Context, caller, symbol, period, interval string) (*models.StockData, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}
	return s.fetchStockData(ctx, symbol, period, interval)
}

// fetchStockData runs the cache/fetch/store pipeline without touching
// the rate limiter, so bulk requests debit the budget once.
func (s *Service) fetchStockData(ctx context.Context, symbol, period, interval string) (*models.StockData, error) {
	normalized := yahoo.NormalizeSymbol(symbol)
	key := cacheKey("quote", normalized, period, interval)

	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(*models.StockData); ok {
			cp := *cached
			cp.FromCache = true
			s.logger.Debug().Str("symbol", normalized).Msg("Cache hit")
			return &cp, nil
		}
	}

	data, err := s.provider.GetQuote(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if period != "" && interval != "" {
		bars, err := s.provider.GetHistory(ctx, normalized, period, interval)
		if err != nil {
			// history is supplementary; a quote without bars still serves
			s.logger.Warn().Err(err).Str("symbol", normalized).Msg("History fetch failed")
		} else {
			data.History = bars
			data.Period = period
			data.Interval = interval
		}
	}

	s.cache.Set(key, data, s.cacheCfg.TTL())

	cp := *data
	cp.FromCache = false
	return &cp, nil
}

// GetBulkData fetches several symbols, collecting per-symbol failures
// instead of aborting the batch.
func (s *Service) GetBulkData(ctx context.Context, caller string, symbols []string, period, interval string) (*models.BulkResult, error) {
	if len(symbols) == 0 {
		return nil, models.NewValidationError("symbols", "at least one symbol is required")
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &models.BulkResult{
		RequestID: uuid.NewString(),
		Succeeded: make(map[string]*models.StockData),
		Failed:    make(map[string]string),
	}

	seen := make(map[string]bool)
	for _, raw := range symbols {
		symbol := yahoo.NormalizeSymbol(raw)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		result.Requested++

		data, err := s.fetchStockData(ctx, symbol, period, interval)
		if err != nil {
			result.Failed[symbol] = err.Error()
			s.logger.Warn().Err(err).Str("symbol", symbol).Str("request_id", result.RequestID).Msg("Bulk symbol failed")
			continue
		}
		result.Succeeded[symbol] = data
		result.Fetched++
	}

	result.Elapsed = time.Since(start)
	s.logger.Info().
		Str("request_id", result.RequestID).
		Int("requested", result.Requested).
		Int("fetched", result.Fetched).
		Dur("elapsed", result.Elapsed).
		Msg("Bulk fetch complete")

	return result, nil
}

// GetHistory returns a quote with its price bars attached. An empty
// period or interval defaults to 1mo daily bars.
func (s *Service) GetHistory(ctx context.Context, caller, symbol, period, interval string) (*models.StockData, error) {
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	return s.GetStockData(ctx, caller, symbol, period, interval)
}

// Search finds symbols for a free-text query, falling back to the local
// catalog when the upstream provider is unavailable.
func (s *Service) Search(ctx context.Context, caller, query string, limit int) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("query", "query is required")
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	key := cacheKey("search", strings.ToLower(query), fmt.Sprint(limit), "")
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.([]*models.SearchResult); ok {
			return cached, nil
		}
	}

	results, err := s.provider.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Upstream search failed, using catalog")
		return s.catalogSearch(ctx, query, limit)
	}

	s.cache.Set(key, results, s.cacheCfg.TTL())
	return results, nil
}

func (s *Service) catalogSearch(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if s.catalog == nil {
		return nil, models.NewProviderError("catalog", "", "no local catalog configured", nil)
	}
	symbols, err := s.catalog.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog search %q: %w", query, err)
	}
	results := make([]*models.SearchResult, len(symbols))
	for i, sym := range symbols {
		results[i] = &models.SearchResult{
			Symbol:   sym.Symbol,
			Name:     sym.Name,
			Exchange: "SAO",
			Type:     "EQUITY",
		}
	}
	return results, nil
}

// ValidateTicker reports whether a ticker resolves upstream. Validation
// results are cached for longer than quotes since listing status rarely
// changes. Unknown tickers get suggestions from the local catalog.
func (s *Service) ValidateTicker(ctx context.Context, caller, symbol string) (*models.ValidationResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}

	normalized := yahoo.NormalizeSymbol(symbol)
	key := cacheKey("validate", normalized, "", "")
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(*models.ValidationResult); ok {
			return cached, nil
		}
	}

	result := &models.ValidationResult{
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Normalized: normalized,
	}

	quote, err := s.provider.GetQuote(ctx, normalized)
	switch {
	case err == nil:
		result.Valid = true
		result.Name = quote.Name
	default:
		// catalog fallback covers upstream outages for known B3 names
		if s.catalog != nil {
			if sym, cerr := s.catalog.Get(ctx, normalized); cerr == nil {
				result.Valid = true
				result.Name = sym.Name
			}
		}
		if !result.Valid {
			result.Suggestions = s.suggestions(ctx, normalized)
		}
	}

	s.cache.Set(key, result, s.cacheCfg.ValidationTTL())
	return result, nil
}

// suggestions proposes close catalog matches for an unknown ticker
func (s *Service) suggestions(ctx context.Context, symbol string) []string {
	if s.catalog == nil {
		return nil
	}
	base := strings.TrimSuffix(symbol, ".SA")
	if len(base) > 4 {
		base = base[:4]
	}
	matches, err := s.catalog.Search(ctx, base, 3)
	if err != nil {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Symbol
	}
	return out
}

// GetTrending returns the strongest positive movers on a market,
// defaulting to BR. Trending churns intraday, so it gets a short TTL.
func (s *Service) GetTrending(ctx context.Context, caller, market string, limit int) ([]*models.TrendingStock, error) {
	if market == "" {
		market = "BR"
	}
	market = strings.ToUpper(market)
	screener, ok := trendingScreeners[market]
	if !ok {
		return nil, models.NewValidationError("market", fmt.Sprintf("unknown market %q", market))
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	key := cacheKey("trending", market, fmt.Sprint(limit), "")
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.([]*models.TrendingStock); ok {
			return cached, nil
		}
	}

	rows, err := s.provider.Screen(ctx, screener, limit*2)
	if err != nil {
		return nil, err
	}

	trending := make([]*models.TrendingStock, 0, limit)
	for _, row := range rows {
		if row.ChangePct <= 0 {
			continue
		}
		trending = append(trending, &models.TrendingStock{
			Symbol:    row.Symbol,
			Name:      row.Name,
			Price:     row.Price,
			ChangePct: row.ChangePct,
		})
	}
	sort.Slice(trending, func(i, j int) bool {
		return trending[i].ChangePct > trending[j].ChangePct
	})
	if len(trending) > limit {
		trending = trending[:limit]
	}

	s.cache.Set(key, trending, s.cacheCfg.TrendingTTL())
	return trending, nil
}

// Screen runs a whitelisted predefined screener category. The sector
// filter and sort run client-side, the upstream screeners accept
// neither.
func (s *Service) Screen(ctx context.Context, caller, category string, opts models.ScreenOptions) ([]*models.ScreenResult, error) {
	if !screenCategories[category] {
		return nil, models.NewValidationError("category", fmt.Sprintf("unknown screen category %q", category))
	}
	if opts.SortBy != "" && screenSortLess[opts.SortBy] == nil {
		return nil, models.NewValidationError("sort", fmt.Sprintf("unknown sort field %q", opts.SortBy))
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 25
	}

	key := cacheKey("screen", category,
		fmt.Sprintf("%d:%s", limit, strings.ToLower(opts.Sector)),
		fmt.Sprintf("%s:%v", opts.SortBy, opts.SortAsc))
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.([]*models.ScreenResult); ok {
			return cached, nil
		}
	}

	fetchLimit := limit
	if opts.Sector != "" {
		// over-fetch so filtering still fills the requested page
		fetchLimit = limit * 4
	}
	rows, err := s.provider.Screen(ctx, category, fetchLimit)
	if err != nil {
		return nil, err
	}

	if opts.Sector != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.EqualFold(row.Sector, opts.Sector) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if less := screenSortLess[opts.SortBy]; less != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			if opts.SortAsc {
				return less(rows[i], rows[j])
			}
			return less(rows[j], rows[i])
		})
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	s.cache.Set(key, rows, s.cacheCfg.TTL())
	return rows, nil
}

// ScreenCategories lists the supported screener categories
func (s *Service) ScreenCategories() []string {
	categories := make([]string, 0, len(screenCategories))
	for c := range screenCategories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// MarketOverview fetches the fixed symbol group for a region. Symbols
// that fail are skipped rather than failing the overview.
func (s *Service) MarketOverview(ctx context.Context, caller, category string) (*models.MarketOverview, error) {
	symbols, ok := overviewSets[category]
	if !ok {
		return nil, models.NewValidationError("category", fmt.Sprintf("unknown overview category %q", category))
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}

	overview := &models.MarketOverview{
		Category:    category,
		Quotes:      make([]*models.StockData, 0, len(symbols)),
		GeneratedAt: time.Now(),
	}
	for _, symbol := range symbols {
		data, err := s.fetchStockData(ctx, symbol, "", "")
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Overview symbol failed")
			continue
		}
		overview.Quotes = append(overview.Quotes, data)
	}

	return overview, nil
}

// PeriodPerformance computes percentage returns over standard windows
// from a year of daily bars.
func (s *Service) PeriodPerformance(ctx context.Context, caller, symbol string) (*models.PeriodPerformance, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	if err := s.checkRate(caller); err != nil {
		return nil, err
	}

	normalized := yahoo.NormalizeSymbol(symbol)
	key := cacheKey("performance", normalized, "", "")
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(*models.PeriodPerformance); ok {
			return cached, nil
		}
	}

	bars, err := s.provider.GetHistory(ctx, normalized, "1y", "1d")
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, models.NewProviderError("yahoo", normalized, "no history for performance", nil)
	}

	last := bars[len(bars)-1]
	perf := &models.PeriodPerformance{
		Symbol:  normalized,
		Price:   last.Close,
		Periods: make(map[string]float64, len(performanceWindows)),
	}

	for _, window := range performanceWindows {
		cutoff := last.Date.AddDate(0, 0, -window.days)
		if base := closeOnOrBefore(bars, cutoff); base > 0 {
			perf.Periods[window.label] = (last.Close - base) / base * 100
		}
	}

	s.cache.Set(key, perf, s.cacheCfg.TTL())
	return perf, nil
}

// closeOnOrBefore returns the close of the latest bar dated on or
// before cutoff, or zero when none exists.
func closeOnOrBefore(bars []models.Bar, cutoff time.Time) float64 {
	var close float64
	for _, bar := range bars {
		if bar.Date.After(cutoff) {
			break
		}
		close = bar.Close
	}
	return close
}

// Health reports service status and cache occupancy
func (s *Service) Health(_ context.Context) *models.HealthStatus {
	return &models.HealthStatus{
		Status:       "ok",
		Version:      common.GetVersion(),
		CacheEntries: s.cache.Len(),
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
		CheckedAt:    time.Now(),
	}
}

// ClearCache drops all cached market data
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.logger.Info().Msg("Market data cache cleared")
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
