// Package valuation wraps the fair-price calculator with peer and macro
// data fetching.
package valuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brstocks/mercado/internal/cache"
	"github.com/brstocks/mercado/internal/clients/yahoo"
	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
	"github.com/brstocks/mercado/internal/ratelimit"
	"github.com/brstocks/mercado/internal/valuation"
)

const macroCacheKey = "macro:context"

// Service implements the ValuationService interface
type Service struct {
	provider interfaces.MarketDataProvider
	macro    interfaces.MacroProvider
	gemini   interfaces.GeminiClient
	calc     *valuation.Calculator
	cache    *cache.Cache
	limiter  *ratelimit.Limiter
	cfg      common.ValuationConfig
	cacheCfg common.CacheConfig
	logger   *common.Logger
}

// NewService creates a valuation service. The macro provider and gemini
// client are optional; without them the service falls back to the
// configured rates and skips commentary.
func NewService(
	provider interfaces.MarketDataProvider,
	macro interfaces.MacroProvider,
	gemini interfaces.GeminiClient,
	dataCache *cache.Cache,
	limiter *ratelimit.Limiter,
	cfg common.ValuationConfig,
	cacheCfg common.CacheConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		provider: provider,
		macro:    macro,
		gemini:   gemini,
		calc: valuation.NewCalculator(
			valuation.WithDiscountRate(cfg.DiscountRate),
			valuation.WithFallbackRates(cfg.FallbackRf, cfg.FallbackERP),
		),
		cache:    dataCache,
		limiter:  limiter,
		cfg:      cfg,
		cacheCfg: cacheCfg,
		logger:   logger,
	}
}

// Valuate produces a fair-price report for a symbol. Every model fails
// soft, so a report is produced as long as fundamentals resolve.
func (s *Service) Valuate(ctx context.Context, caller, symbol string) (*models.ValuationReport, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	if !s.limiter.Allow(caller) {
		return nil, &models.RateLimitError{
			Identifier: caller,
			Limit:      s.limiter.Limit(),
			Window:     s.limiter.Window(),
			RetryAfter: s.limiter.RetryAfter(caller),
		}
	}

	normalized := yahoo.NormalizeSymbol(symbol)
	cacheKey := "valuation:" + normalized
	if v, ok := s.cache.Get(cacheKey); ok {
		if cached, ok := v.(*models.ValuationReport); ok {
			return cached, nil
		}
	}

	fundamentals, err := s.provider.GetFundamentals(ctx, normalized)
	if err != nil {
		return nil, err
	}

	peers := s.fetchPeers(ctx, normalized)
	macro := s.macroContext(ctx)

	report := &models.ValuationReport{
		Symbol:       normalized,
		CurrentPrice: fundamentals.Price,
		DCF:          s.calc.DCF(fundamentals),
		Gordon:       s.calc.Gordon(fundamentals),
		EVEBITPeers:  s.calc.EVEBITComparable(fundamentals, peers),
		PEPeers:      s.calc.PEComparable(fundamentals, peers),
		PEG:          s.calc.PEG(fundamentals),
		CAPMDividend: s.calc.CAPMDividend(fundamentals, macro),
		Multiples:    valuation.MultiplesFor(fundamentals),
		Macro:        macro,
		GeneratedAt:  time.Now(),
	}
	report.Mean = valuation.Mean(
		report.DCF,
		report.Gordon,
		report.EVEBITPeers,
		report.PEPeers,
		report.PEG,
		report.CAPMDividend,
	)

	if s.gemini != nil {
		if commentary, err := s.gemini.GenerateContent(ctx, buildCommentaryPrompt(fundamentals, report)); err != nil {
			s.logger.Warn().Err(err).Str("symbol", normalized).Msg("Commentary generation failed")
		} else {
			report.Commentary = commentary
		}
	}

	s.cache.Set(cacheKey, report, s.cacheCfg.TTL())
	return report, nil
}

// fetchPeers loads fundamentals for the comparable peer set, skipping
// the subject symbol and any peer that fails to resolve.
func (s *Service) fetchPeers(ctx context.Context, symbol string) []*models.Fundamentals {
	peers := make([]*models.Fundamentals, 0, len(s.cfg.ComparablePeers))
	for _, peer := range s.cfg.ComparablePeers {
		normalized := yahoo.NormalizeSymbol(peer)
		if normalized == symbol {
			continue
		}

		peerKey := "fundamentals:" + normalized
		if v, ok := s.cache.Get(peerKey); ok {
			if cached, ok := v.(*models.Fundamentals); ok {
				peers = append(peers, cached)
				continue
			}
		}

		f, err := s.provider.GetFundamentals(ctx, normalized)
		if err != nil {
			s.logger.Warn().Err(err).Str("peer", normalized).Msg("Peer fundamentals failed")
			continue
		}
		s.cache.Set(peerKey, f, s.cacheCfg.TTL())
		peers = append(peers, f)
	}
	return peers
}

// macroContext assembles the CAPM inputs: the annualized SELIC rate and
// the benchmark index trailing-12-month return. Either failing drops
// the whole context to the configured fallback rates.
func (s *Service) macroContext(ctx context.Context) models.MacroContext {
	if v, ok := s.cache.Get(macroCacheKey); ok {
		if cached, ok := v.(models.MacroContext); ok {
			return cached
		}
	}

	fallback := models.MacroContext{
		RiskFree:     s.cfg.FallbackRf,
		MarketReturn: models.NA(),
		UsedFallback: true,
	}

	if s.macro == nil {
		return fallback
	}

	riskFree, err := s.macro.AnnualizedRiskFree(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Risk-free rate unavailable, using fallback")
		return fallback
	}

	marketReturn, err := s.benchmarkReturn(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Benchmark return unavailable, using fallback")
		return fallback
	}

	macro := models.MacroContext{
		RiskFree:     riskFree,
		MarketReturn: models.ValidAmount(marketReturn),
	}
	s.cache.Set(macroCacheKey, macro, s.cacheCfg.ValidationTTL())
	return macro
}

// benchmarkReturn computes the trailing-12-month close-to-close return
// of the configured benchmark index.
func (s *Service) benchmarkReturn(ctx context.Context) (float64, error) {
	index := s.cfg.BenchmarkIndex
	if index == "" {
		index = "^BVSP"
	}

	bars, err := s.provider.GetHistory(ctx, index, "1y", "1mo")
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("benchmark %s returned %d bars", index, len(bars))
	}

	first := bars[0].Close
	last := bars[len(bars)-1].Close
	if first <= 0 {
		return 0, fmt.Errorf("benchmark %s has non-positive base close", index)
	}
	return (last - first) / first, nil
}

// buildCommentaryPrompt creates a prompt summarizing the report
func buildCommentaryPrompt(f *models.Fundamentals, report *models.ValuationReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write one concise paragraph (in English) assessing the valuation of %s", report.Symbol)
	if f.Name != "" {
		fmt.Fprintf(&sb, " (%s)", f.Name)
	}
	fmt.Fprintf(&sb, ". Current price: %.2f.", report.CurrentPrice)

	describe := func(name string, a models.Amount) {
		if a.Valid {
			fmt.Fprintf(&sb, " %s fair price: %.2f.", name, a.Value)
		}
	}
	describe("DCF", report.DCF)
	describe("Gordon", report.Gordon)
	describe("EV/EBIT comparable", report.EVEBITPeers)
	describe("P/E comparable", report.PEPeers)
	describe("CAPM dividend", report.CAPMDividend)
	describe("Mean estimate", report.Mean)

	sb.WriteString(" Mention whether the stock looks cheap or expensive against the mean estimate, and one key risk. Do not give investment advice.")
	return sb.String()
}

// Ensure Service implements ValuationService
var _ interfaces.ValuationService = (*Service)(nil)
