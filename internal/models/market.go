// Package models defines data structures for Mercado
package models

import (
	"time"
)

// StockData holds a normalized quote snapshot for a symbol
type StockData struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Exchange      string    `json:"exchange,omitempty"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Open          float64   `json:"open"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	High52Week    float64   `json:"high_52_week,omitempty"`
	Low52Week     float64   `json:"low_52_week,omitempty"`
	Period        string    `json:"period,omitempty"`
	Interval      string    `json:"interval,omitempty"`
	History       []Bar     `json:"history,omitempty"`
	FromCache     bool      `json:"from_cache"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Bar represents a single period's price data
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Fundamentals contains the fundamental inputs used by the valuation models
type Fundamentals struct {
	Symbol                  string    `json:"symbol"`
	Name                    string    `json:"name,omitempty"`
	Sector                  string    `json:"sector,omitempty"`
	Industry                string    `json:"industry,omitempty"`
	Price                   float64   `json:"price"`
	MarketCap               float64   `json:"market_cap"`
	EnterpriseValue         float64   `json:"enterprise_value"`
	SharesOutstanding       float64   `json:"shares_outstanding"`
	EPS                     float64   `json:"eps"`
	PE                      float64   `json:"pe_ratio"`
	PB                      float64   `json:"pb_ratio"`
	PEGRatio                float64   `json:"peg_ratio"`
	BookValue               float64   `json:"book_value"`
	DividendRate            float64   `json:"dividend_rate"`
	DividendYield           float64   `json:"dividend_yield"`
	Beta                    float64   `json:"beta"`
	FreeCashflow            float64   `json:"free_cashflow"`
	OperatingCashflow       float64   `json:"operating_cashflow"`
	EBITDA                  float64   `json:"ebitda"`
	EBIT                    float64   `json:"ebit"`
	TotalRevenue            float64   `json:"total_revenue"`
	TotalDebt               float64   `json:"total_debt"`
	TotalCash               float64   `json:"total_cash"`
	EarningsQuarterlyGrowth float64   `json:"earnings_quarterly_growth"`
	LastUpdated             time.Time `json:"last_updated"`
}

// BulkResult is the envelope for a multi-symbol fetch. A failed symbol
// never aborts the batch; it lands in Failed with its reason.
type BulkResult struct {
	RequestID string                `json:"request_id"`
	Succeeded map[string]*StockData `json:"succeeded"`
	Failed    map[string]string     `json:"failed"`
	Requested int                   `json:"requested"`
	Fetched   int                   `json:"fetched"`
	Elapsed   time.Duration         `json:"elapsed_ms"`
}

// SearchResult represents one symbol search hit
type SearchResult struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Exchange string  `json:"exchange,omitempty"`
	Type     string  `json:"type,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// ValidationResult reports whether a ticker resolves upstream
type ValidationResult struct {
	Symbol      string   `json:"symbol"`
	Normalized  string   `json:"normalized"`
	Valid       bool     `json:"valid"`
	Name        string   `json:"name,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// TrendingStock is a positive mover ranked by percentage gain
type TrendingStock struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// ScreenResult represents one row from a predefined screener category
type ScreenResult struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
	MarketCap float64 `json:"market_cap,omitempty"`
	Sector    string  `json:"sector,omitempty"`
}

// ScreenOptions narrows and orders screener results. The zero value
// means no sector filter, upstream ordering and the default limit.
type ScreenOptions struct {
	Limit   int
	Sector  string
	SortBy  string
	SortAsc bool
}

// MarketOverview groups index/currency/commodity snapshots for a region
type MarketOverview struct {
	Category    string       `json:"category"`
	Quotes      []*StockData `json:"quotes"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// PeriodPerformance holds percentage returns over standard windows
type PeriodPerformance struct {
	Symbol  string             `json:"symbol"`
	Price   float64            `json:"price"`
	Periods map[string]float64 `json:"periods"` // 1D, 7D, 1M, 3M, 6M, 1Y
}

// CatalogSymbol is a B3 listing persisted in the local symbol catalog
type CatalogSymbol struct {
	Symbol   string `json:"symbol" badgerhold:"key"`
	Name     string `json:"name"`
	Sector   string `json:"sector,omitempty"`
	Segment  string `json:"segment,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// HealthStatus reports service health and component counters
type HealthStatus struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	CacheEntries int       `json:"cache_entries"`
	Uptime       string    `json:"uptime"`
	CheckedAt    time.Time `json:"checked_at"`
}
