// Package interfaces defines contracts between Mercado components
package interfaces

import (
	"context"

	"github.com/brstocks/mercado/internal/models"
)

// MarketDataProvider fetches market data from an upstream source
type MarketDataProvider interface {
	// GetQuote retrieves a normalized quote snapshot
	GetQuote(ctx context.Context, symbol string) (*models.StockData, error)

	// GetHistory retrieves price bars for a range/interval pair
	GetHistory(ctx context.Context, symbol, period, interval string) ([]models.Bar, error)

	// GetFundamentals retrieves valuation model inputs
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)

	// Search finds symbols matching a free-text query
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)

	// Screen runs a predefined screener category
	Screen(ctx context.Context, category string, limit int) ([]*models.ScreenResult, error)
}

// MacroProvider supplies macroeconomic rates for the CAPM model
type MacroProvider interface {
	// AnnualizedRiskFree returns the annualized risk-free rate
	AnnualizedRiskFree(ctx context.Context) (float64, error)
}

// GeminiClient generates AI commentary
type GeminiClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}
