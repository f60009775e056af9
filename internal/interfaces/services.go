package interfaces

import (
	"context"

	"github.com/brstocks/mercado/internal/models"
)

// MarketService orchestrates rate limiting, caching and upstream fetches
type MarketService interface {
	GetStockData(ctx context.Context, caller, symbol, period, interval string) (*models.StockData, error)
	GetBulkData(ctx context.Context, caller string, symbols []string, period, interval string) (*models.BulkResult, error)
	GetHistory(ctx context.Context, caller, symbol, period, interval string) (*models.StockData, error)
	Search(ctx context.Context, caller, query string, limit int) ([]*models.SearchResult, error)
	ValidateTicker(ctx context.Context, caller, symbol string) (*models.ValidationResult, error)
	GetTrending(ctx context.Context, caller, market string, limit int) ([]*models.TrendingStock, error)
	Screen(ctx context.Context, caller, category string, opts models.ScreenOptions) ([]*models.ScreenResult, error)
	ScreenCategories() []string
	MarketOverview(ctx context.Context, caller, category string) (*models.MarketOverview, error)
	PeriodPerformance(ctx context.Context, caller, symbol string) (*models.PeriodPerformance, error)
	Health(ctx context.Context) *models.HealthStatus
	ClearCache()
}

// ValuationService produces fair-price reports
type ValuationService interface {
	Valuate(ctx context.Context, caller, symbol string) (*models.ValuationReport, error)
}

// AuthService manages accounts and bearer tokens
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}
