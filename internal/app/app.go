// Package app wires configuration, clients, storage and services into a
// single application core shared by the server binary and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brstocks/mercado/internal/cache"
	"github.com/brstocks/mercado/internal/clients/bcb"
	"github.com/brstocks/mercado/internal/clients/gemini"
	"github.com/brstocks/mercado/internal/clients/yahoo"
	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/ratelimit"
	"github.com/brstocks/mercado/internal/services/auth"
	"github.com/brstocks/mercado/internal/services/market"
	"github.com/brstocks/mercado/internal/services/valuation"
	"github.com/brstocks/mercado/internal/storage/catalog"
	"github.com/brstocks/mercado/internal/storage/users"
)

// App holds all initialized clients, stores and services.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Cache            *cache.Cache
	Limiter          *ratelimit.Limiter
	YahooClient      interfaces.MarketDataProvider
	BCBClient        interfaces.MacroProvider
	GeminiClient     interfaces.GeminiClient
	UserStore        interfaces.UserStore
	CatalogStore     interfaces.CatalogStore
	MarketService    interfaces.MarketService
	ValuationService interfaces.ValuationService
	AuthService      interfaces.AuthService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes all clients, storage and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, MERCADO_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("MERCADO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "mercado.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/mercado.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if missing := config.ValidateRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	// Resolve relative storage paths to the binary directory
	if config.Storage.Users.Path != "" && !filepath.IsAbs(config.Storage.Users.Path) {
		config.Storage.Users.Path = filepath.Join(binDir, config.Storage.Users.Path)
	}
	if config.Storage.Catalog.Path != "" && !filepath.IsAbs(config.Storage.Catalog.Path) {
		config.Storage.Catalog.Path = filepath.Join(binDir, config.Storage.Catalog.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	userStore, err := users.NewStore(logger.Component("users"), config.Storage.Users.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	catalogStore, err := catalog.NewStore(logger.Component("catalog"), config.Storage.Catalog.Path)
	if err != nil {
		userStore.Close()
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}

	ctx := context.Background()
	if err := catalogStore.SeedIfEmpty(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed symbol catalog")
	}

	dataCache := cache.New(cache.WithMaxEntries(config.Cache.MaxEntries))
	limiter := ratelimit.New(config.RateLimit.Requests, config.RateLimit.Window())

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger.Component("yahoo")),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
		yahoo.WithRetry(config.Clients.Yahoo.MaxRetries, config.Clients.Yahoo.GetRetryDelay()),
	)

	bcbClient := bcb.NewClient(
		bcb.WithBaseURL(config.Clients.BCB.BaseURL),
		bcb.WithLogger(logger.Component("bcb")),
		bcb.WithTimeout(config.Clients.BCB.GetTimeout()),
	)

	// Gemini is optional. Assign through a local interface variable only
	// when construction succeeds so a nil client never reaches the
	// valuation service.
	var geminiClient interfaces.GeminiClient
	if config.Clients.Gemini.APIKey != "" {
		gc, err := gemini.NewClient(ctx, config.Clients.Gemini.APIKey,
			gemini.WithLogger(logger.Component("gemini")),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client - commentary will be unavailable")
		} else {
			geminiClient = gc
		}
	} else {
		logger.Info().Msg("Gemini API key not configured - commentary will be unavailable")
	}

	marketService := market.NewService(
		yahooClient, dataCache, limiter, catalogStore,
		config.Cache, logger.Component("market"),
	)
	valuationService := valuation.NewService(
		yahooClient, bcbClient, geminiClient, dataCache, limiter,
		config.Valuation, config.Cache, logger.Component("valuation"),
	)
	authService := auth.NewService(userStore, config.Auth, logger.Component("auth"))

	a := &App{
		Config:           config,
		Logger:           logger,
		Cache:            dataCache,
		Limiter:          limiter,
		YahooClient:      yahooClient,
		BCBClient:        bcbClient,
		GeminiClient:     geminiClient,
		UserStore:        userStore,
		CatalogStore:     catalogStore,
		MarketService:    marketService,
		ValuationService: valuationService,
		AuthService:      authService,
		StartupTime:      startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.GeminiClient != nil {
		if err := a.GeminiClient.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close Gemini client")
		}
		a.GeminiClient = nil
	}
	if a.CatalogStore != nil {
		a.CatalogStore.Close()
		a.CatalogStore = nil
	}
	if a.UserStore != nil {
		a.UserStore.Close()
		a.UserStore = nil
	}
}
