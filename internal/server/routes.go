package server

import (
	"net/http"
	"strings"
	"time"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// routeMarketStocks dispatches /api/market/stocks/{symbol}[/history|/performance].
func (s *Server) routeMarketStocks(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/market/stocks/")

	switch {
	case strings.HasSuffix(rest, "/history"):
		symbol := PathParam(r, "/api/market/stocks/", "/history")
		s.handleStockHistory(w, r, symbol)
	case strings.HasSuffix(rest, "/performance"):
		symbol := PathParam(r, "/api/market/stocks/", "/performance")
		s.handleStockPerformance(w, r, symbol)
	default:
		s.handleStockGet(w, r, rest)
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/me", s.handleAuthMe)

	// Market data
	mux.HandleFunc("/api/market/stocks/", s.routeMarketStocks)
	mux.HandleFunc("/api/market/bulk", s.handleMarketBulk)
	mux.HandleFunc("/api/market/search", s.handleMarketSearch)
	mux.HandleFunc("/api/market/validate/", s.handleMarketValidate)
	mux.HandleFunc("/api/market/trending", s.handleMarketTrending)
	mux.HandleFunc("/api/market/overview", s.handleMarketOverview)
	mux.HandleFunc("/api/market/overview/", s.handleMarketOverview)

	// Screening
	mux.HandleFunc("/api/screen/categories", s.handleScreenCategories)
	mux.HandleFunc("/api/screen/", s.handleScreen)

	// Valuation
	mux.HandleFunc("/api/valuation/", s.handleValuation)

	// Admin
	mux.HandleFunc("/api/admin/cache/clear", s.handleCacheClear)
}
