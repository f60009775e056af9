package server

import (
	"net/http"
	"strings"

	"github.com/brstocks/mercado/internal/models"
)

// --- Market data handlers ---

func (s *Server) handleStockGet(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	q := r.URL.Query()
	data, err := s.app.MarketService.GetStockData(r.Context(), callerID(r), symbol, q.Get("period"), q.Get("interval"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	q := r.URL.Query()
	data, err := s.app.MarketService.GetHistory(r.Context(), callerID(r), symbol, q.Get("period"), q.Get("interval"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleStockPerformance(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	perf, err := s.app.MarketService.PeriodPerformance(r.Context(), callerID(r), symbol)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, perf)
}

func (s *Server) handleMarketBulk(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Symbols  []string `json:"symbols"`
		Period   string   `json:"period"`
		Interval string   `json:"interval"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Symbols) == 0 {
		WriteError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	result, err := s.app.MarketService.GetBulkData(r.Context(), callerID(r), req.Symbols, req.Period, req.Interval)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarketSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 10)

	results, err := s.app.MarketService.Search(r.Context(), callerID(r), query, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

func (s *Server) handleMarketValidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/market/validate/", "")
	result, err := s.app.MarketService.ValidateTicker(r.Context(), callerID(r), symbol)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarketTrending(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	market := r.URL.Query().Get("market")
	limit := queryInt(r, "limit", 10)
	trending, err := s.app.MarketService.GetTrending(r.Context(), callerID(r), market, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trending": trending,
	})
}

func (s *Server) handleMarketOverview(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	category := PathParam(r, "/api/market/overview/", "")
	if category == "" {
		category = "brazil"
	}

	overview, err := s.app.MarketService.MarketOverview(r.Context(), callerID(r), category)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, overview)
}

// --- Screening handlers ---

func (s *Server) handleScreenCategories(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": s.app.MarketService.ScreenCategories(),
	})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	category := PathParam(r, "/api/screen/", "")
	if category == "" || strings.Contains(category, "/") {
		WriteError(w, http.StatusBadRequest, "screen category is required")
		return
	}

	q := r.URL.Query()
	opts := models.ScreenOptions{
		Limit:   queryInt(r, "limit", 25),
		Sector:  q.Get("sector"),
		SortBy:  q.Get("sort"),
		SortAsc: q.Get("order") == "asc",
	}
	results, err := s.app.MarketService.Screen(r.Context(), callerID(r), category, opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"count":    len(results),
		"results":  results,
	})
}

// --- Valuation handler ---

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/valuation/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	report, err := s.app.ValuationService.Valuate(r.Context(), callerID(r), symbol)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// --- Admin handlers ---

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if UserFromContext(r.Context()) == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	s.app.MarketService.ClearCache()
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "cache cleared",
	})
}
