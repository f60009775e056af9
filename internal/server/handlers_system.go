package server

import (
	"net/http"

	"github.com/brstocks/mercado/internal/common"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.MarketService.Health(r.Context()))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":     common.GetVersion(),
		"build":       common.GetBuild(),
		"commit":      common.GetGitCommit(),
		"environment": s.app.Config.Environment,
	})
}
