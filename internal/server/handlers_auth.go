package server

import (
	"errors"
	"net/http"

	"github.com/brstocks/mercado/internal/models"
)

func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := s.app.AuthService.Register(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := s.app.AuthService.Login(r.Context(), &req)
	if err != nil {
		// credentials failures map to 401, not the usual 400
		var verr *models.ValidationError
		if errors.As(err, &verr) && verr.Field == "credentials" {
			WriteError(w, http.StatusUnauthorized, verr.Message)
			return
		}
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	WriteJSON(w, http.StatusOK, user)
}
