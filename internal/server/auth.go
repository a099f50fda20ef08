package server

import (
	"net/http"
	"strings"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/model"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.store.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	s.issue(w, r, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}
	u, pair, err := s.store.RotateRefresh(r.Context(), req.RefreshToken, s.tokenTTL, s.refreshTTL)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Session expired")
		return
	}
	s.respondTokens(w, r, u, pair.Access, pair.Refresh)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := r.Context().Value(tokenKey).(string); ok {
		if err := s.store.RevokeToken(r.Context(), token); err != nil {
			s.writeDBError(w, r, err)
			return
		}
	}
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if decode(r, &req) == nil && req.RefreshToken != "" {
		s.store.RevokeToken(r.Context(), req.RefreshToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, u model.User) {
	pair, err := s.store.IssueTokens(r.Context(), u.ID, s.tokenTTL, s.refreshTTL)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	s.respondTokens(w, r, u, pair.Access, pair.Refresh)
}

func (s *Server) respondTokens(w http.ResponseWriter, r *http.Request, u model.User, access, refresh string) {
	role, err := s.store.UserRole(r.Context(), u)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	s.log.Infow("session issued", "user_id", u.ID, "role", role.String())
	writeJSON(w, http.StatusOK, client.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         u,
		Role:         role.Label(),
	})
}
