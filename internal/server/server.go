// Package server exposes the portfolio store as the JSON REST API consumed by
// the client packages.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/db"
	"github.com/kidandcat/portfolio/internal/logger"
)

type Options struct {
	TokenTTL   time.Duration
	RefreshTTL time.Duration
	Log        *zap.SugaredLogger
}

type Server struct {
	store      *db.Store
	log        *zap.SugaredLogger
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

func New(store *db.Store, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Server{
		store:      store,
		log:        logger.OrNop(opts.Log),
		tokenTTL:   opts.TokenTTL,
		refreshTTL: opts.RefreshTTL,
	}
}

// Handler returns the complete API: public auth routes plus every other route
// behind bearer authentication, all wrapped in the request logger.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Auth routes (public)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)

	// Authenticated routes
	app := http.NewServeMux()
	app.HandleFunc("POST /auth/logout", s.handleLogout)

	// Users
	app.HandleFunc("GET /users", s.handleListUsers)
	app.HandleFunc("POST /users", s.requireUserAdmin(s.handleCreateUser))
	app.HandleFunc("GET /users/roles", s.handleListRoles)
	app.HandleFunc("PUT /users/{id}", s.requireUserAdmin(s.handleUpdateUser))
	app.HandleFunc("PATCH /users/{id}/active", s.requireUserAdmin(s.handleSetUserActive))
	app.HandleFunc("DELETE /users/{id}", s.requireUserAdmin(s.handleDeleteUser))

	// Projects
	app.HandleFunc("GET /project", s.handleListProjects)
	app.HandleFunc("POST /project", s.handleCreateProject)
	app.HandleFunc("GET /project/{id}", s.handleGetProject)

	// Backlogs
	app.HandleFunc("POST /backlog", s.handleCreateBacklog)
	app.HandleFunc("GET /backlog/project/{id}", s.handleBacklogsByProject)
	app.HandleFunc("GET /backlog/{id}", s.handleGetBacklog)
	app.HandleFunc("PUT /backlog/{id}", s.handleUpdateBacklog)
	app.HandleFunc("DELETE /backlog/{id}", s.handleDeleteBacklog)
	app.HandleFunc("PUT /backlog/{id}/order", s.handleReorderBacklog)

	// User stories
	app.HandleFunc("GET /backlog/{projectId}/{backlogId}/userstory", s.handleListUserStories)
	app.HandleFunc("POST /backlog/{projectId}/{backlogId}/userstory", s.handleCreateUserStory)
	app.HandleFunc("PUT /UserStory/{id}", s.handleUpdateUserStory)
	app.HandleFunc("DELETE /UserStory/{id}", s.handleDeleteUserStory)

	mux.Handle("/", s.requireAuth(app))
	return s.logRequests(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends the {"message": ...} envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeFieldErrors sends the {"errors": {field: [...]}} envelope.
func writeFieldErrors(w http.ResponseWriter, status int, fields map[string][]string) {
	writeJSON(w, status, map[string]any{"errors": fields})
}

// writeDBError maps store sentinels onto status codes.
func (s *Server) writeDBError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, db.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		s.log.Errorw("store error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}
