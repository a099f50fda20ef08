// Package session owns the authenticated user, bearer token and resolved role,
// persisted through a Store (SQLite for the CLI, local storage in the browser).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

// Persisted keys. Logout and 401 clear all of them together.
const (
	KeyUser    = "user"
	KeyToken   = "token"
	KeyRefresh = "refreshToken"
	KeyRole    = "role"
)

var ErrNoSession = errors.New("no session")

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Authenticator is the slice of the API client used for auth.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*client.AuthResponse, error)
	Logout(ctx context.Context) error
}

type Session struct {
	store Store
	api   Authenticator
	log   *zap.SugaredLogger

	mu      sync.RWMutex
	user    *model.User
	token   string
	refresh string
	role    roles.Role

	onExpired []func(route string)
}

func New(store Store, api Authenticator, log *zap.SugaredLogger) *Session {
	return &Session{store: store, api: api, log: logger.OrNop(log)}
}

// Bind makes s the token source of c and routes c's 401s to Expire.
func (s *Session) Bind(c *client.Client) {
	c.SetTokenSource(s)
	c.OnUnauthorized(s.Expire)
}

// OnExpired registers fn to run after a 401 cleared the session; it receives
// the route to navigate to.
func (s *Session) OnExpired(fn func(route string)) {
	s.mu.Lock()
	s.onExpired = append(s.onExpired, fn)
	s.mu.Unlock()
}

// Load restores a persisted session. It returns ErrNoSession when nothing
// (or only a partial record) is stored.
func (s *Session) Load(ctx context.Context) error {
	token, ok, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return ErrNoSession
	}
	rawUser, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	var u model.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	roleName, _, err := s.store.Get(ctx, KeyRole)
	if err != nil {
		return fmt.Errorf("load role: %w", err)
	}
	role, err := roles.Parse(roleName)
	if err != nil {
		s.log.Warnw("stored role not recognised", "role", roleName)
	}
	refresh, _, err := s.store.Get(ctx, KeyRefresh)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}

	s.mu.Lock()
	s.user = &u
	s.token = token
	s.refresh = refresh
	s.role = role
	s.mu.Unlock()
	return nil
}

// Login authenticates and persists user, token and role.
func (s *Session) Login(ctx context.Context, email, password string) (roles.Role, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return roles.Unknown, err
	}
	role, err := s.apply(ctx, resp)
	if err != nil {
		return roles.Unknown, err
	}
	s.log.Infow("logged in", "email", resp.User.Email, "role", role.String())
	return role, nil
}

// Refresh trades the refresh token for a new pair.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return ErrNoSession
	}
	resp, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = s.clear(ctx)
		}
		return err
	}
	_, err = s.apply(ctx, resp)
	return err
}

// Logout revokes the token server-side (best effort) and clears local state.
func (s *Session) Logout(ctx context.Context) error {
	if s.Token() != "" {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warnw("server logout failed", "error", err)
		}
	}
	return s.clear(ctx)
}

// Expire is the 401 handler: forget everything and send the user to login.
func (s *Session) Expire() {
	if err := s.clear(context.Background()); err != nil {
		s.log.Errorw("clear expired session", "error", err)
	}
	s.mu.RLock()
	hooks := append([]func(string){}, s.onExpired...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(roles.LoginRoute)
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) Role() roles.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) Authenticated() bool { return s.Token() != "" }

// Home is the route the current role lands on.
func (s *Session) Home() string {
	if !s.Authenticated() {
		return roles.LoginRoute
	}
	return s.Role().Home()
}

func (s *Session) apply(ctx context.Context, resp *client.AuthResponse) (roles.Role, error) {
	role, err := roles.Parse(resp.Role)
	if err != nil {
		return roles.Unknown, err
	}
	rawUser, err := json.Marshal(resp.User)
	if err != nil {
		return roles.Unknown, fmt.Errorf("encode user: %w", err)
	}
	for k, v := range map[string]string{
		KeyUser:    string(rawUser),
		KeyToken:   resp.Token,
		KeyRefresh: resp.RefreshToken,
		KeyRole:    role.String(),
	} {
		if err := s.store.Set(ctx, k, v); err != nil {
			return roles.Unknown, fmt.Errorf("persist %s: %w", k, err)
		}
	}

	u := resp.User
	s.mu.Lock()
	s.user = &u
	s.token = resp.Token
	s.refresh = resp.RefreshToken
	s.role = role
	s.mu.Unlock()
	return role, nil
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.refresh = ""
	s.role = roles.Unknown
	s.mu.Unlock()
	if err := s.store.Delete(ctx, KeyUser, KeyToken, KeyRefresh, KeyRole); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
