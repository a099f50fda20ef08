package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

type fakeAuth struct {
	loginErr   error
	refreshErr error
	logouts    int
	role       string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*client.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.AuthResponse{
		Token:        "tok-1",
		RefreshToken: "ref-1",
		User:         model.User{ID: 7, Email: email, FirstName: "Ana"},
		Role:         f.role,
	}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refresh string) (*client.AuthResponse, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &client.AuthResponse{
		Token:        "tok-2",
		RefreshToken: refresh + "+",
		User:         model.User{ID: 7, Email: "ana@acme.io"},
		Role:         f.role,
	}, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return nil
}

func TestLoginPersistsAndLoads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, &fakeAuth{role: "Product Owner"}, nil)

	role, err := s.Login(ctx, "ana@acme.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, roles.ProductOwner, role)
	assert.Equal(t, "/product-owner/dashboard", s.Home())

	restored := New(store, &fakeAuth{}, nil)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, "tok-1", restored.Token())
	assert.Equal(t, roles.ProductOwner, restored.Role())
	u, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, int64(7), u.ID)
}

func TestLoadWithoutSession(t *testing.T) {
	s := New(NewMemoryStore(), &fakeAuth{}, nil)
	require.ErrorIs(t, s.Load(context.Background()), ErrNoSession)
	assert.Equal(t, roles.LoginRoute, s.Home())
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, &fakeAuth{role: "Janitor"}, nil)
	_, err := s.Login(context.Background(), "a@b.com", "secret1")
	require.ErrorIs(t, err, roles.ErrUnknownRole)
	_, ok, _ := store.Get(context.Background(), KeyToken)
	assert.False(t, ok)
}

func TestLogoutClearsAllKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	auth := &fakeAuth{role: "admin"}
	s := New(store, auth, nil)
	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, 1, auth.logouts)
	assert.False(t, s.Authenticated())
	for _, k := range []string{KeyUser, KeyToken, KeyRefresh, KeyRole} {
		_, ok, _ := store.Get(ctx, k)
		assert.False(t, ok, k)
	}
}

func TestExpireNotifiesLoginRoute(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), &fakeAuth{role: "developer"}, nil)
	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	var route string
	s.OnExpired(func(r string) { route = r })
	s.Expire()

	assert.Equal(t, roles.LoginRoute, route)
	assert.Empty(t, s.Token())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{role: "scrum master"}
	s := New(NewMemoryStore(), auth, nil)
	require.ErrorIs(t, s.Refresh(ctx), ErrNoSession)

	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, "tok-2", s.Token())

	auth.refreshErr = &client.APIError{Status: http.StatusUnauthorized}
	err = s.Refresh(ctx)
	require.True(t, errors.Is(err, client.ErrUnauthorized))
	assert.False(t, s.Authenticated())
}
