// Package servertest runs the real API over a throwaway database for tests.
package servertest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kidandcat/portfolio/internal/db"
	"github.com/kidandcat/portfolio/internal/server"
)

const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin-secret"
)

type Env struct {
	Server *httptest.Server
	Store  *db.Store
}

func (e *Env) URL() string { return e.Server.URL }

// New starts an API server seeded with roles and a Super Admin. Everything is
// torn down with the test.
func New(t testing.TB) *Env {
	t.Helper()
	store, err := db.Open(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SeedRoles(ctx))
	_, err = store.EnsureAdmin(ctx, AdminEmail, AdminPassword)
	require.NoError(t, err)

	srv := server.New(store, server.Options{Log: zaptest.NewLogger(t).Sugar()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return &Env{Server: ts, Store: store}
}
