package ui

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/roles"
	"github.com/kidandcat/portfolio/internal/server/servertest"
	"github.com/kidandcat/portfolio/internal/session"
)

func TestPathIDs(t *testing.T) {
	assert.Equal(t, []int64{7, 12}, pathIDs("/projects/7/backlogs/12"))
	assert.Equal(t, []int64{3}, pathIDs("/projects/3/"))
	assert.Empty(t, pathIDs("/projects"))
}

func TestAPIBaseOnServer(t *testing.T) {
	assert.Equal(t, APIPrefix, apiBase())
}

func TestHandlerServesStyles(t *testing.T) {
	h := Handler()
	assert.Equal(t, "Portfolio", h.Name)
	assert.Contains(t, h.Styles, "/web/app.css")
}

func TestToastsReachAttachedFrame(t *testing.T) {
	rt := NewRuntime("http://unused.invalid", session.NewMemoryStore())

	// Nothing attached: the notice waits in the queue.
	rt.Toasts.Success("saved")

	var mu sync.Mutex
	pushes := 0
	rt.attach(nil, func() {
		mu.Lock()
		pushes++
		mu.Unlock()
	})
	rt.Toasts.Error("failed")
	assert.Equal(t, 1, pushes)
	assert.Len(t, rt.Toasts.Drain(), 2)

	rt.detach()
	rt.Toasts.Error("again")
	assert.Equal(t, 1, pushes)
}

func TestUnauthorizedClearsCacheAndRedirects(t *testing.T) {
	env := servertest.New(t)
	ctx := context.Background()
	rt := NewRuntime(env.URL(), session.NewMemoryStore())

	role, err := rt.Session.Login(ctx, servertest.AdminEmail, servertest.AdminPassword)
	require.NoError(t, err)
	assert.Equal(t, roles.SuperAdmin, role)

	_, err = rt.Projects.CreateProject(ctx, model.ProjectInput{Name: "Apollo", Status: model.StatusPlanning})
	require.NoError(t, err)
	_, err = rt.Projects.List().Get(ctx)
	require.NoError(t, err)
	require.NotZero(t, rt.Cache.Len())

	routes := make(chan string, 1)
	rt.attach(func(route string) { routes <- route }, nil)

	require.NoError(t, env.Store.RevokeToken(ctx, rt.Session.Token()))
	rt.Cache.Invalidate(manage.ProjectsKey())
	_, err = rt.Projects.List().Get(ctx)
	require.Error(t, err)

	assert.Equal(t, roles.LoginRoute, <-routes)
	assert.False(t, rt.Session.Authenticated())
	assert.Zero(t, rt.Cache.Len())
}

func TestRenderMarkdown(t *testing.T) {
	html, err := renderMarkdown("As a **user** I can log in.\n\n- email\n- password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(html, `<div class="markdown">`))
	assert.Contains(t, html, "<strong>user</strong>")
	assert.Contains(t, html, "<li>email</li>")

	html, err = renderMarkdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestOnInvalidateFollowsPageKeys(t *testing.T) {
	rt := NewRuntime("http://unused.invalid", session.NewMemoryStore())
	ctx := context.Background()
	for _, k := range []query.Key{manage.ProjectsKey(), manage.BacklogsKey(7), manage.BacklogsKey(8)} {
		query.New(rt.Cache, k, func(context.Context) (int, error) { return 1, nil }).Run(ctx)
	}

	var hits []string
	var sub subscription
	sub.replace(rt.onInvalidate(under(manage.BacklogsKey(7)), func() { hits = append(hits, "7") }))
	rt.Cache.Invalidate(query.K("backlogs"))
	assert.Equal(t, []string{"7"}, hits)

	// Navigating to another project swaps the subscription.
	sub.replace(rt.onInvalidate(under(manage.BacklogsKey(8), manage.ProjectsKey()), func() { hits = append(hits, "8") }))
	rt.Cache.Invalidate(query.K("backlogs"))
	rt.Cache.Invalidate(manage.ProjectsKey())
	assert.Equal(t, []string{"7", "8", "8"}, hits)

	sub.cancel()
	rt.Cache.Invalidate(query.K("backlogs"))
	assert.Len(t, hits, 3)
}
