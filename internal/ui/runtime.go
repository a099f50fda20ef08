// Package ui is the go-app dashboard. The same routes are registered by the
// WebAssembly binary in app/ and by the server, which serves the app shell
// with Handler.
//
// Build the client with:
//
//	GOARCH=wasm GOOS=js go build -o web/app.wasm ./app
package ui

import (
	"context"
	"errors"
	"sync"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/notify"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/roles"
	"github.com/kidandcat/portfolio/internal/session"
)

// maxToasts bounds the notices kept while no page is mounted.
const maxToasts = 5

// Runtime is the client state shared by every page.
type Runtime struct {
	API     *client.Client
	Session *session.Session
	Cache   *query.Cache
	Toasts  *notify.Queue

	Users    *manage.Users
	Projects *manage.Projects
	Backlogs *manage.Backlogs
	Stories  *manage.UserStories

	loadOnce sync.Once

	mu       sync.Mutex
	navigate func(route string)
	onToast  func()
}

func NewRuntime(baseURL string, store session.Store) *Runtime {
	api := client.New(baseURL)
	rt := &Runtime{
		API:     api,
		Session: session.New(store, api, nil),
		Cache:   query.NewCache(nil),
		Toasts:  notify.NewQueue(maxToasts),
	}
	rt.Session.Bind(api)
	rt.Session.OnExpired(func(route string) {
		rt.Cache.Clear()
		rt.navigateTo(route)
	})
	rt.Toasts.OnPush = func(notify.Toast) {
		rt.mu.Lock()
		fn := rt.onToast
		rt.mu.Unlock()
		if fn != nil {
			fn()
		}
	}

	d := manage.Deps{API: api, Cache: rt.Cache, Notify: rt.Toasts}
	rt.Users = manage.NewUsers(d)
	rt.Projects = manage.NewProjects(d)
	rt.Backlogs = manage.NewBacklogs(d)
	rt.Stories = manage.NewUserStories(d)
	return rt
}

// load restores the stored session the first time a page mounts.
func (rt *Runtime) load(ctx context.Context) {
	rt.loadOnce.Do(func() {
		if err := rt.Session.Load(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
			app.Log("restore session:", err)
		}
	})
}

// attach points the expiry redirect and toast delivery at the mounted frame.
func (rt *Runtime) attach(navigate func(string), onToast func()) {
	rt.mu.Lock()
	rt.navigate = navigate
	rt.onToast = onToast
	rt.mu.Unlock()
}

func (rt *Runtime) detach() { rt.attach(nil, nil) }

func (rt *Runtime) navigateTo(route string) {
	rt.mu.Lock()
	fn := rt.navigate
	rt.mu.Unlock()
	if fn != nil {
		fn(route)
	}
}

// guard loads the session and redirects when the visitor may not see the
// page. allowed == nil admits every authenticated role.
func (rt *Runtime) guard(ctx app.Context, allowed func(roles.Role) bool) bool {
	rt.load(ctx)
	if !rt.Session.Authenticated() {
		ctx.Navigate(roles.LoginRoute)
		return false
	}
	if allowed != nil && !allowed(rt.Session.Role()) {
		ctx.Navigate(rt.Session.Home())
		return false
	}
	return true
}

func (rt *Runtime) logout(ctx app.Context) {
	ctx.Async(func() {
		if err := rt.Session.Logout(ctx); err != nil {
			app.Log("logout:", err)
		}
		rt.Cache.Clear()
		ctx.Dispatch(func(ctx app.Context) {
			ctx.Navigate(roles.LoginRoute)
		})
	})
}

// onInvalidate calls fn each time a cached key accepted by match is marked
// stale. fn runs on the invalidating goroutine, so pages wrap their reload
// in ctx.Dispatch. The returned func stops it.
func (rt *Runtime) onInvalidate(match func(query.Key) bool, fn func()) (stop func()) {
	return rt.Cache.Subscribe(func(k query.Key) {
		if match(k) {
			fn()
		}
	})
}

// under matches keys that start with any of prefixes.
func under(prefixes ...query.Key) func(query.Key) bool {
	return func(k query.Key) bool {
		for _, p := range prefixes {
			if k.HasPrefix(p) {
				return true
			}
		}
		return false
	}
}

// subscription holds a page's cache subscription across navigations.
type subscription struct {
	stop func()
}

// replace stops the current subscription and keeps next.
func (s *subscription) replace(next func()) {
	s.cancel()
	s.stop = next
}

func (s *subscription) cancel() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
