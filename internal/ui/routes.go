package ui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/roles"
)

// APIPrefix is where the server mounts the REST API.
const APIPrefix = "/api"

var registerOnce sync.Once

// Register declares every dashboard route. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		rt := NewRuntime(apiBase(), localStore{})

		app.Route("/", func() app.Composer { return &Landing{rt: rt} })
		app.Route(roles.LoginRoute, func() app.Composer { return &LoginPage{rt: rt} })
		for _, r := range roles.All {
			app.Route(r.Home(), func() app.Composer { return &Dashboard{rt: rt} })
		}
		app.Route("/users", func() app.Composer { return &UsersPage{rt: rt} })
		app.Route("/projects", func() app.Composer { return &ProjectsPage{rt: rt} })
		app.RouteWithRegexp(`^/projects/\d+$`, func() app.Composer { return &ProjectPage{rt: rt} })
		app.RouteWithRegexp(`^/projects/\d+/backlogs/\d+$`, func() app.Composer { return &BacklogPage{rt: rt} })
	})
}

// Handler serves the app shell, app.wasm and the files under web/.
func Handler() *app.Handler {
	return &app.Handler{
		Name:        "Portfolio",
		ShortName:   "Portfolio",
		Title:       "Portfolio",
		Description: "Projects, backlogs and user stories",
		Styles:      []string{"/web/app.css"},
	}
}

// apiBase is the absolute API URL in the browser. On the server nothing is
// fetched, so the relative prefix is enough.
func apiBase() string {
	if !app.IsClient {
		return APIPrefix
	}
	u := app.Window().URL()
	return u.Scheme + "://" + u.Host + APIPrefix
}

// pathIDs returns the numeric segments of path in order.
func pathIDs(path string) []int64 {
	var ids []int64
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if id, err := strconv.ParseInt(seg, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// valueTo copies an input's value into dst.
func valueTo(dst *string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		*dst = ctx.JSSrc().Get("value").String()
	}
}

// Landing sends visitors to their role's home, or to the login page.
type Landing struct {
	app.Compo
	rt *Runtime
}

func (l *Landing) OnNav(ctx app.Context) {
	l.rt.load(ctx)
	ctx.Navigate(l.rt.Session.Home())
}

func (l *Landing) Render() app.UI {
	return app.Div().Class("loading-overlay").Body(
		app.Div().Class("loading-spinner"),
	)
}
