package ui

import (
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/notify"
)

const toastTTL = 4 * time.Second

// Frame is the navigation bar and toast area around every signed-in page.
// While mounted it receives the session-expiry redirect and new notices.
type Frame struct {
	app.Compo
	rt     *Runtime
	Active string

	toasts []notify.Toast
}

func (f *Frame) OnMount(ctx app.Context) {
	f.rt.attach(
		func(route string) {
			ctx.Dispatch(func(ctx app.Context) { ctx.Navigate(route) })
		},
		func() {
			ctx.Dispatch(func(ctx app.Context) { f.pull(ctx) })
		},
	)
	f.pull(ctx)
}

func (f *Frame) OnDismount() {
	f.rt.detach()
}

// pull moves pending notices on screen and schedules their removal.
func (f *Frame) pull(ctx app.Context) {
	fresh := f.rt.Toasts.Drain()
	if len(fresh) == 0 {
		return
	}
	f.toasts = append(f.toasts, fresh...)
	ctx.Async(func() {
		time.Sleep(toastTTL)
		ctx.Dispatch(func(ctx app.Context) {
			f.toasts = f.toasts[min(len(fresh), len(f.toasts)):]
		})
	})
}

func (f *Frame) Render() app.UI {
	role := f.rt.Session.Role()
	user, _ := f.rt.Session.User()

	link := func(href, label, key string) app.UI {
		class := "nav-link"
		if f.Active == key {
			class += " active"
		}
		return app.A().Class(class).Href(href).Text(label)
	}

	return app.Div().Class("frame").Body(
		app.Nav().Class("navbar").Body(
			app.Span().Class("brand").Text("Portfolio"),
			link(role.Home(), "Dashboard", "dashboard"),
			link("/projects", "Projects", "projects"),
			app.If(role.CanManageUsers(), func() app.UI {
				return link("/users", "Users", "users")
			}),
			app.Div().Class("navbar-spacer"),
			app.Span().Class("navbar-user").Text(user.FullName()+" · "+role.Label()),
			app.Button().Class("btn btn-ghost").Text("Log out").
				OnClick(func(ctx app.Context, e app.Event) {
					f.rt.logout(ctx)
				}),
		),
		app.Div().Class("toasts").Body(
			app.Range(f.toasts).Slice(func(i int) app.UI {
				t := f.toasts[i]
				return app.Div().Class("toast toast-" + string(t.Level)).Text(t.Message)
			}),
		),
	)
}

// page wraps body in the signed-in layout.
func page(rt *Runtime, active string, body ...app.UI) app.UI {
	return app.Div().Class("page").Body(
		&Frame{rt: rt, Active: active},
		app.Main().Class("content").Body(body...),
	)
}

// loading is shown until a page's first fetch lands.
func loading() app.UI {
	return app.Div().Class("loading-overlay").Body(
		app.Div().Class("loading-spinner"),
	)
}
