package ui

import (
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/model"
)

// Dashboard is the landing page of every role.
type Dashboard struct {
	app.Compo
	rt *Runtime

	projects []model.Project
	users    []model.User
	loaded   bool
}

func (d *Dashboard) OnNav(ctx app.Context) {
	if !d.rt.guard(ctx, nil) {
		return
	}
	if ctx.Page().URL().Path != d.rt.Session.Home() {
		ctx.Navigate(d.rt.Session.Home())
		return
	}
	manageUsers := d.rt.Session.Role().CanManageUsers()
	ctx.Async(func() {
		projects, err := d.rt.Projects.List().Get(ctx)
		if err != nil {
			app.Log("load projects:", err)
		}
		var users []model.User
		if manageUsers {
			if users, err = d.rt.Users.List().Get(ctx); err != nil {
				app.Log("load users:", err)
			}
		}
		ctx.Dispatch(func(ctx app.Context) {
			d.projects = projects
			d.users = users
			d.loaded = true
		})
	})
}

func (d *Dashboard) Render() app.UI {
	user, _ := d.rt.Session.User()
	role := d.rt.Session.Role()

	byStatus := make(map[string]int)
	for _, p := range d.projects {
		byStatus[p.Status]++
	}

	return page(d.rt, "dashboard",
		app.H1().Text("Welcome, "+user.FirstName),
		app.P().Class("muted").Text(role.Label()+" dashboard"),
		app.If(!d.loaded, loading).Else(func() app.UI {
			return app.Div().Class("stats").Body(
				stat("Projects", len(d.projects), "/projects"),
				app.Range(model.ProjectStatuses).Slice(func(i int) app.UI {
					s := model.ProjectStatuses[i]
					return stat(s, byStatus[s], "")
				}),
				app.If(role.CanManageUsers(), func() app.UI {
					return stat("Users", len(d.users), "/users")
				}),
			)
		}),
	)
}

func stat(label string, n int, href string) app.UI {
	card := app.Div().Class("stat").Body(
		app.Div().Class("stat-value").Text(strconv.Itoa(n)),
		app.Div().Class("stat-label").Text(label),
	)
	if href == "" {
		return card
	}
	return app.A().Class("stat-link").Href(href).Body(card)
}
