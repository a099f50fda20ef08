package ui

import (
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

// UsersPage lists accounts with search and role/state filters, and hosts the
// create/edit form.
type UsersPage struct {
	app.Compo
	rt *Runtime

	dir    manage.Directory
	loaded bool
	sub    subscription

	search      string
	roleFilter  string
	stateFilter string

	editing   int64
	showForm  bool
	firstName string
	lastName  string
	email     string
	password  string
	roleID    string
}

func (p *UsersPage) OnNav(ctx app.Context) {
	if !p.rt.guard(ctx, roles.Role.CanManageUsers) {
		return
	}
	p.roleFilter = filter.All
	p.stateFilter = filter.All
	p.sub.replace(p.rt.onInvalidate(under(manage.UsersKey(), manage.RolesKey()), func() {
		ctx.Dispatch(p.reload)
	}))
	p.reload(ctx)
}

func (p *UsersPage) OnDismount() { p.sub.cancel() }

func (p *UsersPage) reload(ctx app.Context) {
	ctx.Async(func() {
		dir, err := p.rt.Users.LoadDirectory(ctx)
		if err != nil {
			app.Log("load users:", err)
		}
		ctx.Dispatch(func(ctx app.Context) {
			if err == nil {
				p.dir = dir
			}
			p.loaded = true
		})
	})
}

func (p *UsersPage) visible() []model.User {
	return filter.UsersByState(filter.Users(p.dir.Users, p.search, p.roleFilter), p.stateFilter)
}

func (p *UsersPage) roleName(id *int64) string {
	if id == nil {
		return "Unassigned"
	}
	for _, r := range p.dir.Roles {
		if r.ID == *id {
			return r.Name
		}
	}
	return "Unknown"
}

func (p *UsersPage) openCreate(ctx app.Context, e app.Event) {
	p.editing = 0
	p.firstName, p.lastName, p.email, p.password, p.roleID = "", "", "", "", ""
	p.showForm = true
}

func (p *UsersPage) openEdit(u model.User) {
	p.editing = u.ID
	p.firstName, p.lastName, p.email, p.password = u.FirstName, u.LastName, u.Email, ""
	p.roleID = ""
	if u.RoleID != nil {
		p.roleID = strconv.FormatInt(*u.RoleID, 10)
	}
	p.showForm = true
}

func (p *UsersPage) input() model.UserInput {
	in := model.UserInput{FirstName: p.firstName, LastName: p.lastName, Email: p.email, Password: p.password}
	if id, err := strconv.ParseInt(p.roleID, 10, 64); err == nil {
		in.RoleID = &id
	}
	return in
}

func (p *UsersPage) save(ctx app.Context, e app.Event) {
	e.PreventDefault()
	in, id := p.input(), p.editing
	ctx.Async(func() {
		var err error
		if id == 0 {
			_, err = p.rt.Users.CreateUser(ctx, in)
		} else {
			_, err = p.rt.Users.UpdateUser(ctx, id, in)
		}
		if err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			p.showForm = false
			p.password = ""
		})
	})
}

func (p *UsersPage) toggle(ctx app.Context, u model.User) {
	ctx.Async(func() {
		if _, err := p.rt.Users.SetActive(ctx, u.ID, !u.IsActive); err != nil {
			app.Log("toggle user:", err)
		}
	})
}

func (p *UsersPage) remove(ctx app.Context, u model.User) {
	if !app.Window().Call("confirm", "Delete "+u.FullName()+"?").Bool() {
		return
	}
	ctx.Async(func() {
		if err := p.rt.Users.DeleteUser(ctx, u.ID); err != nil {
			app.Log("delete user:", err)
		}
	})
}

func (p *UsersPage) Render() app.UI {
	if !p.loaded {
		return page(p.rt, "users", loading())
	}
	users := p.visible()
	me, _ := p.rt.Session.User()

	return page(p.rt, "users",
		app.Div().Class("page-header").Body(
			app.H1().Text("Users"),
			app.Button().Class("btn btn-primary").Text("New user").OnClick(p.openCreate),
		),
		app.Div().Class("filters").Body(
			app.Input().Type("search").Placeholder("Search name or email").Value(p.search).OnInput(valueTo(&p.search)),
			app.Select().OnChange(valueTo(&p.roleFilter)).Body(
				option(filter.All, "All roles", p.roleFilter),
				option(filter.Unassigned, "Unassigned", p.roleFilter),
				app.Range(p.dir.Roles).Slice(func(i int) app.UI {
					r := p.dir.Roles[i]
					return option(strconv.FormatInt(r.ID, 10), r.Name, p.roleFilter)
				}),
			),
			app.Select().OnChange(valueTo(&p.stateFilter)).Body(
				option(filter.All, "Any state", p.stateFilter),
				option(filter.Active, "Active", p.stateFilter),
				option(filter.Inactive, "Inactive", p.stateFilter),
			),
		),
		app.If(p.showForm, p.renderForm),
		app.Table().Class("table").Body(
			app.THead().Body(app.Tr().Body(
				app.Th().Text("Name"), app.Th().Text("Email"), app.Th().Text("Role"),
				app.Th().Text("Status"), app.Th(),
			)),
			app.TBody().Body(
				app.Range(users).Slice(func(i int) app.UI {
					u := users[i]
					self := u.ID == me.ID
					status, toggleLabel := "Inactive", "Activate"
					if u.IsActive {
						status, toggleLabel = "Active", "Deactivate"
					}
					return app.Tr().Body(
						app.Td().Text(u.FullName()),
						app.Td().Text(u.Email),
						app.Td().Text(p.roleName(u.RoleID)),
						app.Td().Body(app.Span().Class("badge badge-"+status).Text(status)),
						app.Td().Class("actions").Body(
							app.Button().Class("btn btn-small").Text("Edit").
								OnClick(func(ctx app.Context, e app.Event) { p.openEdit(u) }),
							app.Button().Class("btn btn-small").Text(toggleLabel).Disabled(self).
								OnClick(func(ctx app.Context, e app.Event) { p.toggle(ctx, u) }),
							app.Button().Class("btn btn-small btn-danger").Text("Delete").Disabled(self).
								OnClick(func(ctx app.Context, e app.Event) { p.remove(ctx, u) }),
						),
					)
				}),
			),
		),
		app.If(len(users) == 0, func() app.UI {
			return app.P().Class("muted").Text("No users match the filters.")
		}),
	)
}

func (p *UsersPage) renderForm() app.UI {
	title, passwordHint := "New user", "At least 6 characters"
	if p.editing != 0 {
		title, passwordHint = "Edit user", "Leave empty to keep the current password"
	}
	return app.Form().Class("card form").OnSubmit(p.save).Body(
		app.H2().Text(title),
		field("First name", app.Input().Value(p.firstName).OnInput(valueTo(&p.firstName))),
		field("Last name", app.Input().Value(p.lastName).OnInput(valueTo(&p.lastName))),
		field("Email", app.Input().Type("email").Value(p.email).OnInput(valueTo(&p.email))),
		field("Password", app.Input().Type("password").Placeholder(passwordHint).Value(p.password).OnInput(valueTo(&p.password))),
		field("Role", app.Select().OnChange(valueTo(&p.roleID)).Body(
			option("", "No role", p.roleID),
			app.Range(p.dir.Roles).Slice(func(i int) app.UI {
				r := p.dir.Roles[i]
				return option(strconv.FormatInt(r.ID, 10), r.Name, p.roleID)
			}),
		)),
		app.Div().Class("form-actions").Body(
			app.Button().Type("button").Class("btn").Text("Cancel").
				OnClick(func(ctx app.Context, e app.Event) { p.showForm = false }),
			app.Button().Type("submit").Class("btn btn-primary").Text("Save"),
		),
	)
}

func option(value, label, selected string) app.UI {
	return app.Option().Value(value).Selected(value == selected).Text(label)
}

func field(label string, input app.UI) app.UI {
	return app.Div().Class("field").Body(
		app.Label().Text(label),
		input,
	)
}
