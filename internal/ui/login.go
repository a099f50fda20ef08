package ui

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/validate"
)

type LoginPage struct {
	app.Compo
	rt *Runtime

	email    string
	password string
	errMsg   string
	busy     bool
}

func (p *LoginPage) OnNav(ctx app.Context) {
	p.rt.load(ctx)
	if p.rt.Session.Authenticated() {
		ctx.Navigate(p.rt.Session.Home())
	}
}

func (p *LoginPage) submit(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if p.busy {
		return
	}
	if !validate.Required(p.email, p.password) {
		p.errMsg = validate.MsgRequired
		return
	}
	if !validate.Email(p.email) {
		p.errMsg = validate.MsgInvalidEmail
		return
	}

	p.busy = true
	p.errMsg = ""
	email, password := p.email, p.password
	ctx.Async(func() {
		role, err := p.rt.Session.Login(ctx, email, password)
		ctx.Dispatch(func(ctx app.Context) {
			p.busy = false
			if err != nil {
				p.errMsg = strings.Join(client.Messages(err, "Login failed"), " ")
				return
			}
			p.password = ""
			p.rt.Cache.Clear()
			ctx.Navigate(role.Home())
		})
	})
}

func (p *LoginPage) Render() app.UI {
	return app.Div().Class("login").Body(
		app.Form().Class("card login-card").OnSubmit(p.submit).Body(
			app.H1().Text("Sign in"),
			app.Label().Text("Email"),
			app.Input().Type("email").Value(p.email).Placeholder("you@example.com").
				AutoFocus(true).OnInput(valueTo(&p.email)),
			app.Label().Text("Password"),
			app.Input().Type("password").Value(p.password).OnInput(valueTo(&p.password)),
			app.If(p.errMsg != "", func() app.UI {
				return app.P().Class("form-error").Text(p.errMsg)
			}),
			app.Button().Type("submit").Class("btn btn-primary").Disabled(p.busy).Text("Sign in"),
		),
	)
}
