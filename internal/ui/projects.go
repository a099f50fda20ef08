package ui

import (
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
)

var priorities = []string{"Low", "Medium", "High", "Critical"}

type ProjectsPage struct {
	app.Compo
	rt *Runtime

	projects []model.Project
	loaded   bool
	sub      subscription

	search       string
	statusFilter string

	showForm    bool
	name        string
	description string
	status      string
	priority    string
	progress    string
	endDate     string
}

func (p *ProjectsPage) OnNav(ctx app.Context) {
	if !p.rt.guard(ctx, nil) {
		return
	}
	p.statusFilter = filter.All
	p.sub.replace(p.rt.onInvalidate(under(manage.ProjectsKey()), func() {
		ctx.Dispatch(p.reload)
	}))
	p.reload(ctx)
}

func (p *ProjectsPage) OnDismount() { p.sub.cancel() }

func (p *ProjectsPage) reload(ctx app.Context) {
	ctx.Async(func() {
		projects, err := p.rt.Projects.List().Get(ctx)
		if err != nil {
			app.Log("load projects:", err)
		}
		ctx.Dispatch(func(ctx app.Context) {
			p.projects = projects
			p.loaded = true
		})
	})
}

func (p *ProjectsPage) openCreate(ctx app.Context, e app.Event) {
	p.name, p.description, p.progress, p.endDate = "", "", "0", ""
	p.status, p.priority = model.StatusPlanning, "Medium"
	p.showForm = true
}

func (p *ProjectsPage) save(ctx app.Context, e app.Event) {
	e.PreventDefault()
	progress, _ := strconv.Atoi(p.progress)
	in := model.ProjectInput{
		Name:        p.name,
		Description: p.description,
		Status:      p.status,
		Priority:    p.priority,
		Progress:    progress,
	}
	if p.endDate != "" {
		end := p.endDate
		in.EndDate = &end
	}
	ctx.Async(func() {
		if _, err := p.rt.Projects.CreateProject(ctx, in); err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) { p.showForm = false })
	})
}

func (p *ProjectsPage) Render() app.UI {
	if !p.loaded {
		return page(p.rt, "projects", loading())
	}
	projects := filter.Projects(p.projects, p.search, p.statusFilter)

	return page(p.rt, "projects",
		app.Div().Class("page-header").Body(
			app.H1().Text("Projects"),
			app.Button().Class("btn btn-primary").Text("New project").OnClick(p.openCreate),
		),
		app.Div().Class("filters").Body(
			app.Input().Type("search").Placeholder("Search projects").Value(p.search).OnInput(valueTo(&p.search)),
			app.Select().OnChange(valueTo(&p.statusFilter)).Body(
				option(filter.All, "All statuses", p.statusFilter),
				app.Range(model.ProjectStatuses).Slice(func(i int) app.UI {
					s := model.ProjectStatuses[i]
					return option(s, s, p.statusFilter)
				}),
			),
		),
		app.If(p.showForm, p.renderForm),
		app.Div().Class("grid").Body(
			app.Range(projects).Slice(func(i int) app.UI {
				return projectCard(projects[i])
			}),
		),
		app.If(len(projects) == 0, func() app.UI {
			return app.P().Class("muted").Text("No projects match the filters.")
		}),
	)
}

func projectCard(pr model.Project) app.UI {
	return app.A().Class("card project-card").Href("/projects/"+strconv.FormatInt(pr.ID, 10)).Body(
		app.H3().Text(pr.Name),
		app.P().Class("muted").Text(pr.Description),
		app.Div().Class("progress").Body(
			app.Div().Class("progress-bar").Style("width", strconv.Itoa(pr.Progress)+"%"),
		),
		app.Div().Class("card-meta").Body(
			app.Span().Class("badge").Text(pr.Status),
			app.Span().Class("badge").Text(pr.Priority),
			app.Span().Text(strconv.Itoa(len(pr.Members))+" members"),
		),
	)
}

func (p *ProjectsPage) renderForm() app.UI {
	return app.Form().Class("card form").OnSubmit(p.save).Body(
		app.H2().Text("New project"),
		field("Name", app.Input().Value(p.name).OnInput(valueTo(&p.name))),
		field("Description", app.Textarea().Text(p.description).OnInput(valueTo(&p.description))),
		field("Status", app.Select().OnChange(valueTo(&p.status)).Body(
			app.Range(model.ProjectStatuses).Slice(func(i int) app.UI {
				s := model.ProjectStatuses[i]
				return option(s, s, p.status)
			}),
		)),
		field("Priority", prioritySelect(&p.priority)),
		field("Progress (%)", app.Input().Type("number").Value(p.progress).OnInput(valueTo(&p.progress))),
		field("End date", app.Input().Type("date").Value(p.endDate).OnInput(valueTo(&p.endDate))),
		app.Div().Class("form-actions").Body(
			app.Button().Type("button").Class("btn").Text("Cancel").
				OnClick(func(ctx app.Context, e app.Event) { p.showForm = false }),
			app.Button().Type("submit").Class("btn btn-primary").Text("Create"),
		),
	)
}

func prioritySelect(dst *string) app.UI {
	return app.Select().OnChange(valueTo(dst)).Body(
		app.Range(priorities).Slice(func(i int) app.UI {
			return option(priorities[i], priorities[i], *dst)
		}),
	)
}

// ProjectPage shows one project and its backlogs.
type ProjectPage struct {
	app.Compo
	rt *Runtime

	projectID int64
	project   model.Project
	backlogs  []model.Backlog
	loaded    bool
	sub       subscription

	showForm    bool
	title       string
	description string
	priority    string
}

func (p *ProjectPage) OnNav(ctx app.Context) {
	if !p.rt.guard(ctx, nil) {
		return
	}
	ids := pathIDs(ctx.Page().URL().Path)
	if len(ids) == 0 {
		ctx.Navigate("/projects")
		return
	}
	p.projectID = ids[0]
	p.sub.replace(p.rt.onInvalidate(under(manage.ProjectKey(p.projectID), manage.BacklogsKey(p.projectID)), func() {
		ctx.Dispatch(p.reload)
	}))
	p.reload(ctx)
}

func (p *ProjectPage) OnDismount() { p.sub.cancel() }

func (p *ProjectPage) reload(ctx app.Context) {
	id := p.projectID
	ctx.Async(func() {
		project, err := p.rt.Projects.Get(id).Get(ctx)
		if err != nil {
			app.Log("load project:", err)
		}
		backlogs, err := p.rt.Backlogs.ByProject(id).Get(ctx)
		if err != nil {
			app.Log("load backlogs:", err)
		}
		ctx.Dispatch(func(ctx app.Context) {
			p.project = project
			p.backlogs = backlogs
			p.loaded = true
		})
	})
}

func (p *ProjectPage) save(ctx app.Context, e app.Event) {
	e.PreventDefault()
	in := model.BacklogInput{
		Title:       p.title,
		Description: p.description,
		Priority:    p.priority,
		ProjectID:   p.projectID,
	}
	ctx.Async(func() {
		if _, err := p.rt.Backlogs.CreateBacklog(ctx, in); err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) { p.showForm = false })
	})
}

func (p *ProjectPage) remove(ctx app.Context, b model.Backlog) {
	if !app.Window().Call("confirm", "Delete backlog "+b.Title+" and its stories?").Bool() {
		return
	}
	ctx.Async(func() {
		if err := p.rt.Backlogs.DeleteBacklog(ctx, manage.BacklogRef{ID: b.ID, ProjectID: b.ProjectID}); err != nil {
			app.Log("delete backlog:", err)
		}
	})
}

func (p *ProjectPage) Render() app.UI {
	if !p.loaded {
		return page(p.rt, "projects", loading())
	}
	canEdit := p.rt.Session.Role().CanManageBacklog()
	pid := strconv.FormatInt(p.projectID, 10)

	return page(p.rt, "projects",
		app.Div().Class("page-header").Body(
			app.H1().Text(p.project.Name),
			app.If(canEdit, func() app.UI {
				return app.Button().Class("btn btn-primary").Text("New backlog").
					OnClick(func(ctx app.Context, e app.Event) {
						p.title, p.description, p.priority = "", "", "Medium"
						p.showForm = true
					})
			}),
		),
		markdown(p.project.Description),
		app.Div().Class("card-meta").Body(
			app.Span().Class("badge").Text(p.project.Status),
			app.Span().Text(strconv.Itoa(p.project.Progress)+"% complete"),
		),
		app.H2().Text("Members"),
		app.Ul().Class("members").Body(
			app.Range(p.project.Members).Slice(func(i int) app.UI {
				m := p.project.Members[i]
				return app.Li().Text(m.FullName() + " <" + m.Email + ">")
			}),
		),
		app.If(p.showForm, func() app.UI {
			return app.Form().Class("card form").OnSubmit(p.save).Body(
				app.H2().Text("New backlog"),
				field("Title", app.Input().Value(p.title).OnInput(valueTo(&p.title))),
				field("Description", app.Textarea().Text(p.description).OnInput(valueTo(&p.description))),
				field("Priority", prioritySelect(&p.priority)),
				app.Div().Class("form-actions").Body(
					app.Button().Type("button").Class("btn").Text("Cancel").
						OnClick(func(ctx app.Context, e app.Event) { p.showForm = false }),
					app.Button().Type("submit").Class("btn btn-primary").Text("Create"),
				),
			)
		}),
		app.H2().Text("Backlogs"),
		app.Table().Class("table").Body(
			app.THead().Body(app.Tr().Body(
				app.Th().Text("Title"), app.Th().Text("Priority"), app.Th().Text("Stories"), app.Th(),
			)),
			app.TBody().Body(
				app.Range(p.backlogs).Slice(func(i int) app.UI {
					b := p.backlogs[i]
					return app.Tr().Body(
						app.Td().Body(app.A().Href("/projects/"+pid+"/backlogs/"+strconv.FormatInt(b.ID, 10)).Text(b.Title)),
						app.Td().Text(b.Priority),
						app.Td().Text(strconv.Itoa(len(b.UserStories))),
						app.Td().Class("actions").Body(
							app.If(canEdit, func() app.UI {
								return app.Button().Class("btn btn-small btn-danger").Text("Delete").
									OnClick(func(ctx app.Context, e app.Event) { p.remove(ctx, b) })
							}),
						),
					)
				}),
			),
		),
	)
}
