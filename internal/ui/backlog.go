package ui

import (
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/reorder"
)

const (
	viewList  = "list"
	viewBoard = "board"
)

// BacklogPage shows a backlog's stories either as a drag-to-reorder list or
// as a kanban board. Drops are applied locally first and saved in the
// background; a failed save restores the server order. Both views are
// replaced with the server's stories whenever they are invalidated.
type BacklogPage struct {
	app.Compo
	rt *Runtime

	scope   manage.StoryScope
	backlog model.Backlog
	view    string
	loaded  bool
	sync    subscription

	list    *reorder.List[model.UserStory]
	stories []model.UserStory

	board  *reorder.Board[model.BacklogItem]
	cards  map[string][]model.BacklogItem
	search string

	dragging bool
	dragFrom reorder.Location

	showForm    bool
	editing     int64
	title       string
	description string
	criteria    string
	priority    string
	points      string
}

func (p *BacklogPage) OnNav(ctx app.Context) {
	if !p.rt.guard(ctx, nil) {
		return
	}
	ids := pathIDs(ctx.Page().URL().Path)
	if len(ids) < 2 {
		ctx.Navigate("/projects")
		return
	}
	p.scope = manage.StoryScope{ProjectID: ids[0], BacklogID: ids[1]}
	if p.view == "" {
		p.view = viewList
	}
	p.reload(ctx)
}

func (p *BacklogPage) OnDismount() { p.sync.cancel() }

// reload rebuilds the list and the board from the server.
func (p *BacklogPage) reload(ctx app.Context) {
	scope := p.scope
	ctx.Async(func() {
		backlog, err := p.rt.Backlogs.Get(scope.BacklogID).Get(ctx)
		if err != nil {
			app.Log("load backlog:", err)
		}
		list, err := p.rt.Stories.Reorderable(ctx, scope, func(ss []model.UserStory) {
			ctx.Dispatch(func(ctx app.Context) { p.stories = ss })
		})
		if err != nil {
			app.Log("load stories:", err)
			return
		}
		board, err := p.rt.Stories.Board(ctx, scope, func(cols map[string][]model.BacklogItem) {
			ctx.Dispatch(func(ctx app.Context) { p.cards = cols })
		})
		if err != nil {
			app.Log("load board:", err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			p.backlog = backlog
			p.list, p.stories = list, list.Items()
			p.board, p.cards = board, board.Snapshot()
			p.loaded = true
			p.sync.replace(p.rt.Stories.Sync(ctx, scope, list, board))
		})
	})
}

func (p *BacklogPage) canReorder() bool {
	return p.rt.Session.Role().CanManageBacklog()
}

// List drag and drop.

func (p *BacklogPage) onRowDragStart(ctx app.Context, e app.Event, i int) {
	if err := p.list.Begin(i); err != nil {
		e.PreventDefault()
		return
	}
	p.dragging = true
	e.Get("dataTransfer").Call("setData", "text/plain", strconv.Itoa(i))
}

func (p *BacklogPage) onRowDrop(ctx app.Context, e app.Event, i int) {
	e.PreventDefault()
	p.dragging = false
	if _, err := p.list.Drop(ctx, i); err != nil {
		app.Log("drop:", err)
	}
}

func (p *BacklogPage) onDragEnd(ctx app.Context, e app.Event) {
	// Released outside any target.
	if p.list != nil && p.list.State() == reorder.Dragging {
		p.list.Cancel()
	}
	if p.board != nil && p.board.State() == reorder.Dragging {
		p.board.Cancel()
	}
	p.dragging = false
}

func allowDrop(ctx app.Context, e app.Event) { e.PreventDefault() }

// Board drag and drop.

func (p *BacklogPage) onCardDragStart(ctx app.Context, e app.Event, at reorder.Location) {
	if err := p.board.Begin(at); err != nil {
		e.PreventDefault()
		return
	}
	p.dragging = true
	p.dragFrom = at
	e.Get("dataTransfer").Call("setData", "text/plain", at.Column)
}

func (p *BacklogPage) onCardDrop(ctx app.Context, e app.Event, at reorder.Location) {
	e.PreventDefault()
	e.Call("stopPropagation")
	p.dropCard(ctx, at)
}

// onColumnDrop handles a release on a column's empty area: the card goes last.
func (p *BacklogPage) onColumnDrop(ctx app.Context, e app.Event, column string) {
	e.PreventDefault()
	at := reorder.Location{Column: column, Index: len(p.cards[column])}
	if p.dragFrom.Column == column {
		at.Index--
	}
	p.dropCard(ctx, at)
}

func (p *BacklogPage) dropCard(ctx app.Context, at reorder.Location) {
	p.dragging = false
	if _, err := p.board.Drop(ctx, at); err != nil {
		app.Log("drop:", err)
	}
}

// Story form.

func (p *BacklogPage) openCreate(ctx app.Context, e app.Event) {
	p.editing = 0
	p.title, p.description, p.criteria, p.priority, p.points = "", "", "", "Medium", ""
	p.showForm = true
}

func (p *BacklogPage) openEdit(st model.UserStory) {
	p.editing = st.ID
	p.title, p.description, p.criteria, p.priority = st.Title, st.Description, st.AcceptanceCriteria, st.Priority
	p.points = strconv.Itoa(st.Points)
	p.showForm = true
}

func (p *BacklogPage) save(ctx app.Context, e app.Event) {
	e.PreventDefault()
	points, _ := strconv.Atoi(p.points)
	in := model.UserStoryInput{
		Title:              p.title,
		Description:        p.description,
		AcceptanceCriteria: p.criteria,
		Priority:           p.priority,
		Points:             points,
	}
	scope, id := p.scope, p.editing
	if id != 0 {
		for _, st := range p.stories {
			if st.ID == id {
				in.Status = st.Status
			}
		}
	}
	ctx.Async(func() {
		var err error
		if id == 0 {
			_, err = p.rt.Stories.CreateUserStory(ctx, scope, in)
		} else {
			_, err = p.rt.Stories.UpdateUserStory(ctx, scope, id, in)
		}
		if err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) { p.showForm = false })
	})
}

func (p *BacklogPage) remove(ctx app.Context, st model.UserStory) {
	if !app.Window().Call("confirm", "Delete "+st.Title+"?").Bool() {
		return
	}
	scope := p.scope
	ctx.Async(func() {
		if err := p.rt.Stories.DeleteUserStory(ctx, scope, st.ID); err != nil {
			app.Log("delete story:", err)
		}
	})
}

func (p *BacklogPage) Render() app.UI {
	if !p.loaded {
		return page(p.rt, "projects", loading())
	}
	tab := func(view, label string) app.UI {
		class := "tab"
		if p.view == view {
			class += " active"
		}
		return app.Button().Class(class).Text(label).
			OnClick(func(ctx app.Context, e app.Event) { p.view = view })
	}

	return page(p.rt, "projects",
		app.A().Class("back").Href("/projects/"+strconv.FormatInt(p.scope.ProjectID, 10)).Text("← Project"),
		app.Div().Class("page-header").Body(
			app.H1().Text(p.backlog.Title),
			app.Button().Class("btn btn-primary").Text("New story").OnClick(p.openCreate),
		),
		app.Div().Class("tabs").Body(tab(viewList, "Backlog"), tab(viewBoard, "Board")),
		app.If(p.showForm, p.renderForm),
		app.If(p.view == viewBoard, p.renderBoard).Else(p.renderList),
	)
}

func (p *BacklogPage) renderList() app.UI {
	draggable := p.canReorder()
	class := "story-list"
	if p.dragging {
		class += " dragging"
	}
	return app.Ol().Class(class).Body(
		app.Range(p.stories).Slice(func(i int) app.UI {
			st := p.stories[i]
			return app.Li().Class("story").Draggable(draggable).
				OnDragStart(func(ctx app.Context, e app.Event) { p.onRowDragStart(ctx, e, i) }).
				OnDragOver(allowDrop).
				OnDrop(func(ctx app.Context, e app.Event) { p.onRowDrop(ctx, e, i) }).
				OnDragEnd(p.onDragEnd).
				Body(
					app.Span().Class("story-handle").Text("⋮⋮"),
					app.Div().Class("story-body").Body(
						app.Div().Class("story-title").Text(st.Title),
						markdown(st.Description),
						app.If(st.AcceptanceCriteria != "", func() app.UI {
							return app.Details().Body(
								app.Summary().Text("Acceptance criteria"),
								markdown(st.AcceptanceCriteria),
							)
						}),
						app.Div().Class("story-meta").Body(
							app.Span().Class("badge").Text(st.Status),
							app.Span().Class("badge").Text(st.Priority),
							app.Span().Text(strconv.Itoa(st.Points)+" pts"),
							app.Span().Text(strconv.Itoa(st.CommentCount)+" comments"),
						),
					),
					app.Div().Class("actions").Body(
						app.Button().Class("btn btn-small").Text("Edit").
							OnClick(func(ctx app.Context, e app.Event) { p.openEdit(st) }),
						app.Button().Class("btn btn-small btn-danger").Text("Delete").
							OnClick(func(ctx app.Context, e app.Event) { p.remove(ctx, st) }),
					),
				)
		}),
	)
}

func (p *BacklogPage) renderBoard() app.UI {
	columns := manage.BoardColumns()
	// Positions only map back onto the board when nothing is hidden.
	draggable := p.canReorder() && p.search == ""

	class := "board"
	if p.dragging {
		class += " dragging"
	}
	return app.Div().Body(
		app.Div().Class("filters").Body(
			app.Input().Type("search").Placeholder("Filter cards").Value(p.search).OnInput(valueTo(&p.search)),
		),
		app.Div().Class(class).Body(
			app.Range(columns).Slice(func(ci int) app.UI {
				col := columns[ci]
				cards := filter.Items(p.cards[col], p.search, filter.All)
				return app.Section().Class("column").
					OnDragOver(allowDrop).
					OnDrop(func(ctx app.Context, e app.Event) { p.onColumnDrop(ctx, e, col) }).
					Body(
						app.H3().Class("column-title").Text(model.StoryStatus(model.ItemStatus(col))+" ("+strconv.Itoa(len(cards))+")"),
						app.Range(cards).Slice(func(i int) app.UI {
							it := cards[i]
							at := reorder.Location{Column: col, Index: i}
							return app.Div().Class("kanban-card priority-"+string(it.Priority)).Draggable(draggable).
								OnDragStart(func(ctx app.Context, e app.Event) { p.onCardDragStart(ctx, e, at) }).
								OnDragOver(allowDrop).
								OnDrop(func(ctx app.Context, e app.Event) { p.onCardDrop(ctx, e, at) }).
								OnDragEnd(p.onDragEnd).
								Body(
									app.Div().Class("card-title").Text(it.Title),
									app.Div().Class("card-meta").Body(
										app.Span().Class("badge").Text(string(it.Priority)),
										app.Span().Text(strconv.Itoa(it.Effort)+" pts"),
									),
								)
						}),
					)
			}),
		),
	)
}

func (p *BacklogPage) renderForm() app.UI {
	title := "New story"
	if p.editing != 0 {
		title = "Edit story"
	}
	return app.Form().Class("card form").OnSubmit(p.save).Body(
		app.H2().Text(title),
		field("Title", app.Input().Value(p.title).OnInput(valueTo(&p.title))),
		field("Description", app.Textarea().Text(p.description).OnInput(valueTo(&p.description))),
		field("Acceptance criteria", app.Textarea().Text(p.criteria).OnInput(valueTo(&p.criteria))),
		field("Priority", prioritySelect(&p.priority)),
		field("Points", app.Input().Type("number").Value(p.points).OnInput(valueTo(&p.points))),
		app.Div().Class("form-actions").Body(
			app.Button().Type("button").Class("btn").Text("Cancel").
				OnClick(func(ctx app.Context, e app.Event) { p.showForm = false }),
			app.Button().Type("submit").Class("btn btn-primary").Text("Save"),
		),
	)
}
