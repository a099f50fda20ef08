package manage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/notify"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/reorder"
	"github.com/kidandcat/portfolio/internal/roles"
	"github.com/kidandcat/portfolio/internal/server/servertest"
	"github.com/kidandcat/portfolio/internal/session"
	"github.com/kidandcat/portfolio/internal/validate"
)

type fixture struct {
	env    *servertest.Env
	deps   Deps
	toasts *notify.Queue
	sess   *session.Session
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := servertest.New(t)
	c := client.New(env.URL())
	sess := session.New(session.NewMemoryStore(), c, nil)
	sess.Bind(c)
	role, err := sess.Login(context.Background(), servertest.AdminEmail, servertest.AdminPassword)
	require.NoError(t, err)
	require.Equal(t, roles.SuperAdmin, role)

	toasts := notify.NewQueue(0)
	return &fixture{
		env:    env,
		deps:   Deps{API: c, Cache: query.NewCache(nil), Notify: toasts},
		toasts: toasts,
		sess:   sess,
	}
}

// seedBacklog creates a project and backlogs until the requested id exists.
func (f *fixture) seedBacklog(t *testing.T, backlogID int64) StoryScope {
	t.Helper()
	ctx := context.Background()
	p, err := f.env.Store.CreateProject(ctx, model.ProjectInput{Name: "Apollo", Status: model.StatusPlanning})
	require.NoError(t, err)
	var b model.Backlog
	for b.ID < backlogID {
		b, err = f.env.Store.CreateBacklog(ctx, model.BacklogInput{Title: "Sprint", ProjectID: p.ID})
		require.NoError(t, err)
	}
	return StoryScope{ProjectID: p.ID, BacklogID: b.ID}
}

func (f *fixture) seedStories(t *testing.T, scope StoryScope, titles ...string) []model.UserStory {
	t.Helper()
	var out []model.UserStory
	for _, title := range titles {
		st, err := f.env.Store.CreateUserStory(context.Background(), scope.ProjectID, scope.BacklogID,
			model.UserStoryInput{Title: title, Description: title})
		require.NoError(t, err)
		out = append(out, st)
	}
	return out
}

func ids[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func storyID(st model.UserStory) int64  { return st.ID }
func itemID(it model.BacklogItem) int64 { return it.ID }

func TestCreateUserStoryInvalidatesBacklogCaches(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 5)
	require.Equal(t, int64(5), scope.BacklogID)

	stories := NewUserStories(f.deps)
	backlogs := NewBacklogs(f.deps)

	assert.Empty(t, stories.List(scope).Run(ctx).Data)
	detail := backlogs.Get(5).Run(ctx)
	require.True(t, detail.HasData)
	assert.Empty(t, detail.Data.UserStories)
	require.True(t, backlogs.ByProject(scope.ProjectID).Run(ctx).HasData)

	var mu sync.Mutex
	var invalidated []string
	f.deps.Cache.Subscribe(func(k query.Key) {
		mu.Lock()
		invalidated = append(invalidated, k.String())
		mu.Unlock()
	})

	st, err := stories.CreateUserStory(ctx, scope, model.UserStoryInput{
		Title: "X", Description: "Y", AcceptanceCriteria: "Z", Status: "Pending", Priority: "Medium",
	})
	require.NoError(t, err)
	assert.Equal(t, "X", st.Title)

	assert.True(t, f.deps.Cache.IsStale(UserStoriesKey(5)))
	assert.True(t, f.deps.Cache.IsStale(BacklogKey(5)))
	assert.True(t, f.deps.Cache.IsStale(BacklogsKey(scope.ProjectID)))
	mu.Lock()
	assert.ElementsMatch(t, []string{"userStories/5", "backlog/5", "backlogs/project/" + strconv.FormatInt(scope.ProjectID, 10)}, invalidated)
	mu.Unlock()

	assert.Len(t, stories.List(scope).Run(ctx).Data, 1)
	assert.Len(t, backlogs.Get(5).Run(ctx).Data.UserStories, 1)
	assert.Equal(t, []string{"User story created successfully"}, f.toasts.Messages(notify.LevelSuccess))
}

func TestDisabledQueriesNeverFetch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := NewUserStories(f.deps).List(StoryScope{ProjectID: 1}).Run(ctx)
	assert.False(t, r.HasData)
	assert.False(t, r.IsLoading)
	assert.Nil(t, r.Data)
	assert.Zero(t, f.deps.Cache.Len())

	assert.False(t, NewProjects(f.deps).Get(0).Run(ctx).HasData)
	assert.False(t, NewBacklogs(f.deps).ByProject(0).Run(ctx).HasData)
}

func TestUsersDirectoryAndEmailCheck(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	users := NewUsers(f.deps)

	dir, err := users.LoadDirectory(ctx)
	require.NoError(t, err)
	require.Len(t, dir.Users, 1)
	assert.Len(t, dir.Roles, len(roles.All))

	_, err = users.CreateUser(ctx, model.UserInput{FirstName: "", LastName: "Doe", Email: "a@b.com", Password: "secret1"})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.MsgRequired, verr.Message)

	_, err = users.CreateUser(ctx, model.UserInput{FirstName: "A", LastName: "B", Email: "ADMIN@example.com", Password: "secret1"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.MsgEmailTaken, verr.Message)
	assert.False(t, users.Create.IsPending())

	stored, err := f.env.Store.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "nothing reached the server")

	u, err := users.CreateUser(ctx, model.UserInput{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, f.deps.Cache.IsStale(UsersKey()))
	assert.Len(t, users.List().Run(ctx).Data, 2)

	_, err = users.UpdateUser(ctx, u.ID, model.UserInput{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})
	require.NoError(t, err, "own email is not a duplicate")

	u, err = users.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	require.NoError(t, users.DeleteUser(ctx, u.ID))

	assert.Equal(t, []string{validate.MsgRequired, validate.MsgEmailTaken}, f.toasts.Messages(notify.LevelError))
}

func TestServerErrorsBecomeToasts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	users := NewUsers(f.deps)

	// Running the mutation directly skips the local email check; the
	// server refuses the duplicate on its own.
	_, err := users.Create.Run(ctx, model.UserInput{FirstName: "A", LastName: "B", Email: "admin@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, users.Create.IsError())
	assert.Equal(t, []string{validate.MsgEmailTaken}, f.toasts.Messages(notify.LevelError))
}

func TestDeleteBacklogInvalidatesProjectList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 2)
	backlogs := NewBacklogs(f.deps)

	require.Len(t, backlogs.ByProject(scope.ProjectID).Run(ctx).Data, 2)
	require.NoError(t, backlogs.DeleteBacklog(ctx, BacklogRef{ID: scope.BacklogID, ProjectID: scope.ProjectID}))
	assert.True(t, f.deps.Cache.IsStale(BacklogsKey(scope.ProjectID)))
	assert.Len(t, backlogs.ByProject(scope.ProjectID).Run(ctx).Data, 1)

	err := backlogs.DeleteBacklog(ctx, BacklogRef{ID: scope.BacklogID, ProjectID: scope.ProjectID})
	require.Error(t, err)
	assert.Equal(t, []string{"Not found"}, f.toasts.Messages(notify.LevelError))
}

func TestProjectsCreateAndRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	projects := NewProjects(f.deps)

	assert.Empty(t, projects.List().Run(ctx).Data)
	p, err := projects.CreateProject(ctx, model.ProjectInput{Name: "Apollo", Status: model.StatusOnHold, Progress: 10})
	require.NoError(t, err)
	assert.Len(t, projects.List().Run(ctx).Data, 1)
	assert.Equal(t, "Apollo", projects.Get(p.ID).Run(ctx).Data.Name)

	_, err = projects.CreateProject(ctx, model.ProjectInput{Name: "Bad", Progress: 140})
	require.Error(t, err)
}

func TestReorderPersistsAndRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 1)
	seeded := f.seedStories(t, scope, "a", "b", "c", "d", "e")
	stories := NewUserStories(f.deps)

	list, err := stories.Reorderable(ctx, scope, nil)
	require.NoError(t, err)

	sub, err := list.MoveItem(ctx, 2, 0)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())
	want := []int64{seeded[2].ID, seeded[0].ID, seeded[1].ID, seeded[3].ID, seeded[4].ID}
	assert.Equal(t, want, ids(list.Items(), storyID))

	server, err := f.env.Store.UserStories(ctx, scope.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, want, ids(server, storyID))

	// Someone else deletes a story; the next drop is refused and the list
	// snaps back to what the server has.
	require.NoError(t, f.env.Store.DeleteUserStory(ctx, seeded[4].ID))
	sub, err = list.MoveItem(ctx, 0, 3)
	require.NoError(t, err)
	require.Error(t, sub.Wait())

	server, err = f.env.Store.UserStories(ctx, scope.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, ids(server, storyID), ids(list.Items(), storyID))
	assert.Len(t, f.toasts.Messages(notify.LevelError), 1)
	assert.Equal(t, reorder.Idle, list.State())
}

func TestBoardMoveUpdatesStatusAndOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 1)
	seeded := f.seedStories(t, scope, "a", "b", "c")
	stories := NewUserStories(f.deps)

	board, err := stories.Board(ctx, scope, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{seeded[0].ID, seeded[1].ID, seeded[2].ID}, ids(board.Cards(string(model.ItemNew)), itemID))

	sub, err := board.MoveCard(ctx,
		reorder.Location{Column: string(model.ItemNew), Index: 1},
		reorder.Location{Column: string(model.ItemDone), Index: 0},
	)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())

	moved, err := f.env.Store.UserStory(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Done", moved.Status)

	server, err := f.env.Store.UserStories(ctx, scope.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, []int64{seeded[0].ID, seeded[2].ID, seeded[1].ID}, ids(server, storyID))
	assert.Equal(t, model.ItemDone, board.Cards(string(model.ItemDone))[0].Status)
}

func TestExpiredTokenClearsSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var route string
	f.sess.OnExpired(func(r string) { route = r })

	require.NoError(t, f.env.Store.RevokeToken(ctx, f.sess.Token()))
	r := NewUsers(f.deps).List().Run(ctx)
	require.True(t, r.IsError)
	require.ErrorIs(t, r.Err, client.ErrUnauthorized)

	assert.False(t, f.sess.Authenticated())
	assert.Equal(t, roles.LoginRoute, route)
	assert.Equal(t, roles.LoginRoute, f.sess.Home())
}

func TestBoardMoveKeepsEarlierListReorder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 1)
	seeded := f.seedStories(t, scope, "a", "b", "c")
	a, b, c := seeded[0].ID, seeded[1].ID, seeded[2].ID
	stories := NewUserStories(f.deps)

	list, err := stories.Reorderable(ctx, scope, nil)
	require.NoError(t, err)
	board, err := stories.Board(ctx, scope, nil)
	require.NoError(t, err)

	sub, err := list.MoveItem(ctx, 2, 0)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())

	// The board still shows a, b, c; moving a out of the column must not
	// bring back that order.
	sub, err = board.MoveCard(ctx,
		reorder.Location{Column: string(model.ItemNew), Index: 0},
		reorder.Location{Column: string(model.ItemReady), Index: 0},
	)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())

	server, err := f.env.Store.UserStories(ctx, scope.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c, b, a}, ids(server, storyID))
	assert.Equal(t, model.ItemReady, model.ItemStatusFromStory(server[2].Status))
}

func TestSyncKeepsListAndBoardOnServerState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	scope := f.seedBacklog(t, 1)
	seeded := f.seedStories(t, scope, "a", "b", "c")
	a, b, c := seeded[0].ID, seeded[1].ID, seeded[2].ID
	stories := NewUserStories(f.deps)

	list, err := stories.Reorderable(ctx, scope, nil)
	require.NoError(t, err)
	board, err := stories.Board(ctx, scope, nil)
	require.NoError(t, err)
	stop := stories.Sync(ctx, scope, list, board)
	defer stop()

	sub, err := list.MoveItem(ctx, 2, 0)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())
	assert.Equal(t, []int64{c, a, b}, ids(board.Cards(string(model.ItemNew)), itemID))

	sub, err = board.MoveCard(ctx,
		reorder.Location{Column: string(model.ItemNew), Index: 0},
		reorder.Location{Column: string(model.ItemReady), Index: 0},
	)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())

	server, err := f.env.Store.UserStories(ctx, scope.BacklogID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b, c}, ids(server, storyID))
	assert.Equal(t, ids(server, storyID), ids(list.Items(), storyID))
	assert.Equal(t, "Ready", list.Items()[2].Status)
	assert.Equal(t, []int64{c}, ids(board.Cards(string(model.ItemReady)), itemID))

	// Once stopped, invalidations no longer touch the views.
	stop()
	require.NoError(t, f.env.Store.DeleteUserStory(ctx, a))
	stories.invalidate(scope)
	assert.Len(t, list.Items(), 3)
}

func TestBoardOrderMergesIntoServerOrder(t *testing.T) {
	story := func(id int64, status string) model.UserStory {
		return model.UserStory{ID: id, Status: status}
	}
	item := func(id int64, status model.ItemStatus) model.BacklogItem {
		return model.BacklogItem{ID: id, Status: status}
	}
	entries := func(order []model.OrderEntry) []int64 {
		out := make([]int64, len(order))
		for i, e := range order {
			assert.Equal(t, i, e.Order)
			out[i] = e.ID
		}
		return out
	}

	current := []model.UserStory{
		story(1, "Pending"), story(2, "Pending"), story(3, "Pending"),
		story(4, "Pending"), story(5, "Done"),
	}

	// In-place reorder; story 4 was added after the board loaded.
	order := boardOrder(current, []model.BacklogItem{
		item(3, model.ItemNew), item(1, model.ItemNew), item(2, model.ItemNew),
	})
	assert.Equal(t, []int64{3, 1, 2, 4, 5}, entries(order))

	// 2 moves to Done behind 5.
	order = boardOrder(current, []model.BacklogItem{
		item(1, model.ItemNew), item(3, model.ItemNew),
		item(5, model.ItemDone), item(2, model.ItemDone),
	})
	assert.Equal(t, []int64{1, 3, 4, 5, 2}, entries(order))

	// Cards deleted on the server are skipped.
	order = boardOrder(current, []model.BacklogItem{item(9, model.ItemReady), item(4, model.ItemReady)})
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, entries(order))
}
