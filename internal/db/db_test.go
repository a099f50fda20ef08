package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.SeedRoles(context.Background()))
	return s
}

func TestRolesSeededOnce(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.SeedRoles(ctx))

	rs, err := s.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, rs, len(roles.All))
	for _, r := range rs {
		_, err := roles.Parse(r.Name)
		assert.NoError(t, err, r.Name)
	}
}

func TestUserLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	devID, err := s.RoleID(ctx, roles.Developer)
	require.NoError(t, err)

	u, err := s.CreateUser(ctx, model.UserInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret1", RoleID: &devID,
	})
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	require.NotNil(t, u.RoleID)
	assert.Equal(t, devID, *u.RoleID)

	_, err = s.CreateUser(ctx, model.UserInput{FirstName: "A", LastName: "B", Email: "ADA@example.com", Password: "x"})
	require.ErrorIs(t, err, ErrConflict)

	got, err := s.Authenticate(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = s.Authenticate(ctx, "ada@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	role, err := s.UserRole(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, roles.Developer, role)

	u, err = s.SetUserActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	_, err = s.Authenticate(ctx, "ada@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	u, err = s.UpdateUser(ctx, u.ID, model.UserInput{FirstName: "Ada", LastName: "King", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "King", u.LastName)
	assert.Nil(t, u.RoleID)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
	_, err = s.User(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.EnsureAdmin(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.Authenticate(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	role, err := s.UserRole(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, roles.SuperAdmin, role)
}

func TestBacklogsAndStories(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, model.ProjectInput{Name: "Apollo", Status: model.StatusPlanning})
	require.NoError(t, err)
	other, err := s.CreateProject(ctx, model.ProjectInput{Name: "Gemini", Status: model.StatusPlanning})
	require.NoError(t, err)

	b, err := s.CreateBacklog(ctx, model.BacklogInput{Title: "Sprint 1", ProjectID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, b.UserStories)

	var ids []int64
	for _, title := range []string{"a", "b", "c"} {
		st, err := s.CreateUserStory(ctx, p.ID, b.ID, model.UserStoryInput{Title: title})
		require.NoError(t, err)
		assert.Equal(t, "Pending", st.Status)
		ids = append(ids, st.ID)
	}

	_, err = s.CreateUserStory(ctx, other.ID, b.ID, model.UserStoryInput{Title: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	stories, err := s.UserStories(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, stories, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{stories[0].Order, stories[1].Order, stories[2].Order})

	require.NoError(t, s.ReorderStories(ctx, b.ID, []model.OrderEntry{
		{ID: ids[2], Order: 0}, {ID: ids[0], Order: 1}, {ID: ids[1], Order: 2},
	}))
	stories, err = s.UserStories(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2], ids[0], ids[1]}, []int64{stories[0].ID, stories[1].ID, stories[2].ID})

	b2, err := s.CreateBacklog(ctx, model.BacklogInput{Title: "Sprint 2", ProjectID: p.ID})
	require.NoError(t, err)
	err = s.ReorderStories(ctx, b2.ID, []model.OrderEntry{{ID: ids[0], Order: 0}})
	require.ErrorIs(t, err, ErrInvalid)

	list, err := s.BacklogsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Len(t, list[0].UserStories, 3)

	require.NoError(t, s.DeleteBacklog(ctx, b.ID))
	_, err = s.UserStory(ctx, ids[0])
	require.ErrorIs(t, err, ErrNotFound, "stories cascade with their backlog")
}

func TestTokens(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	u, err := s.CreateUser(ctx, model.UserInput{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)

	pair, err := s.IssueTokens(ctx, u.ID, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	got, err := s.UserByToken(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.UserByToken(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrNotFound, "refresh tokens do not authenticate requests")

	_, next, err := s.RotateRefresh(ctx, pair.Refresh, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, next.Access)
	_, _, err = s.RotateRefresh(ctx, pair.Refresh, time.Hour, 24*time.Hour)
	require.ErrorIs(t, err, ErrNotFound)

	now = now.Add(2 * time.Hour)
	_, err = s.UserByToken(ctx, next.Access)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RevokeToken(ctx, next.Refresh))
	_, _, err = s.RotateRefresh(ctx, next.Refresh, time.Hour, time.Hour)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKV(t *testing.T) {
	kv := openTest(t).KV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "token", "a"))
	require.NoError(t, kv.Set(ctx, "token", "b"))
	v, ok, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	require.NoError(t, kv.Delete(ctx, "token", "missing"))
	_, ok, err = kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}
