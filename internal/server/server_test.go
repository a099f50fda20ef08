package server_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
	"github.com/kidandcat/portfolio/internal/server/servertest"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func login(t *testing.T, env *servertest.Env, email, password string) (*client.Client, *client.AuthResponse) {
	t.Helper()
	c := client.New(env.URL())
	resp, err := c.Login(context.Background(), email, password)
	require.NoError(t, err)
	c.SetTokenSource(staticToken(resp.Token))
	return c, resp
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "want *client.APIError, got %v", err)
	return apiErr.Status
}

func TestLoginRefreshLogout(t *testing.T) {
	env := servertest.New(t)
	ctx := context.Background()

	anon := client.New(env.URL())
	_, err := anon.Login(ctx, servertest.AdminEmail, "wrong")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, []string{"Invalid email or password"}, client.Messages(err, ""))

	_, err = anon.ListUsers(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	c, resp := login(t, env, servertest.AdminEmail, servertest.AdminPassword)
	role, err := roles.Parse(resp.Role)
	require.NoError(t, err)
	assert.Equal(t, roles.SuperAdmin, role)
	assert.NotEmpty(t, resp.RefreshToken)

	refreshed, err := anon.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.Token, refreshed.Token)
	_, err = anon.Refresh(ctx, resp.RefreshToken)
	require.ErrorIs(t, err, client.ErrUnauthorized, "refresh tokens are single use")

	require.NoError(t, c.Logout(ctx))
	_, err = c.ListUsers(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestUserErrorsUseFieldEnvelope(t *testing.T) {
	env := servertest.New(t)
	ctx := context.Background()
	c, _ := login(t, env, servertest.AdminEmail, servertest.AdminPassword)

	_, err := c.CreateUser(ctx, model.UserInput{FirstName: "", LastName: "Doe", Email: "nope", Password: "123"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
	assert.Equal(t, []string{
		"Please enter a valid email address",
		"First name is required",
		"Password must be at least 6 characters long",
	}, client.Messages(err, ""))

	_, err = c.CreateUser(ctx, model.UserInput{FirstName: "Dup", LastName: "Admin", Email: "ADMIN@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))
	assert.Equal(t, []string{"A user with this email already exists"}, client.Messages(err, ""))
}

func TestUserManagementRequiresRole(t *testing.T) {
	env := servertest.New(t)
	ctx := context.Background()
	admin, _ := login(t, env, servertest.AdminEmail, servertest.AdminPassword)

	rs, err := admin.ListRoles(ctx)
	require.NoError(t, err)
	var devID int64
	for _, r := range rs {
		if parsed, _ := roles.Parse(r.Name); parsed == roles.Developer {
			devID = r.ID
		}
	}
	require.NotZero(t, devID)

	dev, err := admin.CreateUser(ctx, model.UserInput{
		FirstName: "Dev", LastName: "One", Email: "dev@example.com", Password: "secret1", RoleID: &devID,
	})
	require.NoError(t, err)

	dc, resp := login(t, env, "dev@example.com", "secret1")
	assert.Equal(t, roles.Developer.Label(), resp.Role)
	_, err = dc.SetUserActive(ctx, dev.ID, false)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	u, err := admin.SetUserActive(ctx, dev.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	_, err = client.New(env.URL()).Login(ctx, "dev@example.com", "secret1")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	require.NoError(t, admin.DeleteUser(ctx, dev.ID))
	err = admin.DeleteUser(ctx, dev.ID)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestBacklogAndStoryRoutes(t *testing.T) {
	env := servertest.New(t)
	ctx := context.Background()
	c, _ := login(t, env, servertest.AdminEmail, servertest.AdminPassword)

	p, err := c.CreateProject(ctx, model.ProjectInput{Name: "Apollo", Status: model.StatusInProgress, Progress: 40})
	require.NoError(t, err)
	_, err = c.CreateProject(ctx, model.ProjectInput{Name: "Bad", Status: "Someday"})
	assert.Equal(t, []string{"Please choose a valid status"}, client.Messages(err, ""))

	got, err := c.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apollo", got.Name)

	b, err := c.CreateBacklog(ctx, model.BacklogInput{Title: "Sprint 1", ProjectID: p.ID})
	require.NoError(t, err)

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		st, err := c.CreateUserStory(ctx, p.ID, b.ID, model.UserStoryInput{
			Title: title, Description: "d", AcceptanceCriteria: "ac", Status: "Pending", Priority: "Medium",
		})
		require.NoError(t, err)
		ids = append(ids, st.ID)
	}

	require.NoError(t, c.ReorderBacklog(ctx, b.ID, []model.OrderEntry{
		{ID: ids[1], Order: 0}, {ID: ids[2], Order: 1}, {ID: ids[0], Order: 2},
	}))
	stories, err := c.UserStories(ctx, p.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, stories, 3)
	assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, []int64{stories[0].ID, stories[1].ID, stories[2].ID})

	updated, err := c.UpdateUserStory(ctx, ids[0], model.UserStoryInput{Title: "one", Status: "Done"})
	require.NoError(t, err)
	assert.Equal(t, "Done", updated.Status)
	assert.Equal(t, 2, updated.Order, "updates keep the position")

	byProject, err := c.BacklogsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Len(t, byProject[0].UserStories, 3)

	require.NoError(t, c.DeleteUserStory(ctx, ids[2]))
	require.NoError(t, c.DeleteBacklog(ctx, b.ID))
	_, err = c.GetBacklog(ctx, b.ID)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}
