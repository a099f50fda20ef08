package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kidandcat/portfolio/internal/model"
)

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	User         model.User `json:"user"`
	Role         string     `json:"role"`
}

// Auth

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	if err := c.do(ctx, http.MethodGet, "/users/roles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPost, "/users", in, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in model.UserInput) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), in, &out)
	return out, err
}

func (c *Client) SetUserActive(ctx context.Context, id int64, active bool) (model.User, error) {
	var out model.User
	body := map[string]bool{"isActive": active}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d/active", id), body, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// Projects

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/project", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/project/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPost, "/project", in, &out)
	return out, err
}

// Backlogs

func (c *Client) BacklogsByProject(ctx context.Context, projectID int64) ([]model.Backlog, error) {
	var out []model.Backlog
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/backlog/project/%d", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBacklog(ctx context.Context, id int64) (model.Backlog, error) {
	var out model.Backlog
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/backlog/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateBacklog(ctx context.Context, in model.BacklogInput) (model.Backlog, error) {
	var out model.Backlog
	err := c.do(ctx, http.MethodPost, "/backlog", in, &out)
	return out, err
}

func (c *Client) UpdateBacklog(ctx context.Context, id int64, in model.BacklogInput) (model.Backlog, error) {
	var out model.Backlog
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/backlog/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteBacklog(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/backlog/%d", id), nil, nil)
}

// ReorderBacklog submits the full id-to-order mapping of a backlog's stories.
func (c *Client) ReorderBacklog(ctx context.Context, backlogID int64, order []model.OrderEntry) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/backlog/%d/order", backlogID), order, nil)
}

// User stories

func (c *Client) UserStories(ctx context.Context, projectID, backlogID int64) ([]model.UserStory, error) {
	var out []model.UserStory
	path := fmt.Sprintf("/backlog/%d/%d/userstory", projectID, backlogID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUserStory(ctx context.Context, projectID, backlogID int64, in model.UserStoryInput) (model.UserStory, error) {
	var out model.UserStory
	path := fmt.Sprintf("/backlog/%d/%d/userstory", projectID, backlogID)
	err := c.do(ctx, http.MethodPost, path, in, &out)
	return out, err
}

func (c *Client) UpdateUserStory(ctx context.Context, id int64, in model.UserStoryInput) (model.UserStory, error) {
	var out model.UserStory
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/UserStory/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteUserStory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/UserStory/%d", id), nil, nil)
}
