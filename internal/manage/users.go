package manage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/mutation"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/validate"
)

type UserUpdate struct {
	ID    int64
	Input model.UserInput
}

type UserActive struct {
	ID     int64
	Active bool
}

type Users struct {
	d Deps

	Create *mutation.Mutation[model.UserInput, model.User]
	Update *mutation.Mutation[UserUpdate, model.User]
	Toggle *mutation.Mutation[UserActive, model.User]
	Delete *mutation.Mutation[int64, Nothing]
}

func NewUsers(d Deps) *Users {
	d = d.normalize()
	return &Users{
		d: d,
		Create: newMutation(d, "createUser", "User created successfully", "Failed to create user",
			d.API.CreateUser,
			func(model.UserInput, model.User) []query.Key { return userKeys() }),
		Update: newMutation(d, "updateUser", "User updated successfully", "Failed to update user",
			func(ctx context.Context, in UserUpdate) (model.User, error) {
				return d.API.UpdateUser(ctx, in.ID, in.Input)
			},
			func(UserUpdate, model.User) []query.Key { return userKeys() }),
		Toggle: newMutation(d, "toggleUser", "User status updated", "Failed to update user status",
			func(ctx context.Context, in UserActive) (model.User, error) {
				return d.API.SetUserActive(ctx, in.ID, in.Active)
			},
			func(UserActive, model.User) []query.Key { return userKeys() }),
		Delete: newMutation(d, "deleteUser", "User deleted successfully", "Failed to delete user",
			func(ctx context.Context, id int64) (Nothing, error) { return noBody(d.API.DeleteUser(ctx, id)) },
			func(int64, Nothing) []query.Key { return userKeys() }),
	}
}

// userKeys also covers projects, which embed their members.
func userKeys() []query.Key { return []query.Key{UsersKey(), ProjectsKey()} }

func (u *Users) List() query.Query[[]model.User] {
	return query.New(u.d.Cache, UsersKey(), u.d.API.ListUsers)
}

func (u *Users) Roles() query.Query[[]model.Role] {
	return query.New(u.d.Cache, RolesKey(), u.d.API.ListRoles)
}

// Directory is what the user management screen renders from.
type Directory struct {
	Users []model.User
	Roles []model.Role
}

// LoadDirectory fetches roles and users in parallel and waits for both.
func (u *Users) LoadDirectory(ctx context.Context) (Directory, error) {
	var dir Directory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dir.Users, err = u.List().Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		dir.Roles, err = u.Roles().Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Directory{}, err
	}
	return dir, nil
}

// CreateUser validates the form and checks the email against the loaded
// users before sending anything.
func (u *Users) CreateUser(ctx context.Context, in model.UserInput) (model.User, error) {
	if err := u.check(ctx, in, 0, true); err != nil {
		return model.User{}, err
	}
	return u.Create.Run(ctx, in)
}

// UpdateUser is CreateUser for an existing account; the password is optional.
func (u *Users) UpdateUser(ctx context.Context, id int64, in model.UserInput) (model.User, error) {
	if err := u.check(ctx, in, id, false); err != nil {
		return model.User{}, err
	}
	return u.Update.Run(ctx, UserUpdate{ID: id, Input: in})
}

func (u *Users) SetActive(ctx context.Context, id int64, active bool) (model.User, error) {
	return u.Toggle.Run(ctx, UserActive{ID: id, Active: active})
}

func (u *Users) DeleteUser(ctx context.Context, id int64) error {
	_, err := u.Delete.Run(ctx, id)
	return err
}

func (u *Users) check(ctx context.Context, in model.UserInput, excludeID int64, create bool) error {
	res := validate.UserForm(in.FirstName, in.LastName, in.Email, in.Password, create)
	if !res.IsValid {
		u.d.Notify.Error(res.Message)
		return res.Err()
	}
	users, err := u.List().Get(ctx)
	if err != nil {
		u.d.Log.Warnw("email check skipped, users not loaded", "error", err)
		return nil
	}
	if validate.EmailTaken(users, in.Email, excludeID) {
		u.d.Notify.Error(validate.MsgEmailTaken)
		return (validate.Result{Message: validate.MsgEmailTaken}).Err()
	}
	return nil
}
