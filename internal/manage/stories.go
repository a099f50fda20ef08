package manage

import (
	"context"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/mutation"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/reorder"
	"github.com/kidandcat/portfolio/internal/validate"
)

// StoryScope addresses a backlog inside its project.
type StoryScope struct {
	ProjectID int64
	BacklogID int64
}

func (s StoryScope) valid() bool { return s.ProjectID != 0 && s.BacklogID != 0 }

type StoryCreate struct {
	StoryScope
	Input model.UserStoryInput
}

type StoryUpdate struct {
	StoryScope
	ID    int64
	Input model.UserStoryInput
}

type StoryDelete struct {
	StoryScope
	ID int64
}

type UserStories struct {
	d Deps

	Create *mutation.Mutation[StoryCreate, model.UserStory]
	Update *mutation.Mutation[StoryUpdate, model.UserStory]
	Delete *mutation.Mutation[StoryDelete, Nothing]
}

func NewUserStories(d Deps) *UserStories {
	d = d.normalize()
	return &UserStories{
		d: d,
		Create: newMutation(d, "createUserStory", "User story created successfully", "Failed to create user story",
			func(ctx context.Context, in StoryCreate) (model.UserStory, error) {
				return d.API.CreateUserStory(ctx, in.ProjectID, in.BacklogID, in.Input)
			},
			func(in StoryCreate, _ model.UserStory) []query.Key {
				return storyKeys(in.ProjectID, in.BacklogID)
			}),
		Update: newMutation(d, "updateUserStory", "User story updated successfully", "Failed to update user story",
			func(ctx context.Context, in StoryUpdate) (model.UserStory, error) {
				return d.API.UpdateUserStory(ctx, in.ID, in.Input)
			},
			func(in StoryUpdate, _ model.UserStory) []query.Key {
				return storyKeys(in.ProjectID, in.BacklogID)
			}),
		Delete: newMutation(d, "deleteUserStory", "User story deleted successfully", "Failed to delete user story",
			func(ctx context.Context, in StoryDelete) (Nothing, error) {
				return noBody(d.API.DeleteUserStory(ctx, in.ID))
			},
			func(in StoryDelete, _ Nothing) []query.Key {
				return storyKeys(in.ProjectID, in.BacklogID)
			}),
	}
}

// List is disabled until both the project and the backlog are known.
func (u *UserStories) List(scope StoryScope) query.Query[[]model.UserStory] {
	q := query.New(u.d.Cache, UserStoriesKey(scope.BacklogID), func(ctx context.Context) ([]model.UserStory, error) {
		return u.d.API.UserStories(ctx, scope.ProjectID, scope.BacklogID)
	})
	q.Enabled = scope.valid()
	return q
}

func (u *UserStories) CreateUserStory(ctx context.Context, scope StoryScope, in model.UserStoryInput) (model.UserStory, error) {
	if res := validate.UserStoryForm(in); !res.IsValid {
		u.d.Notify.Error(res.Message)
		return model.UserStory{}, res.Err()
	}
	return u.Create.Run(ctx, StoryCreate{StoryScope: scope, Input: in})
}

func (u *UserStories) UpdateUserStory(ctx context.Context, scope StoryScope, id int64, in model.UserStoryInput) (model.UserStory, error) {
	if res := validate.UserStoryForm(in); !res.IsValid {
		u.d.Notify.Error(res.Message)
		return model.UserStory{}, res.Err()
	}
	return u.Update.Run(ctx, StoryUpdate{StoryScope: scope, ID: id, Input: in})
}

func (u *UserStories) DeleteUserStory(ctx context.Context, scope StoryScope, id int64) error {
	_, err := u.Delete.Run(ctx, StoryDelete{StoryScope: scope, ID: id})
	return err
}

// Reorderable loads the backlog's stories into a drag-and-drop list whose
// drops are sent to the order endpoint. A failed save reloads the server
// order.
func (u *UserStories) Reorderable(ctx context.Context, scope StoryScope, onChange func([]model.UserStory)) (*reorder.List[model.UserStory], error) {
	q := u.List(scope)
	stories, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return reorder.NewList(stories, reorder.ListConfig[model.UserStory]{
		SetOrder: func(st *model.UserStory, i int) { st.Order = i },
		Persist: func(ctx context.Context, items []model.UserStory) error {
			if err := u.d.API.ReorderBacklog(ctx, scope.BacklogID, orderOf(items)); err != nil {
				return err
			}
			u.invalidate(scope)
			return nil
		},
		Reload: func(ctx context.Context) ([]model.UserStory, error) {
			u.invalidate(scope)
			return q.Get(ctx)
		},
		Notify:         u.d.Notify,
		FailureMessage: "Failed to reorder backlog",
		OnChange:       onChange,
		Log:            u.d.Log,
	}), nil
}

func (u *UserStories) invalidate(scope StoryScope) {
	for _, k := range storyKeys(scope.ProjectID, scope.BacklogID) {
		u.d.Cache.Invalidate(k)
	}
}

func orderOf(items []model.UserStory) []model.OrderEntry {
	out := make([]model.OrderEntry, len(items))
	for i, st := range items {
		out[i] = model.OrderEntry{ID: st.ID, Order: st.Order}
	}
	return out
}
