package manage

import (
	"context"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/mutation"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/validate"
)

type BacklogUpdate struct {
	ID    int64
	Input model.BacklogInput
}

// BacklogRef names a backlog together with its owning project, which is what
// a delete needs to know to invalidate the project's list.
type BacklogRef struct {
	ID        int64
	ProjectID int64
}

type Backlogs struct {
	d Deps

	Create *mutation.Mutation[model.BacklogInput, model.Backlog]
	Update *mutation.Mutation[BacklogUpdate, model.Backlog]
	Delete *mutation.Mutation[BacklogRef, Nothing]
}

func NewBacklogs(d Deps) *Backlogs {
	d = d.normalize()
	return &Backlogs{
		d: d,
		Create: newMutation(d, "createBacklog", "Backlog created successfully", "Failed to create backlog",
			d.API.CreateBacklog,
			func(in model.BacklogInput, _ model.Backlog) []query.Key {
				return []query.Key{BacklogsKey(in.ProjectID)}
			}),
		Update: newMutation(d, "updateBacklog", "Backlog updated successfully", "Failed to update backlog",
			func(ctx context.Context, in BacklogUpdate) (model.Backlog, error) {
				return d.API.UpdateBacklog(ctx, in.ID, in.Input)
			},
			func(in BacklogUpdate, out model.Backlog) []query.Key {
				return []query.Key{BacklogKey(in.ID), BacklogsKey(out.ProjectID)}
			}),
		Delete: newMutation(d, "deleteBacklog", "Backlog deleted successfully", "Failed to delete backlog",
			func(ctx context.Context, ref BacklogRef) (Nothing, error) {
				return noBody(d.API.DeleteBacklog(ctx, ref.ID))
			},
			func(ref BacklogRef, _ Nothing) []query.Key {
				return storyKeys(ref.ProjectID, ref.ID)
			}),
	}
}

// ByProject lists a project's backlogs; disabled while projectID is unset.
func (b *Backlogs) ByProject(projectID int64) query.Query[[]model.Backlog] {
	q := query.New(b.d.Cache, BacklogsKey(projectID), func(ctx context.Context) ([]model.Backlog, error) {
		return b.d.API.BacklogsByProject(ctx, projectID)
	})
	q.Enabled = projectID != 0
	return q
}

func (b *Backlogs) Get(id int64) query.Query[model.Backlog] {
	q := query.New(b.d.Cache, BacklogKey(id), func(ctx context.Context) (model.Backlog, error) {
		return b.d.API.GetBacklog(ctx, id)
	})
	q.Enabled = id != 0
	return q
}

func (b *Backlogs) CreateBacklog(ctx context.Context, in model.BacklogInput) (model.Backlog, error) {
	if res := validate.BacklogForm(in); !res.IsValid {
		b.d.Notify.Error(res.Message)
		return model.Backlog{}, res.Err()
	}
	return b.Create.Run(ctx, in)
}

func (b *Backlogs) UpdateBacklog(ctx context.Context, id int64, in model.BacklogInput) (model.Backlog, error) {
	if res := validate.BacklogForm(in); !res.IsValid {
		b.d.Notify.Error(res.Message)
		return model.Backlog{}, res.Err()
	}
	return b.Update.Run(ctx, BacklogUpdate{ID: id, Input: in})
}

func (b *Backlogs) DeleteBacklog(ctx context.Context, ref BacklogRef) error {
	_, err := b.Delete.Run(ctx, ref)
	return err
}
