package manage

import (
	"context"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/mutation"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/validate"
)

// Projects are created and read; there is no edit or delete flow.
type Projects struct {
	d      Deps
	Create *mutation.Mutation[model.ProjectInput, model.Project]
}

func NewProjects(d Deps) *Projects {
	d = d.normalize()
	return &Projects{
		d: d,
		Create: newMutation(d, "createProject", "Project created successfully", "Failed to create project",
			d.API.CreateProject,
			func(model.ProjectInput, model.Project) []query.Key { return []query.Key{ProjectsKey()} }),
	}
}

func (p *Projects) List() query.Query[[]model.Project] {
	return query.New(p.d.Cache, ProjectsKey(), p.d.API.ListProjects)
}

// Get is disabled until id is known.
func (p *Projects) Get(id int64) query.Query[model.Project] {
	q := query.New(p.d.Cache, ProjectKey(id), func(ctx context.Context) (model.Project, error) {
		return p.d.API.GetProject(ctx, id)
	})
	q.Enabled = id != 0
	return q
}

func (p *Projects) CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	if res := validate.ProjectForm(in); !res.IsValid {
		p.d.Notify.Error(res.Message)
		return model.Project{}, res.Err()
	}
	return p.Create.Run(ctx, in)
}
