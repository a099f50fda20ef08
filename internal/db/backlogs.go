package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kidandcat/portfolio/internal/model"
)

// ErrInvalid marks a request the store refuses on content, e.g. a reorder
// naming a story of another backlog.
var ErrInvalid = errors.New("invalid")

const backlogColumns = "id, project_id, title, description, priority, status, estimated_hours"

func scanBacklog(row scanner) (model.Backlog, error) {
	var b model.Backlog
	var hours sql.NullFloat64
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Title, &b.Description, &b.Priority, &b.Status, &hours); err != nil {
		return b, err
	}
	if hours.Valid {
		v := hours.Float64
		b.EstimatedHours = &v
	}
	return b, nil
}

// BacklogsByProject returns the project's backlogs with their stories.
func (s *Store) BacklogsByProject(ctx context.Context, projectID int64) ([]model.Backlog, error) {
	if _, err := s.Project(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, "SELECT "+backlogColumns+" FROM backlogs WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("query backlogs: %w", err)
	}
	defer rows.Close()

	out := []model.Backlog{}
	for rows.Next() {
		b, err := scanBacklog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].UserStories, err = s.UserStories(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) Backlog(ctx context.Context, id int64) (model.Backlog, error) {
	b, err := scanBacklog(s.DB.QueryRowContext(ctx, "SELECT "+backlogColumns+" FROM backlogs WHERE id = ?", id))
	if err != nil {
		return b, notFound(err, "backlog", id)
	}
	b.UserStories, err = s.UserStories(ctx, id)
	return b, err
}

func (s *Store) CreateBacklog(ctx context.Context, in model.BacklogInput) (model.Backlog, error) {
	if _, err := s.Project(ctx, in.ProjectID); err != nil {
		return model.Backlog{}, err
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO backlogs (project_id, title, description, priority, status, estimated_hours, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		in.ProjectID, in.Title, in.Description, in.Priority, in.Status, in.EstimatedHours, s.now().UTC(),
	)
	if err != nil {
		return model.Backlog{}, fmt.Errorf("insert backlog: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.Backlog(ctx, id)
}

// UpdateBacklog rewrites the descriptive fields; the owning project is fixed.
func (s *Store) UpdateBacklog(ctx context.Context, id int64, in model.BacklogInput) (model.Backlog, error) {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE backlogs SET title = ?, description = ?, priority = ?, status = ?, estimated_hours = ? WHERE id = ?",
		in.Title, in.Description, in.Priority, in.Status, in.EstimatedHours, id,
	)
	if err != nil {
		return model.Backlog{}, fmt.Errorf("update backlog: %w", err)
	}
	if err := checkAffected(res, "backlog", id); err != nil {
		return model.Backlog{}, err
	}
	return s.Backlog(ctx, id)
}

func (s *Store) DeleteBacklog(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM backlogs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete backlog: %w", err)
	}
	return checkAffected(res, "backlog", id)
}
