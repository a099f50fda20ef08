package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kidandcat/portfolio/internal/model"
)

const projectColumns = "id, name, description, status, priority, progress, end_date"

func scanProject(row scanner) (model.Project, error) {
	var p model.Project
	var end sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Priority, &p.Progress, &end); err != nil {
		return p, err
	}
	if end.Valid {
		v := end.String
		p.EndDate = &v
	}
	return p, nil
}

func (s *Store) Projects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Members, err = s.projectMembers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) Project(ctx context.Context, id int64) (model.Project, error) {
	p, err := scanProject(s.DB.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if err != nil {
		return p, notFound(err, "project", id)
	}
	p.Members, err = s.projectMembers(ctx, id)
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	var id int64
	err := s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO projects (name, description, status, priority, progress, end_date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			in.Name, in.Description, in.Status, in.Priority, in.Progress, in.EndDate, s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		id, _ = res.LastInsertId()
		for _, uid := range in.MemberIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)", id, uid,
			); err != nil {
				return fmt.Errorf("add member %d: %w", uid, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}
	return s.Project(ctx, id)
}

func (s *Store) projectMembers(ctx context.Context, projectID int64) ([]model.User, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT u.id, u.first_name, u.last_name, u.email, u.is_active, u.role_id, u.created_at "+
			"FROM users u JOIN project_members m ON m.user_id = u.id WHERE m.project_id = ? ORDER BY u.id",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
