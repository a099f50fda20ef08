package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kidandcat/portfolio/internal/model"
)

const storyColumns = "id, backlog_id, title, description, acceptance_criteria, status, priority, points, comment_count, sort_order"

func scanStory(row scanner) (model.UserStory, error) {
	var st model.UserStory
	err := row.Scan(&st.ID, &st.BacklogID, &st.Title, &st.Description, &st.AcceptanceCriteria,
		&st.Status, &st.Priority, &st.Points, &st.CommentCount, &st.Order)
	return st, err
}

// UserStories returns the stories of a backlog in display order.
func (s *Store) UserStories(ctx context.Context, backlogID int64) ([]model.UserStory, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+storyColumns+" FROM user_stories WHERE backlog_id = ? ORDER BY sort_order, id", backlogID)
	if err != nil {
		return nil, fmt.Errorf("query user stories: %w", err)
	}
	defer rows.Close()

	out := []model.UserStory{}
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ProjectUserStories checks that the backlog belongs to the project before
// listing its stories.
func (s *Store) ProjectUserStories(ctx context.Context, projectID, backlogID int64) ([]model.UserStory, error) {
	if err := s.backlogInProject(ctx, projectID, backlogID); err != nil {
		return nil, err
	}
	return s.UserStories(ctx, backlogID)
}

func (s *Store) UserStory(ctx context.Context, id int64) (model.UserStory, error) {
	st, err := scanStory(s.DB.QueryRowContext(ctx, "SELECT "+storyColumns+" FROM user_stories WHERE id = ?", id))
	if err != nil {
		return st, notFound(err, "user story", id)
	}
	return st, nil
}

// CreateUserStory appends a story at the end of the backlog.
func (s *Store) CreateUserStory(ctx context.Context, projectID, backlogID int64, in model.UserStoryInput) (model.UserStory, error) {
	if err := s.backlogInProject(ctx, projectID, backlogID); err != nil {
		return model.UserStory{}, err
	}
	var id int64
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(sort_order) + 1, 0) FROM user_stories WHERE backlog_id = ?", backlogID,
		).Scan(&next); err != nil {
			return fmt.Errorf("next order: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO user_stories (backlog_id, title, description, acceptance_criteria, status, priority, points, sort_order, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			backlogID, in.Title, in.Description, in.AcceptanceCriteria, orDefault(in.Status, "Pending"), orDefault(in.Priority, "Medium"), in.Points, next, s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert user story: %w", err)
		}
		id, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return model.UserStory{}, err
	}
	return s.UserStory(ctx, id)
}

func (s *Store) UpdateUserStory(ctx context.Context, id int64, in model.UserStoryInput) (model.UserStory, error) {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE user_stories SET title = ?, description = ?, acceptance_criteria = ?, status = ?, priority = ?, points = ? WHERE id = ?",
		in.Title, in.Description, in.AcceptanceCriteria, orDefault(in.Status, "Pending"), orDefault(in.Priority, "Medium"), in.Points, id,
	)
	if err != nil {
		return model.UserStory{}, fmt.Errorf("update user story: %w", err)
	}
	if err := checkAffected(res, "user story", id); err != nil {
		return model.UserStory{}, err
	}
	return s.UserStory(ctx, id)
}

func (s *Store) DeleteUserStory(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM user_stories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user story: %w", err)
	}
	return checkAffected(res, "user story", id)
}

// ReorderStories applies an id-to-order mapping atomically. Every id must be
// a story of the backlog.
func (s *Store) ReorderStories(ctx context.Context, backlogID int64, order []model.OrderEntry) error {
	if _, err := s.Backlog(ctx, backlogID); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, e := range order {
			res, err := tx.ExecContext(ctx,
				"UPDATE user_stories SET sort_order = ? WHERE id = ? AND backlog_id = ?", e.Order, e.ID, backlogID)
			if err != nil {
				return fmt.Errorf("reorder story %d: %w", e.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("story %d is not in backlog %d: %w", e.ID, backlogID, ErrInvalid)
			}
		}
		return nil
	})
}

func (s *Store) backlogInProject(ctx context.Context, projectID, backlogID int64) error {
	b, err := s.Backlog(ctx, backlogID)
	if err != nil {
		return err
	}
	if b.ProjectID != projectID {
		return fmt.Errorf("backlog %d in project %d: %w", backlogID, projectID, ErrNotFound)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
