package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Roles

// SeedRoles inserts one row per assignable role, keyed by its label.
func (s *Store) SeedRoles(ctx context.Context) error {
	for _, r := range roles.All {
		if _, err := s.DB.ExecContext(ctx, "INSERT OR IGNORE INTO roles (name) VALUES (?)", r.Label()); err != nil {
			return fmt.Errorf("seed role %s: %w", r, err)
		}
	}
	return nil
}

func (s *Store) Roles(ctx context.Context) ([]model.Role, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	out := []model.Role{}
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RoleID returns the row id of r.
func (s *Store) RoleID(ctx context.Context, r roles.Role) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, "SELECT id FROM roles WHERE name = ?", r.Label()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("role %s: %w", r, ErrNotFound)
	}
	return id, err
}

// UserRole resolves the role of u; users without one are Unknown.
func (s *Store) UserRole(ctx context.Context, u model.User) (roles.Role, error) {
	if u.RoleID == nil {
		return roles.Unknown, nil
	}
	var name string
	err := s.DB.QueryRowContext(ctx, "SELECT name FROM roles WHERE id = ?", *u.RoleID).Scan(&name)
	if err != nil {
		return roles.Unknown, notFound(err, "role", *u.RoleID)
	}
	r, err := roles.Parse(name)
	if err != nil {
		return roles.Unknown, nil
	}
	return r, nil
}

// Users

const userColumns = "id, first_name, last_name, email, is_active, role_id, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var roleID sql.NullInt64
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.IsActive, &roleID, &u.CreatedAt); err != nil {
		return u, err
	}
	if roleID.Valid {
		id := roleID.Int64
		u.RoleID = &id
	}
	return u, nil
}

func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
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

func (s *Store) User(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return u, notFound(err, "user", id)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, in model.UserInput) (model.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO users (first_name, last_name, email, password_hash, is_active, role_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), strings.TrimSpace(in.Email),
		hash, active, in.RoleID, s.now().UTC(),
	)
	if err != nil {
		if isUnique(err) {
			return model.User{}, fmt.Errorf("email %s: %w", in.Email, ErrConflict)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.User(ctx, id)
}

// UpdateUser rewrites the profile fields. The password changes only when
// a new one is given.
func (s *Store) UpdateUser(ctx context.Context, id int64, in model.UserInput) (model.User, error) {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET first_name = ?, last_name = ?, email = ?, role_id = ? WHERE id = ?",
			strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), strings.TrimSpace(in.Email), in.RoleID, id,
		)
		if err != nil {
			if isUnique(err) {
				return fmt.Errorf("email %s: %w", in.Email, ErrConflict)
			}
			return fmt.Errorf("update user: %w", err)
		}
		if err := checkAffected(res, "user", id); err != nil {
			return err
		}
		if in.IsActive != nil {
			if _, err := tx.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", *in.IsActive, id); err != nil {
				return fmt.Errorf("update user active: %w", err)
			}
		}
		if in.Password != "" {
			hash, err := hashPassword(in.Password)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return s.User(ctx, id)
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) (model.User, error) {
	res, err := s.DB.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return model.User{}, fmt.Errorf("update user active: %w", err)
	}
	if err := checkAffected(res, "user", id); err != nil {
		return model.User{}, err
	}
	return s.User(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return checkAffected(res, "user", id)
}

// Authenticate checks email and password. Inactive users cannot log in.
func (s *Store) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	var hash string
	var id int64
	err := s.DB.QueryRowContext(ctx, "SELECT id, password_hash FROM users WHERE email = ?", strings.TrimSpace(email)).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.User{}, ErrInvalidCredentials
	}
	u, err := s.User(ctx, id)
	if err != nil {
		return u, err
	}
	if !u.IsActive {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates a Super Admin with the given credentials unless a user
// with that email already exists. It reports whether a user was created.
func (s *Store) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	roleID, err := s.RoleID(ctx, roles.SuperAdmin)
	if err != nil {
		return false, err
	}
	_, err = s.CreateUser(ctx, model.UserInput{
		FirstName: "Super",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		RoleID:    &roleID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
