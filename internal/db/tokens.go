package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kidandcat/portfolio/internal/model"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type TokenPair struct {
	Access  string
	Refresh string
}

// IssueTokens creates an access token and a refresh token for the user.
func (s *Store) IssueTokens(ctx context.Context, userID int64, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return TokenPair{}, err
	}
	pair := TokenPair{Access: hex.EncodeToString(b), Refresh: uuid.NewString()}
	now := s.now().UTC()

	err := s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tokens (token, user_id, kind, expires_at) VALUES (?, ?, ?, ?)",
			pair.Access, userID, kindAccess, now.Add(accessTTL),
		); err != nil {
			return fmt.Errorf("insert access token: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tokens (token, user_id, kind, expires_at) VALUES (?, ?, ?, ?)",
			pair.Refresh, userID, kindRefresh, now.Add(refreshTTL),
		); err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// UserByToken resolves an unexpired access token. Expired tokens are removed.
func (s *Store) UserByToken(ctx context.Context, token string) (model.User, error) {
	userID, err := s.consumable(ctx, token, kindAccess)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return u, err
	}
	if !u.IsActive {
		return model.User{}, fmt.Errorf("user %d inactive: %w", userID, ErrNotFound)
	}
	return u, nil
}

// RotateRefresh trades a refresh token for a new pair. The old refresh token
// is single use.
func (s *Store) RotateRefresh(ctx context.Context, refresh string, accessTTL, refreshTTL time.Duration) (model.User, TokenPair, error) {
	userID, err := s.consumable(ctx, refresh, kindRefresh)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if err := s.RevokeToken(ctx, refresh); err != nil {
		return model.User{}, TokenPair{}, err
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return u, TokenPair{}, err
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, fmt.Errorf("user %d inactive: %w", userID, ErrNotFound)
	}
	pair, err := s.IssueTokens(ctx, userID, accessTTL, refreshTTL)
	return u, pair, err
}

func (s *Store) RevokeToken(ctx context.Context, token string) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens deletes every expired token and returns how many went.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at < ?", s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) consumable(ctx context.Context, token, kind string) (int64, error) {
	var userID int64
	var expiresAt time.Time
	err := s.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM tokens WHERE token = ? AND kind = ?", token, kind,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s token: %w", kind, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query token: %w", err)
	}
	if s.now().After(expiresAt) {
		s.DB.ExecContext(ctx, "DELETE FROM tokens WHERE token = ?", token)
		return 0, fmt.Errorf("%s token expired: %w", kind, ErrNotFound)
	}
	return userID, nil
}
