package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

type InternalStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewInternalStore(db *sql.DB, logger *common.Logger) *InternalStore {
	return &InternalStore{
		db:     db,
		logger: logger,
	}
}

func (s *InternalStore) GetUser(ctx context.Context, userID string) (*models.InternalUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, role, created_at, modified_at FROM users WHERE user_id = ?`, userID)

	var u models.InternalUser
	var created, modified int64
	if err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.Role, &created, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	u.CreatedAt = fromNanos(created)
	u.ModifiedAt = fromNanos(modified)
	return &u, nil
}

func (s *InternalStore) SaveUser(ctx context.Context, user *models.InternalUser) error {
	if err := models.ValidateRole(user.Role); err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.ModifiedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, password_hash, role, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			role = excluded.role,
			modified_at = excluded.modified_at`,
		user.UserID, user.Email, user.PasswordHash, user.Role, toNanos(user.CreatedAt), toNanos(user.ModifiedAt))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *InternalStore) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_kv WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user KV: %w", err)
	}
	return nil
}

func (s *InternalStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *InternalStore) GetUserKV(ctx context.Context, userID, key string) (*models.UserKeyValue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, version, updated_at FROM user_kv WHERE user_id = ? AND key = ?`, userID, key)

	var kv models.UserKeyValue
	var updated int64
	if err := row.Scan(&kv.UserID, &kv.Key, &kv.Value, &kv.Version, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user KV %s/%s: %w", userID, key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select user KV: %w", err)
	}
	kv.DateTime = fromNanos(updated)
	return &kv, nil
}

func (s *InternalStore) SetUserKV(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_kv (user_id, key, value, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET
			value = excluded.value,
			version = user_kv.version + 1,
			updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set user KV: %w", err)
	}
	return nil
}

func (s *InternalStore) ListUserKV(ctx context.Context, userID string) ([]*models.UserKeyValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, key, value, version, updated_at FROM user_kv WHERE user_id = ? ORDER BY key`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user KV: %w", err)
	}
	defer rows.Close()

	var out []*models.UserKeyValue
	for rows.Next() {
		var kv models.UserKeyValue
		var updated int64
		if err := rows.Scan(&kv.UserID, &kv.Key, &kv.Value, &kv.Version, &updated); err != nil {
			return nil, err
		}
		kv.DateTime = fromNanos(updated)
		out = append(out, &kv)
	}
	return out, rows.Err()
}
