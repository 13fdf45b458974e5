package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
)

// Meta is the PostgreSQL core.MetaStore.
type Meta struct {
	db *database.DB
}

// NewMeta creates a Meta store.
func NewMeta(db *database.DB) *Meta {
	return &Meta{db: db}
}

var _ core.MetaStore = (*Meta)(nil)

// GetMeta returns the value for key, or "" when it is unset.
func (s *Meta) GetMeta(ctx context.Context, userID int64, key string) (string, error) {
	var value string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT meta_value FROM user_meta WHERE user_id = $1 AND meta_key = $2
	`, userID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta creates or replaces the value for key.
func (s *Meta) SetMeta(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO user_meta (user_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// DeleteMeta removes key. Deleting a missing key is not an error.
func (s *Meta) DeleteMeta(ctx context.Context, userID int64, key string) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM user_meta WHERE user_id = $1 AND meta_key = $2
	`, userID, key)
	if err != nil {
		return fmt.Errorf("delete meta %s: %w", key, err)
	}
	return nil
}

// UserIDsWithMeta lists users holding any of keys, in id order.
func (s *Meta) UserIDsWithMeta(ctx context.Context, keys ...string) ([]int64, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT DISTINCT user_id FROM user_meta
		WHERE meta_key = ANY($1) AND meta_value <> ''
		ORDER BY user_id
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("list users with meta: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
