package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/userimport/internal/database"
)

// Options is a site-wide name/value settings table.
type Options struct {
	db *database.DB
}

// NewOptions creates an Options store.
func NewOptions(db *database.DB) *Options {
	return &Options{db: db}
}

// Get returns the stored value and whether it exists.
func (s *Options) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.Pool.QueryRow(ctx, `SELECT value FROM options WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", name, err)
	}
	return value, true, nil
}

// Set creates or replaces an option.
func (s *Options) Set(ctx context.Context, name, value string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO options (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, name, value)
	if err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

// GetBool returns a boolean option, or def when it is unset or unparsable.
func (s *Options) GetBool(ctx context.Context, name string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, name)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return b, nil
}

// SetBool stores a boolean option.
func (s *Options) SetBool(ctx context.Context, name string, v bool) error {
	return s.Set(ctx, name, strconv.FormatBool(v))
}

// Delete removes an option.
func (s *Options) Delete(ctx context.Context, name string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM options WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete option %s: %w", name, err)
	}
	return nil
}
