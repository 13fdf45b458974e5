package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		login VARCHAR(60) NOT NULL UNIQUE,
		email VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(30) NOT NULL DEFAULT 'subscriber',
		first_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		display_name VARCHAR(250) NOT NULL DEFAULT '',
		nickname VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url VARCHAR(500) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Email lookups are case-insensitive; one account per address.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS user_meta (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		meta_key VARCHAR(255) NOT NULL,
		meta_value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, meta_key)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_user_meta_key ON user_meta(meta_key)`,

	`CREATE TABLE IF NOT EXISTS attachments (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		file_name VARCHAR(255) NOT NULL,
		path VARCHAR(1000) NOT NULL,
		url VARCHAR(1000) NOT NULL,
		mime_type VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_attachments_user_id ON attachments(user_id)`,

	`CREATE TABLE IF NOT EXISTS options (
		name VARCHAR(191) PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is idempotent, so it is safe
// to run on each start.
func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// MigrationCount reports how many statements Migrate runs.
func MigrationCount() int {
	return len(migrations)
}
