package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
)

// ErrAttachmentNotFound is returned when no attachment has the requested id.
var ErrAttachmentNotFound = errors.New("attachment not found")

// Attachments records files stored in the media library.
type Attachments struct {
	db *database.DB
}

// NewAttachments creates an Attachments store.
func NewAttachments(db *database.DB) *Attachments {
	return &Attachments{db: db}
}

// Create inserts a and fills in its ID and CreatedAt.
func (s *Attachments) Create(ctx context.Context, a *core.Attachment) error {
	var owner *int64
	if a.UserID > 0 {
		owner = &a.UserID
	}
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO attachments (user_id, file_name, path, url, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, owner, a.FileName, a.Path, a.URL, a.MimeType).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// Get returns the attachment with the given id.
func (s *Attachments) Get(ctx context.Context, id int64) (*core.Attachment, error) {
	var a core.Attachment
	var owner *int64
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, file_name, path, url, mime_type, created_at
		FROM attachments WHERE id = $1
	`, id).Scan(&a.ID, &owner, &a.FileName, &a.Path, &a.URL, &a.MimeType, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment %d: %w", id, err)
	}
	if owner != nil {
		a.UserID = *owner
	}
	return &a, nil
}

// FindByURL returns the attachment whose public URL is u.
func (s *Attachments) FindByURL(ctx context.Context, u string) (*core.Attachment, error) {
	var a core.Attachment
	var owner *int64
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, file_name, path, url, mime_type, created_at
		FROM attachments WHERE url = $1
		ORDER BY id DESC LIMIT 1
	`, u).Scan(&a.ID, &owner, &a.FileName, &a.Path, &a.URL, &a.MimeType, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attachment by url: %w", err)
	}
	if owner != nil {
		a.UserID = *owner
	}
	return &a, nil
}

// Delete removes the attachment row. The file itself is not touched.
func (s *Attachments) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attachment %d: %w", id, err)
	}
	return nil
}
