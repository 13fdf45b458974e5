package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/JonMunkholm/userimport/internal/logging"
)

// ErrNoMediaLibrary is returned when avatar sideloading is not configured.
var ErrNoMediaLibrary = errors.New("avatar sideloading is not configured")

// Sideloader turns a remote picture URL into a stored local avatar.
type Sideloader struct {
	fetcher Fetcher
	library MediaLibrary
	meta    MetaStore
}

// NewSideloader creates a Sideloader.
func NewSideloader(fetcher Fetcher, library MediaLibrary, meta MetaStore) *Sideloader {
	return &Sideloader{fetcher: fetcher, library: library, meta: meta}
}

// HasAvatar reports whether the user already has a stored avatar.
func (s *Sideloader) HasAvatar(ctx context.Context, userID int64) (bool, error) {
	if s == nil || s.meta == nil {
		return false, ErrNoMediaLibrary
	}
	rec, err := LoadAvatarRecord(ctx, s.meta, userID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// SetAvatarFromURL downloads imageURL, ingests it into the media library and
// records it as the user's avatar, replacing any previous record.
//
// It reports whether an avatar was stored. The temporary download is removed
// whenever ingestion fails.
func (s *Sideloader) SetAvatarFromURL(ctx context.Context, userID int64, imageURL string) (bool, error) {
	if s == nil || s.fetcher == nil || s.library == nil {
		return false, ErrNoMediaLibrary
	}
	logger := logging.WithFields(ctx, "user_id", userID, "image_url", imageURL)

	tmp, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return false, fmt.Errorf("download image: %w", err)
	}

	att, err := s.library.Sideload(ctx, tmp, remoteFileName(imageURL), userID)
	if err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove temp download", "path", tmp, "error", rmErr)
		}
		return false, fmt.Errorf("sideload image: %w", err)
	}
	if att.URL == "" {
		return false, nil
	}

	if err := SaveAvatarRecord(ctx, s.meta, userID, AvatarRecord{SizeFull: att.URL}); err != nil {
		return false, err
	}
	logger.Debug("avatar sideloaded", "attachment_id", att.ID, "url", att.URL)
	return true, nil
}

// remoteFileName returns the last path segment of a URL, or "avatar".
func remoteFileName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "avatar"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "avatar"
	}
	return name
}
