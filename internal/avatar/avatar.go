// Package avatar manages locally stored profile pictures: direct uploads,
// removal, and resized variants generated on first request.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/media"
)

// OptionUploadRestricted limits uploads to roles that may upload files.
const OptionUploadRestricted = "avatar_upload_restricted"

var (
	ErrNoAvatar        = errors.New("user has no avatar")
	ErrForbidden       = errors.New("user is not allowed to upload avatars")
	ErrUnsupportedType = errors.New("unsupported image type, use jpg, gif or png")
	ErrUnsafeName      = errors.New(`unsafe file name: ".php" cannot be part of an avatar file name`)
	ErrTooLarge        = errors.New("file too large")
)

// allowedTypes maps accepted extensions to their content type.
var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".gif":  "image/gif",
	".png":  "image/png",
}

// Users looks accounts up by id.
type Users interface {
	FindByID(ctx context.Context, id int64) (*core.User, error)
}

// Meta is user metadata that can also list holders of a key.
type Meta interface {
	core.MetaStore
	UserIDsWithMeta(ctx context.Context, keys ...string) ([]int64, error)
}

// Files is the media storage used for avatar images.
type Files interface {
	Store(ctx context.Context, r io.Reader, name string, ownerID int64) (*core.Attachment, error)
	Remove(ctx context.Context, url string) error
	PathFor(url string) (string, error)
	URLFor(name string) string
	Dir() string
	AttachmentURL(ctx context.Context, id int64) (string, error)
}

// Options stores site-wide settings.
type Options interface {
	GetBool(ctx context.Context, name string, def bool) (bool, error)
	SetBool(ctx context.Context, name string, v bool) error
	Delete(ctx context.Context, name string) error
}

// Config tunes URL rendering and size limits.
type Config struct {
	BaseURL       string
	ForceHTTPS    bool
	DefaultSize   int
	MaxSize       int
	MaxUploadSize int64
}

// Service implements avatar upload, removal and lookup.
type Service struct {
	users   Users
	meta    Meta
	files   Files
	options Options
	cfg     Config
}

// NewService creates a Service. Zero sizes in cfg fall back to 96px
// default, 512px max and a 2MB upload cap.
func NewService(users Users, meta Meta, files Files, options Options, cfg Config) *Service {
	if cfg.DefaultSize <= 0 {
		cfg.DefaultSize = 96
	}
	if cfg.MaxSize < cfg.DefaultSize {
		cfg.MaxSize = max(512, cfg.DefaultSize)
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 2 << 20
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{users: users, meta: meta, files: files, options: options, cfg: cfg}
}

// UploadRestricted reports whether uploads are limited to upload-capable roles.
func (s *Service) UploadRestricted(ctx context.Context) (bool, error) {
	return s.options.GetBool(ctx, OptionUploadRestricted, false)
}

// SetUploadRestricted changes the upload restriction.
func (s *Service) SetUploadRestricted(ctx context.Context, restricted bool) error {
	return s.options.SetBool(ctx, OptionUploadRestricted, restricted)
}

// CanUpload reports whether u may upload an avatar under the current setting.
func (s *Service) CanUpload(ctx context.Context, u *core.User) (bool, error) {
	restricted, err := s.UploadRestricted(ctx)
	if err != nil {
		return false, err
	}
	return !restricted || u.Role.CanUpload(), nil
}

// Upload replaces the user's avatar with the image read from r. fileName is
// the client's name for the file and only its extension is kept.
func (s *Service) Upload(ctx context.Context, userID int64, fileName string, r io.Reader) (string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	ok, err := s.CanUpload(ctx, u)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrForbidden
	}

	if strings.Contains(strings.ToLower(fileName), ".php") {
		return "", ErrUnsafeName
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	want, ok := allowedTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		return "", ErrTooLarge
	}
	if len(data) == 0 || http.DetectContentType(data) != want {
		return "", ErrUnsupportedType
	}

	if err := s.Delete(ctx, userID); err != nil {
		return "", err
	}

	name := media.UniqueFileName(s.files.Dir(), avatarBaseName(u), ext, "_")
	att, err := s.files.Store(ctx, bytes.NewReader(data), name, userID)
	if err != nil {
		return "", err
	}
	if err := core.SaveAvatarRecord(ctx, s.meta, userID, core.AvatarRecord{core.SizeFull: att.URL}); err != nil {
		return "", err
	}

	logging.FromContext(ctx).Info("avatar uploaded",
		"user_id", userID,
		"file", att.FileName,
		"bytes", len(data),
	)
	return att.URL, nil
}

// avatarBaseName derives the stored file name stem from the display name.
func avatarBaseName(u *core.User) string {
	name := u.DisplayName
	if name == "" {
		name = u.Login
	}
	base := core.SanitizeFileName(strings.ToLower(name))
	if base == "" {
		base = "user" + strconv.FormatInt(u.ID, 10)
	}
	return base + "_avatar"
}

// Delete removes every stored file of the user's avatar and its record.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	rec, err := core.LoadAvatarRecord(ctx, s.meta, userID)
	if err != nil {
		return err
	}
	logger := logging.WithFields(ctx, "user_id", userID)
	for _, u := range rec.URLs() {
		if err := s.files.Remove(ctx, u); err != nil {
			logger.Warn("failed to remove avatar file", "url", u, "error", err)
		}
	}
	if err := s.meta.DeleteMeta(ctx, userID, core.AvatarMetaKey); err != nil {
		return err
	}
	if rec != nil {
		logger.Info("avatar deleted", "files", len(rec.URLs()))
	}
	return nil
}

// Resolve returns the public URL of the user's avatar at size pixels,
// generating and remembering the size on first use. size <= 0 selects the
// default size.
func (s *Service) Resolve(ctx context.Context, userID int64, size int) (string, error) {
	if size <= 0 {
		size = s.cfg.DefaultSize
	}
	size = min(size, s.cfg.MaxSize)

	rec, err := s.loadOrMigrate(ctx, userID)
	if err != nil {
		return "", err
	}

	u, ok := rec.Sized(size)
	if !ok {
		u = s.generateSize(ctx, rec.Full(), size)
		rec.SetSized(size, u)
		if err := core.SaveAvatarRecord(ctx, s.meta, userID, rec); err != nil {
			return "", err
		}
	}
	return s.publicURL(u), nil
}

// loadOrMigrate returns the avatar record, adopting an attachment id left
// under the legacy key when no record exists.
func (s *Service) loadOrMigrate(ctx context.Context, userID int64) (core.AvatarRecord, error) {
	rec, err := core.LoadAvatarRecord(ctx, s.meta, userID)
	if err != nil || rec != nil {
		return rec, err
	}

	legacy, err := s.meta.GetMeta(ctx, userID, core.LegacyAvatarMetaKey)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(legacy), 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrNoAvatar
	}
	u, err := s.files.AttachmentURL(ctx, id)
	if err != nil || u == "" {
		return nil, ErrNoAvatar
	}

	rec = core.AvatarRecord{core.SizeFull: u}
	if err := core.SaveAvatarRecord(ctx, s.meta, userID, rec); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("legacy avatar migrated", "user_id", userID, "attachment_id", id)
	return rec, nil
}

// publicURL makes u absolute and applies the https rewrite.
func (s *Service) publicURL(u string) string {
	if !strings.HasPrefix(u, "http") && s.cfg.BaseURL != "" {
		u = s.cfg.BaseURL + "/" + strings.TrimLeft(u, "/")
	}
	if s.cfg.ForceHTTPS {
		u = strings.Replace(u, "http:", "https:", 1)
	}
	return u
}

// Purge deletes every user's avatar and the upload setting. It returns the
// number of users whose avatar was removed.
func (s *Service) Purge(ctx context.Context) (int, error) {
	ids, err := s.meta.UserIDsWithMeta(ctx, core.AvatarMetaKey)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("purge avatar of user %d: %w", id, err)
		}
	}
	if err := s.options.Delete(ctx, OptionUploadRestricted); err != nil {
		return len(ids), err
	}
	logging.FromContext(ctx).Info("avatars purged", "users", len(ids))
	return len(ids), nil
}
