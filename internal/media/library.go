package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
)

// AttachmentRepo persists attachment records.
type AttachmentRepo interface {
	Create(ctx context.Context, a *core.Attachment) error
	Get(ctx context.Context, id int64) (*core.Attachment, error)
	FindByURL(ctx context.Context, url string) (*core.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

// ErrNotInLibrary is returned for URLs outside the uploads directory.
var ErrNotInLibrary = errors.New("url is not in the media library")

// Library is the media library backed by a local uploads directory.
type Library struct {
	repo      AttachmentRepo
	dir       string
	urlPrefix string
}

// NewLibrary creates a Library writing into dir. urlPrefix is the public URL
// dir is served under, either a path ("/uploads") or an absolute URL.
func NewLibrary(repo AttachmentRepo, dir, urlPrefix string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Library{
		repo:      repo,
		dir:       abs,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

var _ core.MediaLibrary = (*Library)(nil)

// Dir returns the absolute uploads directory.
func (l *Library) Dir() string {
	return l.dir
}

// Sideload moves tempPath into the library under a unique, sanitized
// version of fileName and records it.
func (l *Library) Sideload(ctx context.Context, tempPath, fileName string, ownerID int64) (*core.Attachment, error) {
	mime, err := sniff(tempPath)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("unsupported image type %q", mime)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	base := core.SanitizeFileName(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	if base == "" {
		base = "file"
	}
	if ext == "" {
		ext = extensionFor(mime)
	}

	name := UniqueFileName(l.dir, base, ext, "-")
	dest := filepath.Join(l.dir, name)
	if err := moveFile(tempPath, dest); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	return l.record(ctx, dest, name, mime, ownerID)
}

// Store writes r into the library as name, which must already be unique in
// Dir. The caller chooses the name.
func (l *Library) Store(ctx context.Context, r io.Reader, name string, ownerID int64) (*core.Attachment, error) {
	dest := filepath.Join(l.dir, filepath.Base(name))
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return nil, fmt.Errorf("store file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("store file: %w", err)
	}

	mime, err := sniff(dest)
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	return l.record(ctx, dest, filepath.Base(dest), mime, ownerID)
}

func (l *Library) record(ctx context.Context, path, name, mime string, ownerID int64) (*core.Attachment, error) {
	att := &core.Attachment{
		UserID:   ownerID,
		FileName: name,
		Path:     path,
		URL:      l.URLFor(name),
		MimeType: mime,
	}
	if err := l.repo.Create(ctx, att); err != nil {
		os.Remove(path)
		return nil, err
	}
	logging.FromContext(ctx).Debug("attachment stored",
		"attachment_id", att.ID,
		"file", name,
		"mime", mime,
	)
	return att, nil
}

// AttachmentURL returns the public URL of a stored attachment.
func (l *Library) AttachmentURL(ctx context.Context, id int64) (string, error) {
	att, err := l.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return att.URL, nil
}

// URLFor returns the public URL of a file name inside Dir.
func (l *Library) URLFor(name string) string {
	return l.urlPrefix + "/" + name
}

// PathFor maps a public library URL back to its file on disk.
func (l *Library) PathFor(u string) (string, error) {
	if !strings.HasPrefix(u, l.urlPrefix+"/") {
		return "", ErrNotInLibrary
	}
	rel := strings.TrimPrefix(u, l.urlPrefix+"/")
	if rel == "" || strings.Contains(rel, "..") || strings.ContainsAny(rel, `/\`) {
		return "", ErrNotInLibrary
	}
	return filepath.Join(l.dir, rel), nil
}

// Remove deletes the file behind a library URL and its attachment record.
// URLs outside the library and files already gone are ignored.
func (l *Library) Remove(ctx context.Context, u string) error {
	path, err := l.PathFor(u)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	att, err := l.repo.FindByURL(ctx, u)
	if err != nil {
		return nil
	}
	return l.repo.Delete(ctx, att.ID)
}

// sniff returns the detected content type of the file at path.
func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n == 0 {
		return "", errors.New("empty file")
	}
	return http.DetectContentType(buf[:n]), nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
