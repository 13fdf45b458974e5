// Package media stores files under the uploads directory and downloads
// remote pictures for sideloading.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
)

// ErrTooLarge is returned when a download exceeds the size cap.
var ErrTooLarge = errors.New("file too large")

// HTTPFetcher downloads remote files into a temp directory.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
	tempDir string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithTempDir sets where downloads are written (default: os.TempDir()).
func WithTempDir(dir string) FetcherOption {
	return func(f *HTTPFetcher) { f.tempDir = dir }
}

// NewHTTPFetcher creates a fetcher with the given timeout and size cap.
func NewHTTPFetcher(timeout time.Duration, maxSize int64, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ core.Fetcher = (*HTTPFetcher)(nil)

// Fetch downloads rawURL to a new temp file and returns its path. Only http
// and https URLs are accepted. The file is removed again on any error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid picture URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, resp.ContentLength, f.maxSize)
	}

	tmp, err := os.CreateTemp(f.tempDir, "sideload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.maxSize > 0 && n > f.maxSize {
		err = fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, f.maxSize)
	}
	if err == nil && n == 0 {
		err = errors.New("empty file")
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
