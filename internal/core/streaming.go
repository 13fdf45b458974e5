package core

// streaming.go prepares raw uploads for the CSV reader without buffering the
// whole file in memory.
//
// Spreadsheet exports routinely start with a byte order mark and are not
// always valid UTF-8. NewImportReader normalizes both on the fly:
//
//   - A UTF-8 BOM is dropped; a UTF-16 BOM switches decoding to UTF-16
//   - Invalid UTF-8 sequences become U+FFFD
//   - Bytes consumed from the source are counted for progress logging

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead * 100 / r.Total)
	if p > 100 {
		return 100
	}
	return p
}

// NewImportReader decodes r as UTF-8 text, honoring a leading byte order
// mark. The returned counter tracks bytes read from r itself, so Progress
// is measured against the raw upload size.
func NewImportReader(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, totalSize)
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return transform.NewReader(counter, decoder), counter
}
