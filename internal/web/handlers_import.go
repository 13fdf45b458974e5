package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/web/templates"
)

// handleImportPage renders the upload form.
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ImportPage(nil).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render import page", "error", err)
	}
}

// handleImportForm runs a batch from the HTML form and renders the notice.
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	sum, err := s.runImport(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	notice := templates.ImportNotice(sum)
	if isHTMX(r) {
		_ = notice.Render(r.Context(), w)
		return
	}
	if err := templates.ImportPage(notice).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render import notice", "error", err)
	}
}

// handleImportAPI runs a batch and returns the summary as JSON.
func (s *Server) handleImportAPI(w http.ResponseWriter, r *http.Request) {
	sum, err := s.runImport(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, sum)
}

// runImport reads the "file" field and imports it under an import slot.
// Once the slot is held the batch runs to completion even if the client
// disconnects.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request) (core.Summary, error) {
	file, header, err := readUpload(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		return core.Summary{}, err
	}
	defer file.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		return core.Summary{}, err
	}
	defer s.limiter.Release()

	ctx := context.WithoutCancel(requestContext(r))
	logger := logging.FromContext(ctx)
	logger.Info("import requested", "file", header.Filename, "bytes", header.Size)

	sum := s.importer.ImportBatchSize(ctx, file, header.Size)

	logger.Info("import finished",
		"batch_id", sum.BatchID,
		"imported", sum.Imported,
		"updated", sum.Updated,
		"errors", sum.ErrorCount(),
	)
	return sum, nil
}

// readUpload limits the request body to maxSize and returns the named
// multipart file.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: %v", errBodyTooLarge, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errNoFile, err)
	}
	return file, header, nil
}
