package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/userimport/internal/logging"
)

// Delimiter is the field separator of import files.
const Delimiter = ';'

// ProgressLogInterval is how often (in rows) batch progress is logged.
var ProgressLogInterval = 100

// ImportFile opens path and runs it as one batch.
func (im *Importer) ImportFile(ctx context.Context, path string) Summary {
	f, err := os.Open(path)
	if err != nil {
		logging.FromContext(ctx).Error("open import file", "path", path, "error", err)
		return Summary{BatchID: uuid.NewString(), Errors: []string{MsgCannotOpen}}
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	return im.ImportBatchSize(ctx, f, size)
}

// ImportBatch reads a semicolon-delimited file and reconciles every row.
func (im *Importer) ImportBatch(ctx context.Context, r io.Reader) Summary {
	return im.ImportBatchSize(ctx, r, 0)
}

// ImportBatchSize is ImportBatch with a known input size for progress logs.
//
// Rows are handled strictly in file order and committed individually. A row
// that fails is reported as "Row N: reason" and the batch moves on. The only
// failure that stops a batch is being unable to read the file itself; once
// started, a batch is not cancelled by ctx.
func (im *Importer) ImportBatchSize(ctx context.Context, r io.Reader, size int64) (sum Summary) {
	start := time.Now()
	sum = Summary{BatchID: uuid.NewString()}
	logger := logging.WithFields(ctx, "batch_id", sum.BatchID)
	ctx = logging.NewContext(ctx, logger)

	defer func() {
		sum.Duration = time.Since(start)
	}()

	src, counter := NewImportReader(r, size)
	cr := csv.NewReader(src)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil || len(header) == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("read header", "error", err)
		}
		sum.addError(MsgNoHeader)
		return sum
	}
	idx := MakeHeaderIndex(header)
	if !idx.Has(ColEmail) {
		logger.Warn("header has no email column", "columns", len(header))
	}
	logger.Info("import started",
		"columns", len(header),
		"size_bytes", size,
		"source", SourceFromContext(ctx),
		"client_ip", ClientIPFromContext(ctx),
	)

	// Rows are counted per record read; the header is row 1.
	rowNum, rows := 1, 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				sum.addError(withRow(rowNum, newImportError(RowParseError, MsgCannotParse, err)))
				continue
			}
			logger.Error("read row", "error", err)
			sum.addError(fmt.Sprintf("Could not read CSV file: %v", err))
			break
		}

		rows++
		if rows%ProgressLogInterval == 0 {
			logger.Debug("import progress", "rows", rows, "progress", counter.Progress())
		}

		im.processRow(ctx, rowNum, idx, len(header), row, &sum)
	}

	logger.Info("import completed",
		"imported", sum.Imported,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"errors", sum.ErrorCount(),
		"warnings", len(sum.Warnings),
		"bytes", counter.BytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sum
}

func (im *Importer) processRow(ctx context.Context, rowNum int, idx HeaderIndex, headerLen int, row []string, sum *Summary) {
	rec, err := ParseRecord(idx, headerLen, row)
	if err != nil {
		sum.addError(withRow(rowNum, err))
		return
	}

	res, err := im.Reconcile(ctx, rec)
	if err != nil {
		logging.FromContext(ctx).Debug("row rejected", "row", rowNum, "error", err)
		sum.addError(withRow(rowNum, err))
		return
	}
	sum.count(res.Action)

	if res.AvatarErr != nil {
		logging.FromContext(ctx).Warn("avatar not stored",
			"row", rowNum,
			"user_id", res.UserID,
			"error", res.AvatarErr,
		)
		sum.addWarning(fmt.Sprintf("Row %d: avatar: %v", rowNum, res.AvatarErr))
	}
}

// withRow renders err as a Summary entry for the given row.
func withRow(rowNum int, err error) string {
	var ie *ImportError
	if errors.As(err, &ie) {
		cp := *ie
		cp.Row = rowNum
		return cp.RowMessage()
	}
	return fmt.Sprintf("Row %d: %v", rowNum, err)
}
