package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an import failure.
type ErrorKind int

const (
	// BatchReadError means the file could not be opened or its header read.
	BatchReadError ErrorKind = iota
	// RowParseError means a row did not line up with the header.
	RowParseError
	// InvalidRecord means a row was rejected before touching the store.
	InvalidRecord
	// CreateFailed means the store refused a new account.
	CreateFailed
	// UpdateFailed means the store refused changes to an existing account.
	UpdateFailed
)

func (k ErrorKind) String() string {
	switch k {
	case BatchReadError:
		return "batch_read"
	case RowParseError:
		return "row_parse"
	case InvalidRecord:
		return "invalid_record"
	case CreateFailed:
		return "create_failed"
	case UpdateFailed:
		return "update_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fixed failure reasons reported in a Summary.
const (
	MsgCannotOpen     = "Could not open CSV file"
	MsgNoHeader       = "Could not read CSV header row"
	MsgCannotParse    = "Could not parse data"
	MsgInvalidEmail   = "Invalid or missing email address"
	MsgUnknownFailure = "Unknown error"
)

// ImportError is a failure attached to a batch or a single row.
// Row is zero for batch-level failures.
type ImportError struct {
	Kind    ErrorKind
	Row     int
	Message string
	Err     error
}

// Error returns the bare reason, without the row prefix.
func (e *ImportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return MsgUnknownFailure
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// RowMessage formats the failure the way it appears in Summary.Errors.
func (e *ImportError) RowMessage() string {
	if e.Row <= 0 {
		return e.Error()
	}
	return fmt.Sprintf("Row %d: %s", e.Row, e.Error())
}

func newImportError(kind ErrorKind, msg string, err error) *ImportError {
	return &ImportError{Kind: kind, Message: msg, Err: err}
}

// storeError wraps a store rejection, keeping the store's message verbatim.
func storeError(kind ErrorKind, err error) *ImportError {
	return &ImportError{Kind: kind, Message: err.Error(), Err: err}
}

// IsKind reports whether err is an ImportError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ie *ImportError
	return errors.As(err, &ie) && ie.Kind == kind
}
