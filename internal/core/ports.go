package core

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by a UserStore when no account matches.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the account store the importer reconciles against.
type UserStore interface {
	// FindByEmail looks up an account by normalized (lower-cased) email.
	// Returns ErrUserNotFound when no account exists.
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	CreateUser(ctx context.Context, u NewUser) (int64, error)
	UpdateUser(ctx context.Context, u *User) error
}

// MetaStore holds per-user key/value metadata.
type MetaStore interface {
	// GetMeta returns the stored value; a missing key yields "" and no error.
	GetMeta(ctx context.Context, userID int64, key string) (string, error)
	SetMeta(ctx context.Context, userID int64, key, value string) error
	DeleteMeta(ctx context.Context, userID int64, key string) error
}

// Fetcher downloads a remote resource to a temporary local file.
// The caller owns the returned file and must remove it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (tempPath string, err error)
}

// MediaLibrary ingests local files into public storage.
type MediaLibrary interface {
	// Sideload moves tempPath into the library under fileName and records it.
	// On error the temp file is left in place for the caller to clean up.
	Sideload(ctx context.Context, tempPath, fileName string, ownerID int64) (*Attachment, error)
}
