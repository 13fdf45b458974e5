package core

import (
	"time"
)

// Action is the outcome reported for a reconciled row.
type Action string

const (
	ActionImported Action = "imported"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
)

// Role is a user's site role.
type Role string

const (
	RoleSubscriber    Role = "subscriber"
	RoleContributor   Role = "contributor"
	RoleAuthor        Role = "author"
	RoleEditor        Role = "editor"
	RoleAdministrator Role = "administrator"
)

// User is a stored user account with its editable profile fields.
type User struct {
	ID           int64
	Login        string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	DisplayName  string
	Nickname     string
	Description  string
	URL          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries the fields needed to create an account.
// An empty DisplayName is replaced by the login in the store.
type NewUser struct {
	Login        string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	DisplayName  string
	Nickname     string
	Description  string
	URL          string
}

// Attachment is a file stored in the media library.
type Attachment struct {
	ID        int64
	UserID    int64 // Owner; zero for imports sideloaded without an owner
	FileName  string
	Path      string // Absolute location on disk
	URL       string // Public URL, absolute or relative to the site root
	MimeType  string
	CreatedAt time.Time
}

// Summary is the outcome of one import batch. It is never persisted.
type Summary struct {
	BatchID  string        `json:"batch_id"`
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ErrorCount returns the number of failed rows (or batch-level failures).
func (s Summary) ErrorCount() int {
	return len(s.Errors)
}

// Processed returns the number of rows that reached a reported action.
func (s Summary) Processed() int {
	return s.Imported + s.Updated + s.Skipped
}

func (s *Summary) addError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func (s *Summary) addWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

func (s *Summary) count(a Action) {
	switch a {
	case ActionImported:
		s.Imported++
	case ActionUpdated:
		s.Updated++
	case ActionSkipped:
		s.Skipped++
	}
}
