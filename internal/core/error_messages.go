package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference. Users can quote the code to support staff.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: an account with this email or login exists
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Missing header row
//	IMP002 - Row does not match the header
//	IMP003 - Invalid or missing email
//	IMP004 - File could not be opened
//
// # Avatar Errors (AVT001-AVT099)
//
//	AVT001 - Upload not permitted for this user
//	AVT002 - Unsupported image type
//	AVT003 - Unsafe file name
//	AVT004 - Remote picture could not be downloaded
//	AVT005 - User has no avatar
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Encoding error
//	FILE004 - No file
//	FILE005 - Empty file
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Other
//
//	USR001  - User not found
//	RATE001 - Rate limited
//	ERR000  - Unknown error (check logs for the technical error)
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "An account with this email or login already exists",
			Action:  "Check the file for repeated email addresses",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Import
	{
		pattern: "could not read csv header",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Make sure the first line lists the column names separated by semicolons",
			Code:    "IMP001",
		},
	},
	{
		pattern: "could not parse data",
		msg: UserMessage{
			Message: "A row does not match the header",
			Action:  "Check that every row has the same number of semicolon-separated fields",
			Code:    "IMP002",
		},
	},
	{
		pattern: "invalid or missing email",
		msg: UserMessage{
			Message: "A row has an invalid or missing email address",
			Action:  "Fill in the user_email column for every row",
			Code:    "IMP003",
		},
	},
	{
		pattern: "could not open csv",
		msg: UserMessage{
			Message: "The file could not be opened",
			Action:  "Check the file path and permissions",
			Code:    "IMP004",
		},
	},

	// Avatar
	{
		pattern: "not allowed to upload",
		msg: UserMessage{
			Message: "This user is not allowed to upload an avatar",
			Action:  "Ask an administrator to change the avatar upload setting",
			Code:    "AVT001",
		},
	},
	{
		pattern: "unsupported image type",
		msg: UserMessage{
			Message: "Only JPEG, GIF and PNG images can be used as avatars",
			Action:  "Convert the picture to one of the supported formats",
			Code:    "AVT002",
		},
	},
	{
		pattern: "unsafe file name",
		msg: UserMessage{
			Message: "The file name is not allowed",
			Action:  "Rename the file and try again",
			Code:    "AVT003",
		},
	},
	{
		pattern: "download image",
		msg: UserMessage{
			Message: "The profile picture could not be downloaded",
			Action:  "Check that the picture URL is publicly reachable",
			Code:    "AVT004",
		},
	},
	{
		pattern: "no avatar",
		msg: UserMessage{
			Message: "This user has no avatar",
			Action:  "Upload an avatar first",
			Code:    "AVT005",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is semicolon-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE005",
		},
	},

	// Upload
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},

	// Other
	{
		pattern: "user not found",
		msg: UserMessage{
			Message: "User not found",
			Action:  "Verify the user id",
			Code:    "USR001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is
// returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err into a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
