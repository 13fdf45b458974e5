package core

// record.go binds CSV rows to the fixed set of recognized columns.
//
// The header is read once into a HeaderIndex; each row is then copied into a
// Record struct so the rest of the pipeline never does string-keyed lookups.

import (
	"strings"
)

// Recognized column names. Header matching is case-insensitive.
const (
	ColEmail          = "user_email"
	ColLogin          = "user_login"
	ColRole           = "user_role"
	ColFirstName      = "user_name"
	ColLastName       = "user_last_name"
	ColNickname       = "user_nickname"
	ColDescription    = "user_description"
	ColProfilePicture = "user_profile_picture"
	ColURL            = "user_url"
)

// MaxDescriptionLength is the rune limit for imported biographies.
const MaxDescriptionLength = 250

// MaxLoginLength is the rune limit for account logins, numeric suffix included.
const MaxLoginLength = 60

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// When a name repeats, the last occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanCell(h))] = i
	}
	return idx
}

// Has reports whether the header contains the column.
func (h HeaderIndex) Has(col string) bool {
	_, ok := h[col]
	return ok
}

// CleanCell trims whitespace and the quoting artifacts spreadsheet exports
// leave around values (="..." formulas and stray quotes).
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}

// Record is one parsed data row. Absent columns and blank cells are "".
type Record struct {
	Email          string
	Login          string
	Role           string
	FirstName      string
	LastName       string
	Nickname       string
	Description    string
	ProfilePicture string
	URL            string
	Social         map[SocialNetwork]string
}

// ParseRecord copies a row into a Record. The row must have exactly as many
// fields as the header; otherwise a RowParseError is returned.
func ParseRecord(idx HeaderIndex, headerLen int, row []string) (Record, error) {
	if len(row) != headerLen {
		return Record{}, newImportError(RowParseError, MsgCannotParse, nil)
	}

	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := Record{
		Email:          get(ColEmail),
		Login:          get(ColLogin),
		Role:           get(ColRole),
		FirstName:      get(ColFirstName),
		LastName:       get(ColLastName),
		Nickname:       get(ColNickname),
		Description:    get(ColDescription),
		ProfilePicture: get(ColProfilePicture),
		URL:            get(ColURL),
	}
	for _, n := range SocialNetworks {
		if v := get(n.Column()); v != "" {
			if rec.Social == nil {
				rec.Social = make(map[SocialNetwork]string)
			}
			rec.Social[n] = v
		}
	}
	return rec, nil
}

// ValidateRecord rejects records without a syntactically valid email.
func ValidateRecord(rec Record) error {
	if rec.Email == "" || !IsEmail(rec.Email) {
		return newImportError(InvalidRecord, MsgInvalidEmail, nil)
	}
	return nil
}

// HasName reports whether the record carries a first or last name.
func (r Record) HasName() bool {
	return r.FirstName != "" || r.LastName != ""
}
