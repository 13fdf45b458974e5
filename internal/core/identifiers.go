package core

import (
	"strconv"
	"strings"
	"time"
)

// nameSlug joins the transliterated first and last name with a hyphen.
func nameSlug(rec Record) string {
	slug := ""
	if rec.FirstName != "" {
		slug = Transliterate(rec.FirstName)
	}
	if rec.LastName != "" {
		if slug != "" {
			slug += "-"
		}
		slug += Transliterate(rec.LastName)
	}
	return slug
}

// GenerateUsername derives a login from the record's names, falling back to
// the local part of the email and finally to "user" plus the unix time.
// The result is lower-case.
func GenerateUsername(rec Record, now time.Time) string {
	login := nameSlug(rec)
	if login == "" && rec.Email != "" {
		login, _, _ = strings.Cut(rec.Email, "@")
	}
	login = SanitizeUser(login, true)
	if login == "" {
		login = "user" + strconv.FormatInt(now.Unix(), 10)
	}
	return strings.ToLower(login)
}

// GenerateNickname derives a lower-case nickname from the record's names,
// or "user" when there are none.
func GenerateNickname(rec Record) string {
	nick := nameSlug(rec)
	if nick == "" {
		return "user"
	}
	return strings.ToLower(nick)
}
