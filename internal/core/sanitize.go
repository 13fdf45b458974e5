package core

// sanitize.go holds the input cleaning rules applied to every imported value.
//
// The rules mirror what a publishing platform does before persisting user
// input: strip markup, drop percent-encoded octets, validate email syntax,
// and restrict logins and file names to a safe alphabet.

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	emailLocalRe   = regexp.MustCompile("^[a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]+$")
	emailLocalBad  = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]")
	domainLabelBad = regexp.MustCompile(`(?i)[^a-z0-9-]`)
	dotRunRe       = regexp.MustCompile(`\.{2,}`)

	octetRe      = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	entityRe     = regexp.MustCompile(`&.+?;`)
	lineBreakRe  = regexp.MustCompile(`[\r\n\t ]+`)
	loginBadRe   = regexp.MustCompile(`(?i)[^a-z0-9 _.\-@]`)
	urlBadRe     = regexp.MustCompile(`(?i)[^a-z0-9\-~+_.?#=!&;,/:%@$|*'()\[\]\x{80}-\x{10FFFF}]`)
	phpPrefixRe  = regexp.MustCompile(`(?i)^[a-z0-9-]+?\.php`)
	fileSpecials = regexp.MustCompile("[?\\[\\]/\\\\=<>:;,'\"&$#*()|~`!{}%+’«»”“]")
	dashRunRe    = regexp.MustCompile(`-+`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// strictPolicy removes every HTML element, keeping only text content.
var strictPolicy = bluemonday.StrictPolicy()

// allowedSchemes are the URL schemes SanitizeURL keeps.
var allowedSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true, "ftps": true, "mailto": true,
	"news": true, "irc": true, "irc6": true, "ircs": true, "gopher": true,
	"nntp": true, "feed": true, "telnet": true, "mms": true, "rtsp": true,
	"sms": true, "svn": true, "tel": true, "fax": true, "xmpp": true,
	"webcal": true, "urn": true,
}

// IsEmail reports whether s is a syntactically valid email address.
//
// The address must be at least 6 characters with an "@" after the first
// character, a local part drawn from the permitted punctuation set, and a
// domain of two or more labels using letters, digits and inner hyphens.
func IsEmail(s string) bool {
	if len(s) < 6 {
		return false
	}
	at := strings.IndexByte(s, '@')
	if at < 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]

	if !emailLocalRe.MatchString(local) {
		return false
	}
	if dotRunRe.MatchString(domain) {
		return false
	}
	if strings.Trim(domain, " \t\n\r\x00\x0B.") != domain {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if strings.Trim(label, " \t\n\r\x00\x0B-") != label {
			return false
		}
		if label == "" || domainLabelBad.MatchString(label) {
			return false
		}
	}
	return true
}

// SanitizeEmail strips characters that cannot appear in an email address.
// Returns "" when what is left cannot form an address.
func SanitizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return ""
	}
	at := strings.IndexByte(s, '@')
	if at < 1 {
		return ""
	}
	local := emailLocalBad.ReplaceAllString(s[:at], "")
	if local == "" {
		return ""
	}

	domain := dotRunRe.ReplaceAllString(s[at+1:], "")
	domain = strings.Trim(domain, " \t\n\r\x00\x0B.")
	if domain == "" {
		return ""
	}

	var labels []string
	for _, label := range strings.Split(domain, ".") {
		label = strings.Trim(label, " \t\n\r\x00\x0B-")
		label = domainLabelBad.ReplaceAllString(label, "")
		if label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) < 2 {
		return ""
	}
	return local + "@" + strings.Join(labels, ".")
}

// NormalizeEmail returns the lookup form of an email: sanitized and
// lower-cased.
func NormalizeEmail(s string) string {
	return strings.ToLower(SanitizeEmail(s))
}

// SanitizeText cleans a single-line text field: markup and percent-encoded
// octets are removed and all whitespace collapses to single spaces.
func SanitizeText(s string) string {
	s = stripMarkup(s)
	s = lineBreakRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SanitizeTextarea cleans a multi-line text field. Line breaks are kept.
func SanitizeTextarea(s string) string {
	return strings.TrimSpace(stripMarkup(s))
}

func stripMarkup(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	for octetRe.MatchString(s) {
		s = octetRe.ReplaceAllString(s, "")
	}
	return s
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// SanitizeURL cleans a URL for storage. Characters outside the URL alphabet
// are removed, a bare host gets an http:// prefix, and URLs with a scheme
// outside the allowed set become "".
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, " ", "%20")
	raw = urlBadRe.ReplaceAllString(raw, "")
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, ":") && !strings.ContainsAny(raw[:1], "/#?") && !phpPrefixRe.MatchString(raw) {
		raw = "http://" + raw
	}

	if i := strings.IndexByte(raw, ':'); i > 0 && !strings.ContainsAny(raw[:i], "/?#") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		if !allowedSchemes[strings.ToLower(u.Scheme)] {
			return ""
		}
	}
	return raw
}

// SanitizeUser restricts a login name to a safe alphabet.
//
// Markup, accents, percent-encoded octets and HTML entities are removed.
// In strict mode only ASCII letters, digits, space, "_", ".", "-" and "@"
// survive. Whitespace runs collapse to a single space.
func SanitizeUser(login string, strict bool) string {
	s := strictPolicy.Sanitize(login)
	s = html.UnescapeString(s)
	s = RemoveAccents(s)
	s = octetRe.ReplaceAllString(s, "")
	s = entityRe.ReplaceAllString(s, "")
	if strict {
		s = loginBadRe.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	return spaceRunRe.ReplaceAllString(s, " ")
}

// SanitizeFileName strips characters that are unsafe in file names and
// URLs. Whitespace becomes "-" and leading or trailing punctuation is trimmed.
func SanitizeFileName(name string) string {
	s := RemoveAccents(name)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "%20", "-")
	s = fileSpecials.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, ".-_")
}

// accentFolds covers letters that do not decompose into base + mark.
var accentFolds = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "AE", 'ø': "o", 'Ø': "O", 'đ': "d", 'Đ': "D",
	'ł': "l", 'Ł': "L", 'œ': "oe", 'Œ': "OE", 'þ': "th", 'Þ': "TH", 'ð': "d",
}

// RemoveAccents folds accented Latin letters to their ASCII base.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	if !strings.ContainsFunc(out, func(r rune) bool { _, ok := accentFolds[r]; return ok }) {
		return out
	}
	var b strings.Builder
	for _, r := range out {
		if fold, ok := accentFolds[r]; ok {
			b.WriteString(fold)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
