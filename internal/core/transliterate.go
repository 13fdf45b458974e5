package core

import (
	"regexp"
	"strings"
)

// cyrillicToLatin maps each Cyrillic letter to its Latin replacement.
// Hard and soft signs are dropped.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",

	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "Yo",
	'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "H", 'Ц': "Ts", 'Ч': "Ch", 'Ш': "Sh", 'Щ': "Sch", 'Ъ': "",
	'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu", 'Я': "Ya",
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
)

// Transliterate converts Cyrillic text to a Latin slug.
//
// After letter substitution everything but ASCII letters, digits, whitespace
// and hyphens is removed, whitespace runs become a single hyphen and hyphen
// runs collapse. Leading or trailing hyphens already present are kept.
//
//	Transliterate("Иван Петров") // "Ivan-Petrov"
func Transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}

	out := nonSlugChars.ReplaceAllString(b.String(), "")
	out = whitespaceRe.ReplaceAllString(strings.TrimSpace(out), "-")
	return hyphenRunRe.ReplaceAllString(out, "-")
}
