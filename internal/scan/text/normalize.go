package text

import (
	"html"
	"strings"
	"unicode"
)

// Normalize canonicalizes content before scoring: HTML entities are
// unescaped, letters lowercased, runs of whitespace collapsed to single
// spaces, and everything that is not a letter, digit, or space dropped.
// Detectors see the same text no matter how the author dressed it up.
func Normalize(s string) string {
	s = html.UnescapeString(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
