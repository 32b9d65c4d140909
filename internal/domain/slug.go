package domain

import (
	"strings"
	"unicode"
)

// Slugify converts a name into a URL-safe slug: lowercase, hyphens between
// words, everything outside [a-z0-9] dropped.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // trim leading hyphens
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
