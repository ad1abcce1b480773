package domain

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFolder strips combining marks so accented names produce ASCII slugs.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a URL-safe slug from a term name: diacritics folded,
// lowercased, non-alphanumeric runs collapsed to single hyphens.
func Slugify(name string) string {
	folded, _, err := transform.String(diacriticFolder, strings.TrimSpace(name))
	if err != nil {
		folded = strings.TrimSpace(name)
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// NextSlug appends a numeric suffix for collision retries: "term", "term-2",
// "term-3", and so on.
func NextSlug(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}
