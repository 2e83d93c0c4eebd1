package blog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, drops everything but letters, digits, underscores,
// hyphens and spaces, then joins runs of spaces and hyphens with a single hyphen.
// Non-ASCII letters are kept.
func Slugify(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_")
}

// tagFields trims a tag name and derives its slug. Names with nothing left to
// slug are rejected.
func tagFields(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return "", "", fmt.Errorf("tag %q has no usable slug", name)
	}
	return name, slug, nil
}
