package idea

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength bounds the length of a derived slug.
const MaxSlugLength = 60

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a filesystem-safe identifier from free text.
// It lowercases, collapses every run of characters outside [a-z0-9] into a
// single "-", trims leading/trailing dashes, and truncates to MaxSlugLength.
// Text with no ASCII alphanumerics yields "".
func Slugify(text string) string {
	s := nonSlugRun.ReplaceAllString(strings.ToLower(text), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		// Output is pure ASCII, so byte truncation is rune-safe.
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// FallbackSlug returns the placeholder used when an idea has no slug-able text.
func FallbackSlug(date string) string {
	return "idea-" + date
}

// EnsureUnique returns base if it is not in known; otherwise the first of
// base-2, base-3, ... that is not in known. known is not modified.
func EnsureUnique(base string, known map[string]struct{}) string {
	if _, taken := known[base]; !taken {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := known[candidate]; !taken {
			return candidate
		}
	}
}

// AssignSlug derives a unique slug for text, falling back to a date-based
// placeholder when text has no slug-able characters, and records it in known.
func AssignSlug(text, date string, known map[string]struct{}) string {
	base := Slugify(text)
	if base == "" {
		base = FallbackSlug(date)
	}
	slug := EnsureUnique(base, known)
	known[slug] = struct{}{}
	return slug
}
