package idea

import "strings"

// DefaultBlacklist lists keywords for over-served idea categories.
var DefaultBlacklist = []string{
	"fitness",
	"habit tracker",
	"to-do",
	"todo",
	"journal",
	"recipe",
	"quote",
	"chatbot",
	"weather",
	"blog",
	"reminder",
}

// Blacklist rejects ideas whose normalized text contains a forbidden substring.
type Blacklist struct {
	keywords []string
}

// NewBlacklist builds a Blacklist from keywords. Keywords are normalized and
// empty entries dropped.
func NewBlacklist(keywords []string) *Blacklist {
	b := &Blacklist{}
	for _, kw := range keywords {
		if n := Normalize(kw); n != "" {
			b.keywords = append(b.keywords, n)
		}
	}
	return b
}

// Contains reports whether the normalized text contains any keyword.
func (b *Blacklist) Contains(text string) bool {
	if b == nil {
		return false
	}
	normalized := Normalize(text)
	for _, kw := range b.keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
