package idea

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize folds idea text for comparison:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// bulletPrefixes are list markers stripped from generated idea blocks.
var bulletPrefixes = []string{"- ", "* ", "1. ", "2. ", "3. "}

// MaxIdeasPerRun caps how many generated ideas are considered per ideation run.
const MaxIdeasPerRun = 2

// ParseIdeas splits generator text into candidate ideas.
// Ideas are separated by blank lines; leading bullet or number markers are removed.
// At most MaxIdeasPerRun candidates are returned.
func ParseIdeas(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var ideas []string
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		line := strings.TrimSpace(block)
		if line == "" {
			continue
		}
		for _, prefix := range bulletPrefixes {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				line = strings.TrimSpace(rest)
			}
		}
		if line == "" {
			continue
		}
		ideas = append(ideas, line)
		if len(ideas) == MaxIdeasPerRun {
			break
		}
	}
	return ideas
}
