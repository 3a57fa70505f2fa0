// Package proposal writes and summarises the prose improvement proposals
// produced for each project.
package proposal

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/ideaforge/internal/fsutil"
)

// FileName is the proposal document inside a proposal folder.
const FileName = "output.md"

// MaxTitleLength bounds Summary.Title in runes.
const MaxTitleLength = 120

// Dir returns the proposal folder for date under projectDir.
func Dir(projectDir, date string) string {
	return filepath.Join(projectDir, "iteration_"+date)
}

// Path returns the proposal document path for date under projectDir.
func Path(projectDir, date string) string {
	return filepath.Join(Dir(projectDir, date), FileName)
}

// Write stores content (plus a trailing newline) as the proposal for date,
// replacing any earlier proposal from the same day.
func Write(projectDir, date, content string) (string, error) {
	rel := "iteration_" + date + "/" + FileName
	if err := fsutil.SymlinkFree(projectDir, rel); err != nil {
		return "", fmt.Errorf("proposal folder: %w", err)
	}
	path := Path(projectDir, date)
	body := strings.TrimRight(content, "\n") + "\n"
	if err := fsutil.WriteFileAtomic(path, []byte(body), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Summary is the gist of a proposal document.
type Summary struct {
	// Title is the first heading, or the first paragraph when there is none.
	Title string `json:"title"`

	// Tasks are the top-level list items, in order.
	Tasks []string `json:"tasks,omitempty"`
}

// Summarize parses markdown and extracts its title and task list.
func Summarize(markdown string) Summary {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var (
		summary   Summary
		heading   string
		paragraph string
	)
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			if heading == "" {
				heading = plainText(n, src)
			}
		case *ast.Paragraph:
			if paragraph == "" {
				paragraph = plainText(n, src)
			}
		case *ast.List:
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				if t := plainText(item, src); t != "" {
					summary.Tasks = append(summary.Tasks, t)
				}
			}
		}
	}

	summary.Title = heading
	if summary.Title == "" {
		summary.Title = paragraph
	}
	summary.Title = truncate(summary.Title, MaxTitleLength)
	return summary
}

// plainText concatenates the inline text under node. Soft and hard line
// breaks become single spaces; nested lists are not descended into.
func plainText(node ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n != node && n.Kind() == ast.KindList {
			return ast.WalkSkipChildren, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		if n.Kind() == ast.KindParagraph || n.Kind() == ast.KindTextBlock {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
