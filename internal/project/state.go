// Package project owns per-project state documents and the project file tree:
// listing it, guarding paths into it, and applying change-sets to it.
package project

import (
	"encoding/json"

	"github.com/hpungsan/ideaforge/internal/changeset"
)

// StateFile is the name of the state document inside each project directory.
const StateFile = "state.json"

// AppliedChange records one operation that took effect on disk.
type AppliedChange struct {
	Path   string           `json:"path"`
	Action changeset.Action `json:"action"`
}

// IterationRecord is one entry of a project's append-only history.
type IterationRecord struct {
	Date    string          `json:"date"`
	Summary string          `json:"summary"`
	Applied []AppliedChange `json:"applied"`

	// Extra holds fields written by other tools; they survive a load/save.
	Extra map[string]json.RawMessage `json:"-"`
}

// Document is the persisted state of one project.
type Document struct {
	Slug        string            `json:"slug"`
	Idea        string            `json:"idea"`
	CreatedDate string            `json:"created_date"`
	Iterations  []IterationRecord `json:"iterations"`

	// Extra holds top-level fields this package does not interpret. They are
	// written back after the known fields.
	Extra map[string]json.RawMessage `json:"-"`
}

// NewDocument returns the initial document for a freshly bootstrapped project.
func NewDocument(slug, idea, createdDate string) *Document {
	return &Document{
		Slug:        slug,
		Idea:        idea,
		CreatedDate: createdDate,
		Iterations:  []IterationRecord{},
	}
}

// AppendIteration adds record to the end of the history. Records are never
// edited or removed once appended.
func (d *Document) AppendIteration(record IterationRecord) {
	if record.Applied == nil {
		record.Applied = []AppliedChange{}
	}
	d.Iterations = append(d.Iterations, record)
}
