// Package ops implements the pipeline phases (ideate, propose, iterate) and
// the inspection operations shared by the CLI and the MCP server.
package ops

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/generator"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/project"
)

// DateLayout is the ISO-8601 day format used in records and folder names.
const DateLayout = "2006-01-02"

// Recorder receives run ledger events. *db.Ledger implements it.
type Recorder interface {
	StartRun(phase db.Phase) (string, error)
	Record(o db.Outcome) error
	FinishRun(id string) error
}

// Env carries the collaborators every operation works against.
type Env struct {
	Ideas     idea.Store
	Projects  project.Store
	Generator generator.Generator

	// Blacklist filters generated ideas; nil accepts everything.
	Blacklist *idea.Blacklist

	// Recorder is optional. Ledger failures are logged and never fail a run.
	Recorder Recorder

	Logger logrus.FieldLogger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Env) today() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().Format(DateLayout)
}

func (e *Env) log() logrus.FieldLogger {
	if e.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		e.Logger = discard
	}
	return e.Logger
}

// ProjectResult is the outcome of one phase for one project.
type ProjectResult struct {
	Slug    string                  `json:"slug"`
	Status  db.Status               `json:"status"`
	Applied []project.AppliedChange `json:"applied,omitempty"`
	Summary string                  `json:"summary,omitempty"`
	Reason  string                  `json:"reason,omitempty"`
	Path    string                  `json:"path,omitempty"`
}

// Line renders the result as the one-line CLI summary.
func (r ProjectResult) Line() string {
	switch r.Status {
	case db.StatusApplied:
		line := fmt.Sprintf("%s: applied %d change(s)", r.Slug, len(r.Applied))
		if r.Summary != "" {
			line += " - " + oneLine(r.Summary)
		}
		return line
	case db.StatusProposed:
		if r.Summary != "" {
			return fmt.Sprintf("%s: proposed %q -> %s", r.Slug, oneLine(r.Summary), r.Path)
		}
		return fmt.Sprintf("%s: proposed -> %s", r.Slug, r.Path)
	default:
		return fmt.Sprintf("%s: %s (%s)", r.Slug, r.Status, r.Reason)
	}
}

func skippedResult(slug, reason string) ProjectResult {
	return ProjectResult{Slug: slug, Status: db.StatusSkipped, Reason: reason}
}

func errorResult(slug, reason string) ProjectResult {
	return ProjectResult{Slug: slug, Status: db.StatusError, Reason: reason}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// run tracks one ledger run. A zero run (no recorder, or StartRun failed)
// silently drops events.
type run struct {
	env *Env
	id  string
}

func (e *Env) beginRun(phase db.Phase) *run {
	r := &run{env: e}
	if e.Recorder == nil {
		return r
	}
	id, err := e.Recorder.StartRun(phase)
	if err != nil {
		e.log().WithError(err).WithField("phase", phase).Warn("run ledger unavailable")
		return r
	}
	r.id = id
	return r
}

func (r *run) record(res ProjectResult) {
	if r.id == "" {
		return
	}
	detail := res.Reason
	if detail == "" {
		detail = res.Summary
	}
	err := r.env.Recorder.Record(db.Outcome{
		RunID:        r.id,
		Slug:         res.Slug,
		Status:       res.Status,
		AppliedCount: len(res.Applied),
		Detail:       oneLine(detail),
	})
	if err != nil {
		r.env.log().WithError(err).WithFields(logrus.Fields{"run_id": r.id, "slug": res.Slug}).Warn("record outcome failed")
	}
}

func (r *run) finish() {
	if r.id == "" {
		return
	}
	if err := r.env.Recorder.FinishRun(r.id); err != nil {
		r.env.log().WithError(err).WithField("run_id", r.id).Warn("finish run failed")
	}
}

// logResult logs a per-project result at Info, or Warn for skips and errors.
func (e *Env) logResult(runID string, res ProjectResult) {
	entry := e.log().WithFields(logrus.Fields{"slug": res.Slug, "status": string(res.Status)})
	if runID != "" {
		entry = entry.WithField("run_id", runID)
	}
	switch res.Status {
	case db.StatusSkipped, db.StatusError:
		entry.WithField("reason", res.Reason).Warn("project not iterated")
	default:
		entry.WithField("applied", len(res.Applied)).Info("project done")
	}
}
