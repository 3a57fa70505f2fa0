package db

import (
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/ideaforge/internal/errors"
)

// Phase names the pipeline step a run executed.
type Phase string

const (
	PhaseIdeate  Phase = "ideate"
	PhasePropose Phase = "propose"
	PhaseIterate Phase = "iterate"
	PhaseApply   Phase = "apply"
)

// Status is the per-project result recorded for a run.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusSkipped  Status = "skipped"
	StatusError    Status = "error"
	StatusProposed Status = "proposed"
	StatusAccepted Status = "accepted"
)

// Run is one execution of a pipeline phase.
type Run struct {
	ID         string `json:"id"`
	Phase      Phase  `json:"phase"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at,omitempty"`
}

// RunSummary is a Run plus aggregate counts over its outcomes.
type RunSummary struct {
	Run
	Outcomes     int `json:"outcomes"`
	AppliedTotal int `json:"applied_total"`
}

// Outcome is the result of a run for one project.
type Outcome struct {
	RunID        string `json:"run_id"`
	Slug         string `json:"slug"`
	Status       Status `json:"status"`
	AppliedCount int    `json:"applied_count"`
	Detail       string `json:"detail,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new ULID, monotonic within the process.
func NewRunID(now time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// StartRun inserts a new unfinished run for phase.
func StartRun(db *sql.DB, phase Phase) (*Run, error) {
	now := time.Now()
	id, err := NewRunID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	run := &Run{ID: id, Phase: phase, StartedAt: now.Unix()}

	_, err = db.Exec(`INSERT INTO runs (id, phase, started_at, finished_at) VALUES (?, ?, ?, NULL)`,
		run.ID, string(run.Phase), run.StartedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return run, nil
}

// FinishRun stamps finished_at on an unfinished run.
func FinishRun(db *sql.DB, id string) error {
	result, err := db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ? AND finished_at IS NULL`,
		time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// RecordOutcome appends an outcome row. CreatedAt defaults to now.
func RecordOutcome(db *sql.DB, o *Outcome) error {
	if o.RunID == "" || o.Slug == "" || o.Status == "" {
		return errors.NewInvalidRequest("outcome requires run_id, slug and status")
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().Unix()
	}
	_, err := db.Exec(`
		INSERT INTO outcomes (run_id, slug, status, applied_count, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.RunID, o.Slug, string(o.Status), o.AppliedCount, toNullString(o.Detail), o.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func GetRun(db *sql.DB, id string) (*Run, error) {
	var (
		run      Run
		phase    string
		finished sql.NullInt64
	)
	err := db.QueryRow(`SELECT id, phase, started_at, finished_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &phase, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	run.Phase = Phase(phase)
	if finished.Valid {
		run.FinishedAt = &finished.Int64
	}
	return &run, nil
}

// ListRuns returns the most recent runs first, at most limit (0 = 20).
// Ties on started_at are broken by ID, which sorts by creation order.
func ListRuns(db *sql.DB, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT r.id, r.phase, r.started_at, r.finished_at,
			COUNT(o.id), COALESCE(SUM(o.applied_count), 0)
		FROM runs r
		LEFT JOIN outcomes o ON o.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			s        RunSummary
			phase    string
			finished sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &phase, &s.StartedAt, &finished, &s.Outcomes, &s.AppliedTotal); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Phase = Phase(phase)
		if finished.Valid {
			v := finished.Int64
			s.FinishedAt = &v
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// ListOutcomes returns a run's outcomes in insertion order.
func ListOutcomes(db *sql.DB, runID string) ([]Outcome, error) {
	rows, err := db.Query(`
		SELECT run_id, slug, status, applied_count, detail, created_at
		FROM outcomes
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	outcomes := []Outcome{}
	for rows.Next() {
		var (
			o      Outcome
			status string
			detail sql.NullString
		)
		if err := rows.Scan(&o.RunID, &o.Slug, &status, &o.AppliedCount, &detail, &o.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		o.Status = Status(status)
		o.Detail = detail.String
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return outcomes, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
