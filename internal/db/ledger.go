package db

import "database/sql"

// Ledger binds the run ledger queries to one database handle.
type Ledger struct {
	db *sql.DB
}

// NewLedger wraps db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// StartRun opens a run for phase and returns its ID.
func (l *Ledger) StartRun(phase Phase) (string, error) {
	run, err := StartRun(l.db, phase)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// Record appends o.
func (l *Ledger) Record(o Outcome) error {
	return RecordOutcome(l.db, &o)
}

// FinishRun closes the run.
func (l *Ledger) FinishRun(id string) error {
	return FinishRun(l.db, id)
}

// Runs lists recent runs.
func (l *Ledger) Runs(limit int) ([]RunSummary, error) {
	return ListRuns(l.db, limit)
}

// Outcomes lists a run's outcomes.
func (l *Ledger) Outcomes(runID string) ([]Outcome, error) {
	return ListOutcomes(l.db, runID)
}

// Run fetches one run by ID.
func (l *Ledger) Run(id string) (*Run, error) {
	return GetRun(l.db, id)
}
