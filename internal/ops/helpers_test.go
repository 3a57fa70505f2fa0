package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/generator"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/logging"
	"github.com/hpungsan/ideaforge/internal/project"
)

// reply is one scripted generator response.
type reply struct {
	text string
	err  error
}

// scriptedGenerator answers requests from a queue and remembers them.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []generator.Request
}

func script(replies ...reply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func text(s string) reply { return reply{text: s} }

func fail(err error) reply { return reply{err: err} }

func (g *scriptedGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(g.replies) == 0 {
		return "", fmt.Errorf("no scripted reply for call %d", len(g.calls))
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// fakeRecorder captures ledger events.
type fakeRecorder struct {
	phases   []db.Phase
	outcomes []db.Outcome
	finished []string
}

func (r *fakeRecorder) StartRun(phase db.Phase) (string, error) {
	r.phases = append(r.phases, phase)
	return fmt.Sprintf("run-%d", len(r.phases)), nil
}

func (r *fakeRecorder) Record(o db.Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *fakeRecorder) FinishRun(id string) error {
	r.finished = append(r.finished, id)
	return nil
}

// testClock is a settable clock.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

type testEnv struct {
	*Env
	ideas    *idea.MemStore
	projects *project.FileStore
	gen      *scriptedGenerator
	recorder *fakeRecorder
	clock    *testClock
}

func newTestEnv(t *testing.T, gen *scriptedGenerator, records ...idea.Record) *testEnv {
	t.Helper()
	ideas := idea.NewMemStore(records...)
	projects := project.NewFileStore(filepath.Join(t.TempDir(), "projects"))
	recorder := &fakeRecorder{}
	clock := &testClock{now: time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)}
	return &testEnv{
		Env: &Env{
			Ideas:     ideas,
			Projects:  projects,
			Generator: gen,
			Blacklist: idea.NewBlacklist(idea.DefaultBlacklist),
			Recorder:  recorder,
			Logger:    logging.Discard(),
			Now:       clock.Now,
		},
		ideas:    ideas,
		projects: projects,
		gen:      gen,
		recorder: recorder,
		clock:    clock,
	}
}

func seedIdea(date, text, slug string) idea.Record {
	return idea.Record{Date: date, Idea: text, ProjectSlug: slug, Status: idea.StatusNew}
}
