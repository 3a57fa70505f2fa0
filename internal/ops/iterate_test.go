package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ideaforge/internal/changeset"
	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/project"
)

const traversalChangeSet = `{"changes":[{"path":"../secret.py","action":"create","content":"x"},{"path":"app.py","action":"create","content":"print(1)"}]}`

func TestIterate_AppliesOnlyContainedChanges(t *testing.T) {
	env := newTestEnv(t, script(text(traversalChangeSet)), seedIdea("2026-10-01", "Invoice tool", "invoice-tool"))

	out, err := Iterate(context.Background(), env.Env)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	res := out.Results[0]
	require.Equal(t, db.StatusApplied, res.Status)
	require.Equal(t, []project.AppliedChange{{Path: "app.py", Action: changeset.ActionCreate}}, res.Applied)

	dir := env.projects.Dir("invoice-tool")
	data, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	require.Equal(t, "print(1)", string(data))
	_, err = os.Stat(filepath.Join(env.projects.Root(), "secret.py"))
	require.True(t, os.IsNotExist(err))

	doc, err := env.projects.Load("invoice-tool")
	require.NoError(t, err)
	require.Len(t, doc.Iterations, 1)
	require.Equal(t, "2026-10-19", doc.Iterations[0].Date)
	require.Equal(t, res.Applied, doc.Iterations[0].Applied)
}

func TestIterate_CopiedProjectWritesIntoItsOwnDirectory(t *testing.T) {
	env := newTestEnv(t, script(text(`{"summary":"s","changes":[{"path":"app.py","action":"create","content":"print(1)"}]}`)))
	_, err := env.projects.Bootstrap("orig", "Invoice tool", "2026-10-01")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.projects.Dir("orig"), project.StateFile))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(env.projects.Dir("copy"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.projects.Dir("copy"), project.StateFile), data, 0644))
	require.NoError(t, os.Remove(filepath.Join(env.projects.Dir("orig"), project.StateFile)))

	out, err := Iterate(context.Background(), env.Env)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	require.Equal(t, "copy", out.Results[0].Slug)
	require.Equal(t, db.StatusApplied, out.Results[0].Status)
	require.Equal(t, "orig", out.Results[1].Slug)
	require.Equal(t, db.StatusSkipped, out.Results[1].Status)
	require.Equal(t, 1, env.gen.Calls())

	require.FileExists(t, filepath.Join(env.projects.Dir("copy"), "app.py"))
	require.NoFileExists(t, filepath.Join(env.projects.Dir("orig"), "app.py"))
	require.NoFileExists(t, filepath.Join(env.projects.Dir("orig"), project.StateFile))

	doc, err := env.projects.Load("copy")
	require.NoError(t, err)
	require.Equal(t, "copy", doc.Slug)
	require.Len(t, doc.Iterations, 1)
}

func TestIterate_HistoryGrowsOncePerRun(t *testing.T) {
	const runs = 4
	var replies []reply
	for i := 0; i < runs; i++ {
		replies = append(replies, text(fmt.Sprintf(`{"summary":"step %d","changes":[{"path":"main.go","action":"update","content":"package main // %d\n"}]}`, i, i)))
	}
	env := newTestEnv(t, script(replies...), seedIdea("2026-10-01", "Invoice tool", "invoice-tool"))

	var wantDates []string
	for i := 0; i < runs; i++ {
		wantDates = append(wantDates, env.clock.Now().Format(DateLayout))
		_, err := Iterate(context.Background(), env.Env)
		require.NoError(t, err)
		env.clock.advanceDays(1)
	}

	doc, err := env.projects.Load("invoice-tool")
	require.NoError(t, err)
	require.Len(t, doc.Iterations, runs)
	for i, it := range doc.Iterations {
		require.Equal(t, wantDates[i], it.Date)
		require.Equal(t, fmt.Sprintf("step %d", i), it.Summary)
	}
}

func TestIterate_RequestCarriesStateAndTree(t *testing.T) {
	env := newTestEnv(t, script(text(`{"summary":"noop","changes":[]}`)), seedIdea("2026-10-01", "Invoice tool", "invoice-tool"))
	_, err := Discover(env.Env)
	require.NoError(t, err)
	dir := env.projects.Dir("invoice-tool")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.py"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.sh"), []byte("x"), 0644))

	_, err = Iterate(context.Background(), env.Env)
	require.NoError(t, err)

	req := env.gen.calls[0]
	require.True(t, req.JSON)
	require.Equal(t, 0.4, req.Temperature)
	require.Equal(t, 4000, req.MaxTokens)
	require.Contains(t, req.User, "Project: invoice-tool")
	require.Contains(t, req.User, `"created_date": "2026-10-01"`)
	require.Contains(t, req.User, "- server.py")
	require.NotContains(t, req.User, "deploy.sh")
	require.NotContains(t, req.User, "- state.json")
}

func TestIterate_PerProjectFailuresAreContained(t *testing.T) {
	env := newTestEnv(t, script(
		text("I'd rather not answer in JSON."),
		fail(fmt.Errorf("connection reset")),
		text(`Here you go: {"summary":"add readme","changes":[{"path":"README.md","action":"create","content":"# hi"}]} thanks`),
	),
		seedIdea("2026-10-01", "Alpha project", "alpha"),
		seedIdea("2026-10-01", "Broken project", "broken"),
		seedIdea("2026-10-01", "Beta project", "beta"),
		seedIdea("2026-10-01", "Gamma project", "gamma"),
	)
	_, err := Discover(env.Env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(env.projects.Dir("broken"), project.StateFile), []byte("{oops"), 0644))

	out, err := Iterate(context.Background(), env.Env)
	require.NoError(t, err)
	require.Len(t, out.Results, 4)

	require.Equal(t, db.StatusSkipped, out.Results[0].Status, "malformed output")
	require.Contains(t, out.Results[0].Reason, "no JSON object")

	require.Equal(t, db.StatusSkipped, out.Results[1].Status, "corrupt state")
	require.Equal(t, "invalid state.json", out.Results[1].Reason)

	require.Equal(t, db.StatusError, out.Results[2].Status, "generator failure")
	require.Contains(t, out.Results[2].Reason, "connection reset")

	require.Equal(t, db.StatusApplied, out.Results[3].Status)
	require.Equal(t, "add readme", out.Results[3].Summary)
	require.Equal(t, 3, env.gen.Calls(), "corrupt project never reaches the generator")

	alpha, err := env.projects.Load("alpha")
	require.NoError(t, err)
	require.Empty(t, alpha.Iterations, "skipped project gets no history entry")

	require.Len(t, env.recorder.outcomes, 4)
	require.Equal(t, "run-1", env.recorder.outcomes[0].RunID)
	require.Equal(t, 1, env.recorder.outcomes[3].AppliedCount)
	require.Equal(t, []string{"run-1"}, env.recorder.finished)
}

func TestIterate_ConfigErrorStopsGeneratorCalls(t *testing.T) {
	env := newTestEnv(t, script(fail(errors.NewConfig("OPENAI_API_KEY missing"))),
		seedIdea("2026-10-01", "Alpha project", "alpha"),
		seedIdea("2026-10-01", "Beta project", "beta"),
	)

	out, err := Iterate(context.Background(), env.Env)
	require.True(t, errors.Is(err, errors.ErrConfig))
	require.Len(t, out.Results, 2)
	for _, res := range out.Results {
		require.Equal(t, db.StatusSkipped, res.Status)
		require.Contains(t, res.Reason, "OPENAI_API_KEY missing")
	}
	require.Equal(t, 1, env.gen.Calls())
}

func TestIterate_CancellationStopsRun(t *testing.T) {
	env := newTestEnv(t, script(text(traversalChangeSet)),
		seedIdea("2026-10-01", "Alpha project", "alpha"),
		seedIdea("2026-10-01", "Beta project", "beta"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Iterate(ctx, env.Env)
	require.True(t, errors.Is(err, errors.ErrCancelled))
	require.Len(t, out.Results, 1)
	require.Equal(t, db.StatusError, out.Results[0].Status)
	require.Zero(t, env.gen.Calls())
}

func TestIterate_NoProjects(t *testing.T) {
	env := newTestEnv(t, script())

	out, err := Iterate(context.Background(), env.Env)
	require.NoError(t, err)
	require.Empty(t, out.Results)
}

func TestProjectResult_Line(t *testing.T) {
	tests := []struct {
		res  ProjectResult
		want string
	}{
		{
			ProjectResult{Slug: "p", Status: db.StatusApplied, Applied: make([]project.AppliedChange, 2), Summary: "add\ntests"},
			"p: applied 2 change(s) - add tests",
		},
		{ProjectResult{Slug: "p", Status: db.StatusApplied}, "p: applied 0 change(s)"},
		{ProjectResult{Slug: "p", Status: db.StatusSkipped, Reason: "missing state.json"}, "p: skipped (missing state.json)"},
		{ProjectResult{Slug: "p", Status: db.StatusError, Reason: "HTTP 500"}, "p: error (HTTP 500)"},
		{ProjectResult{Slug: "p", Status: db.StatusProposed, Summary: "Add export", Path: "/x/output.md"}, `p: proposed "Add export" -> /x/output.md`},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, tc.res.Line())
		require.False(t, strings.Contains(tc.res.Line(), "\n"))
	}
}
