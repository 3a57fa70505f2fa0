package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ideaforge/internal/config"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/generator"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/project"
)

// useGenerator swaps the workspace generator for the duration of the test.
func useGenerator(t *testing.T, gen generator.Generator) {
	t.Helper()
	prev := newGenerator
	newGenerator = func(*config.Config) generator.Generator { return gen }
	t.Cleanup(func() { newGenerator = prev })
}

// runCLI runs the app against workspace dir and returns what it printed.
func runCLI(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newCLIApp(strings.NewReader(stdin), &out, &errOut)
	err := app.RunContext(t.Context(), append([]string{"ideaforge", "--dir", dir}, args...))
	return out.String(), err
}

// seedWorkspace writes an idea store binding text to slug.
func seedWorkspace(t *testing.T, slug, text string) string {
	t.Helper()
	dir := t.TempDir()
	store := idea.NewFileStore(filepath.Join(dir, "ideas.json"), nil)
	require.NoError(t, store.Save([]idea.Record{{
		Date:        "2026-10-18",
		Idea:        text,
		ProjectSlug: slug,
		Status:      idea.StatusNew,
	}}))
	return dir
}

func requireExit(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var exitErr cli.ExitCoder
	require.True(t, stderrors.As(err, &exitErr), "expected exit error, got %v", err)
	require.Equal(t, 1, exitErr.ExitCode())
	require.Contains(t, err.Error(), "["+string(code)+"]")
}

func TestCLIIterate(t *testing.T) {
	dir := seedWorkspace(t, "tide-table-widget", "Tide table widget")
	useGenerator(t, generator.Static(`{"summary":"scaffold","changes":[`+
		`{"path":"app.py","action":"create","content":"print('tides')\n"},`+
		`{"path":"../../evil.py","action":"create","content":"boom"}]}`))

	out, err := runCLI(t, dir, "", "iterate")
	require.NoError(t, err)
	require.Equal(t, "tide-table-widget: applied 1 change(s) - scaffold\n", out)

	projectDir := filepath.Join(dir, "projects", "tide-table-widget")
	require.FileExists(t, filepath.Join(projectDir, "app.py"))
	require.NoFileExists(t, filepath.Join(dir, "evil.py"))
	require.NoFileExists(t, filepath.Join(filepath.Dir(dir), "evil.py"))

	out, err = runCLI(t, dir, "", "runs")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "iterate", runs[0]["phase"])

	out, err = runCLI(t, dir, "", "runs", "--run", runs[0]["id"].(string))
	require.NoError(t, err)
	require.Contains(t, out, `"status": "applied"`)
}

func TestCLIIterate_ConfigErrorExitsNonZero(t *testing.T) {
	dir := seedWorkspace(t, "tide-table-widget", "Tide table widget")
	useGenerator(t, generator.Func(func(context.Context, generator.Request) (string, error) {
		return "", errors.NewConfig("OPENAI_API_KEY missing; set it in .env or the environment")
	}))

	out, err := runCLI(t, dir, "", "iterate")
	requireExit(t, err, errors.ErrConfig)
	require.Contains(t, out, "tide-table-widget: skipped")
}

func TestCLIIterate_MalformedOutputIsNotFatal(t *testing.T) {
	dir := seedWorkspace(t, "tide-table-widget", "Tide table widget")
	useGenerator(t, generator.Static("I could not decide what to change."))

	out, err := runCLI(t, dir, "", "iterate")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "tide-table-widget: skipped"), out)
}

func TestCLIIterate_NoProjects(t *testing.T) {
	useGenerator(t, generator.Static(""))

	out, err := runCLI(t, t.TempDir(), "", "iterate")
	require.NoError(t, err)
	require.Equal(t, "no projects\n", out)
}

func TestCLIIdeate(t *testing.T) {
	dir := t.TempDir()
	useGenerator(t, generator.Static("Pixel garden simulator\n\nRecipe scaler for bakers"))

	out, err := runCLI(t, dir, "", "ideate")
	require.NoError(t, err)
	require.Contains(t, out, "pixel-garden-simulator: accepted - Pixel garden simulator\n")
	require.Contains(t, out, "rejected (blacklisted): Recipe scaler for bakers\n")

	out, err = runCLI(t, dir, "", "ideas")
	require.NoError(t, err)
	var records []idea.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	require.Equal(t, "pixel-garden-simulator", records[0].ProjectSlug)
}

func TestCLIIdeate_GeneratorFailureIsReported(t *testing.T) {
	useGenerator(t, generator.Func(func(context.Context, generator.Request) (string, error) {
		return "", errors.NewGenerator(fmt.Errorf("503 Service Unavailable"))
	}))

	out, err := runCLI(t, t.TempDir(), "", "ideate")
	require.NoError(t, err)
	require.Contains(t, out, "ideate: error (503 Service Unavailable)")
}

func TestCLIPropose(t *testing.T) {
	dir := seedWorkspace(t, "tide-table-widget", "Tide table widget")
	useGenerator(t, generator.Static("# Add a harbour picker\n\nLet users choose their port."))

	out, err := runCLI(t, dir, "", "propose")
	require.NoError(t, err)
	require.Contains(t, out, `tide-table-widget: proposed "Add a harbour picker"`)

	matches, err := filepath.Glob(filepath.Join(dir, "projects", "tide-table-widget", "iteration_*", "output.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestCLIApply(t *testing.T) {
	dir := t.TempDir()
	projects := project.NewFileStore(filepath.Join(dir, "projects"))
	_, err := projects.Bootstrap("tide-table-widget", "Tide table widget", "2026-10-18")
	require.NoError(t, err)
	useGenerator(t, generator.Static(""))

	cs := `{"summary":"readme","changes":[{"path":"README.md","action":"create","content":"# Tides\n"}]}`
	out, err := runCLI(t, dir, cs, "apply", "--project", "tide-table-widget")
	require.NoError(t, err)
	require.Equal(t, "tide-table-widget: applied 1 change(s) - readme\n", out)

	out, err = runCLI(t, dir, "", "tree", "--project", "tide-table-widget")
	require.NoError(t, err)
	require.Equal(t, "README.md\n", out)

	out, err = runCLI(t, dir, "", "state", "--project", "tide-table-widget")
	require.NoError(t, err)
	var doc project.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Iterations, 1)
	require.Equal(t, "readme", doc.Iterations[0].Summary)
}

func TestCLIApply_Errors(t *testing.T) {
	dir := t.TempDir()
	useGenerator(t, generator.Static(""))

	tests := []struct {
		name  string
		stdin string
		args  []string
		code  errors.ErrorCode
	}{
		{name: "empty stdin", stdin: "", args: []string{"apply", "--project", "x"}, code: errors.ErrInvalidRequest},
		{name: "unknown project", stdin: `{"changes":[]}`, args: []string{"apply", "--project", "ghost"}, code: errors.ErrNotFound},
		{name: "bad slug", stdin: `{"changes":[]}`, args: []string{"apply", "--project", "../x"}, code: errors.ErrInvalidRequest},
		{name: "missing state", args: []string{"state", "--project", "ghost"}, code: errors.ErrNotFound},
		{name: "missing tree", args: []string{"tree", "--project", "ghost"}, code: errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dir, tt.stdin, tt.args...)
			requireExit(t, err, tt.code)
		})
	}
}

func TestCLIProjects(t *testing.T) {
	dir := t.TempDir()
	projects := project.NewFileStore(filepath.Join(dir, "projects"))
	_, err := projects.Bootstrap("tide-table-widget", "Tide table widget", "2026-10-18")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(projects.Dir("broken"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projects.Dir("broken"), project.StateFile), []byte("[]"), 0644))
	useGenerator(t, generator.Static(""))

	out, err := runCLI(t, dir, "", "projects")
	require.NoError(t, err)
	var infos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	require.Equal(t, "broken", infos[0]["slug"])
	require.Equal(t, "malformed", infos[0]["state"])
	require.Equal(t, "ok", infos[1]["state"])
}

func TestCLI_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{
		// unsupported
		"log_format": "xml",
	}`), 0644))
	useGenerator(t, generator.Static(""))

	_, err := runCLI(t, dir, "", "projects")
	requireExit(t, err, errors.ErrConfig)
}

func TestCLIDaemon_InvalidSchedule(t *testing.T) {
	useGenerator(t, generator.Static(""))

	_, err := runCLI(t, t.TempDir(), "", "daemon", "--schedule", "whenever")
	requireExit(t, err, errors.ErrConfig)
}

func TestCLIDaemon_StopsOnCancel(t *testing.T) {
	useGenerator(t, generator.Static(""))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var out bytes.Buffer
	app := newCLIApp(strings.NewReader(""), &out, &out)
	err := app.RunContext(ctx, []string{"ideaforge", "--dir", t.TempDir(), "daemon"})
	require.NoError(t, err)
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewNotFound("ghost"))
	require.Equal(t, "[NOT_FOUND] not found: ghost", err.Error())

	err = outputError(fmt.Errorf("phase iterate: %w", errors.NewCancelled("iterate")))
	require.Equal(t, "[CANCELLED] phase iterate: CANCELLED: iterate cancelled", err.Error())

	err = outputError(fmt.Errorf("disk full"))
	require.Equal(t, "[INTERNAL] disk full", err.Error())
}

func TestCLIWeb_InvalidPort(t *testing.T) {
	useGenerator(t, generator.Static(""))

	_, err := runCLI(t, t.TempDir(), "", "web", "--port", "70000")
	requireExit(t, err, errors.ErrInvalidRequest)
}
