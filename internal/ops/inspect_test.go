package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/project"
)

func TestListProjects(t *testing.T) {
	env := newTestEnv(t, script())
	_, err := env.projects.Bootstrap("healthy", "Healthy idea", "2026-10-01")
	require.NoError(t, err)
	doc, err := env.projects.Load("healthy")
	require.NoError(t, err)
	doc.AppendIteration(project.IterationRecord{Date: "2026-10-02", Summary: "s"})
	require.NoError(t, env.projects.Save(doc))

	root := env.projects.Root()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "corrupt"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "corrupt", project.StateFile), []byte("nope"), 0644))

	infos, err := ListProjects(env.Env)
	require.NoError(t, err)
	require.Equal(t, []ProjectInfo{
		{Slug: "corrupt", State: StateMalformed},
		{Slug: "empty", State: StateMissing},
		{Slug: "healthy", Idea: "Healthy idea", CreatedDate: "2026-10-01", Iterations: 1, LastDate: "2026-10-02", State: StateOK},
	}, infos)
}

func TestGetStateAndTree(t *testing.T) {
	env := newTestEnv(t, script())
	_, err := env.projects.Bootstrap("p", "idea", "2026-10-01")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(env.projects.Dir("p"), "main.go"), []byte("package main"), 0644))

	doc, err := GetState(env.Env, "p")
	require.NoError(t, err)
	require.Equal(t, "idea", doc.Idea)

	tree, err := GetTree(env.Env, "p")
	require.NoError(t, err)
	require.Equal(t, []project.TreeEntry{{Path: "main.go"}}, tree)

	_, err = GetTree(env.Env, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = GetState(env.Env, "..")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListIdeas(t *testing.T) {
	env := newTestEnv(t, script(), seedIdea("2026-10-01", "One", "one"), seedIdea("2026-10-02", "Two", "two"))

	records, err := ListIdeas(env.Env)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "two", records[1].ProjectSlug)
}
