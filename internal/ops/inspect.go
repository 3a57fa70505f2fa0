package ops

import (
	stderrors "errors"
	"os"

	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/project"
)

// Project state health as reported by ListProjects.
const (
	StateOK        = "ok"
	StateMissing   = "missing"
	StateMalformed = "malformed"
)

// ProjectInfo summarises one project directory.
type ProjectInfo struct {
	Slug        string `json:"slug"`
	Idea        string `json:"idea,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
	Iterations  int    `json:"iterations"`
	LastDate    string `json:"last_iteration,omitempty"`
	State       string `json:"state"`
}

// ListProjects summarises every project directory, including ones whose
// state document is missing or unreadable.
func ListProjects(env *Env) ([]ProjectInfo, error) {
	slugs, err := env.Projects.List()
	if err != nil {
		return nil, err
	}
	infos := make([]ProjectInfo, 0, len(slugs))
	for _, slug := range slugs {
		info := ProjectInfo{Slug: slug, State: StateOK}
		doc, err := env.Projects.Load(slug)
		switch {
		case err == nil:
			info.Idea = doc.Idea
			info.CreatedDate = doc.CreatedDate
			info.Iterations = len(doc.Iterations)
			if n := len(doc.Iterations); n > 0 {
				info.LastDate = doc.Iterations[n-1].Date
			}
		case errors.Is(err, errors.ErrMalformedState):
			info.State = StateMalformed
		case errors.Is(err, errors.ErrNotFound):
			info.State = StateMissing
		default:
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetState returns a project's state document.
func GetState(env *Env, slug string) (*project.Document, error) {
	if err := project.ValidateSlug(slug); err != nil {
		return nil, err
	}
	return env.Projects.Load(slug)
}

// GetTree returns the allowed files of a project, as the generator sees them.
func GetTree(env *Env, slug string) ([]project.TreeEntry, error) {
	if err := project.ValidateSlug(slug); err != nil {
		return nil, err
	}
	dir := env.Projects.Dir(slug)
	info, err := os.Stat(dir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewNotFound(slug)
		}
		return nil, errors.NewInternal(err)
	}
	if !info.IsDir() {
		return nil, errors.NewNotFound(slug)
	}
	tree, err := project.Snapshot(dir)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return tree, nil
}

// ListIdeas returns the stored ideas in store order.
func ListIdeas(env *Env) ([]idea.Record, error) {
	return env.Ideas.Load()
}
