package ops

import (
	"strings"

	"github.com/hpungsan/ideaforge/internal/changeset"
	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/project"
)

// ApplyInput contains parameters for the ApplyChangeSet operation.
type ApplyInput struct {
	Slug string // required

	// ChangeSet is the raw change-set JSON, parsed with the same fallbacks
	// as generator output.
	ChangeSet string // required
}

// ApplyChangeSet applies a caller-supplied change-set to one project and
// records it as an iteration. Unlike Iterate, problems with the project or
// the change-set are returned as errors.
func ApplyChangeSet(env *Env, input ApplyInput) (*ProjectResult, error) {
	slug := strings.TrimSpace(input.Slug)
	if err := project.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ChangeSet) == "" {
		return nil, errors.NewInvalidRequest("change-set is required")
	}

	doc, err := env.Projects.Load(slug)
	if err != nil {
		return nil, err
	}
	cs, err := changeset.Parse(input.ChangeSet)
	if err != nil {
		return nil, err
	}

	res, err := commitChangeSet(env, slug, doc, cs)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	run := env.beginRun(db.PhaseApply)
	defer run.finish()
	run.record(res)
	env.logResult(run.id, res)
	return &res, nil
}
