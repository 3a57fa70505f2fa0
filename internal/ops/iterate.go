package ops

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/changeset"
	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/project"
)

// IterateOutput contains the result of the Iterate operation.
type IterateOutput struct {
	RunID   string          `json:"run_id,omitempty"`
	Results []ProjectResult `json:"results"`
}

// Iterate runs one code-change iteration for every discovered project, in
// order. Per-project failures become skipped or error results and never stop
// the run, with two exceptions: a generator configuration error stops further
// generator calls (the remaining projects are reported skipped and the error
// is returned after the loop), and cancellation stops the run immediately.
func Iterate(ctx context.Context, env *Env) (*IterateOutput, error) {
	disc, err := Discover(env)
	if err != nil {
		return nil, err
	}

	run := env.beginRun(db.PhaseIterate)
	defer run.finish()

	out := &IterateOutput{RunID: run.id, Results: []ProjectResult{}}
	var configErr error
	for _, slug := range disc.Slugs {
		var (
			res ProjectResult
			err error
		)
		if configErr != nil {
			res = skippedResult(slug, configErr.Error())
		} else {
			res, err = iterateProject(ctx, env, slug)
		}

		out.Results = append(out.Results, res)
		run.record(res)
		env.logResult(run.id, res)

		switch {
		case errors.Is(err, errors.ErrConfig):
			configErr = err
		case errors.Is(err, errors.ErrCancelled):
			return out, err
		}
	}
	return out, configErr
}

// iterateProject performs steps load → snapshot → generate → parse → apply →
// record for one project. The returned error is non-nil only for conditions
// that affect the whole run (configuration, cancellation); everything else is
// folded into the result.
func iterateProject(ctx context.Context, env *Env, slug string) (ProjectResult, error) {
	if ctx.Err() != nil {
		return errorResult(slug, "cancelled"), errors.NewCancelled("iterate")
	}

	doc, err := env.Projects.Load(slug)
	if err != nil {
		return skippedResult(slug, stateReason(err)), nil
	}

	tree, err := project.Snapshot(env.Projects.Dir(slug))
	if err != nil {
		return errorResult(slug, fmt.Sprintf("list files: %v", err)), nil
	}

	req, err := iterateRequest(doc, tree)
	if err != nil {
		return errorResult(slug, err.Error()), nil
	}
	raw, err := env.Generator.Generate(ctx, req)
	if err != nil {
		return generatorFailure(ctx, slug, "iterate", err)
	}

	cs, err := changeset.Parse(raw)
	if err != nil {
		return skippedResult(slug, err.Error()), nil
	}

	res, err := commitChangeSet(env, slug, doc, cs)
	if err != nil {
		return errorResult(slug, err.Error()), nil
	}
	return res, nil
}

// commitChangeSet applies cs to project slug and appends the iteration record
// to doc, which must have been loaded for slug.
func commitChangeSet(env *Env, slug string, doc *project.Document, cs *changeset.ChangeSet) (ProjectResult, error) {
	doc.Slug = slug
	applied, skipped := project.ApplyDetailed(env.Projects.Dir(slug), cs.Changes)
	for _, s := range skipped {
		env.log().WithFields(logrus.Fields{
			"slug":   slug,
			"index":  s.Index,
			"path":   s.Path,
			"reason": s.Reason,
		}).Debug("change skipped")
	}

	doc.AppendIteration(project.IterationRecord{
		Date:    env.today(),
		Summary: cs.Summary,
		Applied: applied,
	})
	if err := env.Projects.Save(doc); err != nil {
		return ProjectResult{}, fmt.Errorf("save state: %w", err)
	}
	return ProjectResult{
		Slug:    slug,
		Status:  db.StatusApplied,
		Applied: applied,
		Summary: cs.Summary,
	}, nil
}

// generatorFailure classifies a failed generator call.
func generatorFailure(ctx context.Context, slug, op string, err error) (ProjectResult, error) {
	switch {
	case errors.Is(err, errors.ErrConfig):
		return skippedResult(slug, err.Error()), err
	case errors.Is(err, errors.ErrCancelled) || ctx.Err() != nil:
		return errorResult(slug, "cancelled"), errors.NewCancelled(op)
	default:
		return errorResult(slug, err.Error()), nil
	}
}

// stateReason explains why a state document could not be used.
func stateReason(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return "missing state.json"
	case errors.ErrMalformedState:
		return "invalid state.json"
	default:
		return err.Error()
	}
}
