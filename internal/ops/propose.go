package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/proposal"
)

// ProposeOutput contains the result of the Propose operation.
type ProposeOutput struct {
	RunID   string          `json:"run_id,omitempty"`
	Results []ProjectResult `json:"results"`
}

// Propose asks the generator for the next improvement step of every
// discovered project and writes it to iteration_<date>/output.md. The state
// document is not modified. Failure handling matches Iterate.
func Propose(ctx context.Context, env *Env) (*ProposeOutput, error) {
	disc, err := Discover(env)
	if err != nil {
		return nil, err
	}

	run := env.beginRun(db.PhasePropose)
	defer run.finish()

	out := &ProposeOutput{RunID: run.id, Results: []ProjectResult{}}
	var configErr error
	for _, slug := range disc.Slugs {
		var (
			res ProjectResult
			err error
		)
		if configErr != nil {
			res = skippedResult(slug, configErr.Error())
		} else {
			res, err = proposeProject(ctx, env, slug)
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

func proposeProject(ctx context.Context, env *Env, slug string) (ProjectResult, error) {
	if ctx.Err() != nil {
		return errorResult(slug, "cancelled"), errors.NewCancelled("propose")
	}

	doc, err := env.Projects.Load(slug)
	if err != nil {
		return skippedResult(slug, stateReason(err)), nil
	}

	req, err := proposeRequest(doc)
	if err != nil {
		return errorResult(slug, err.Error()), nil
	}
	content, err := env.Generator.Generate(ctx, req)
	if err != nil {
		return generatorFailure(ctx, slug, "propose", err)
	}
	if strings.TrimSpace(content) == "" {
		return skippedResult(slug, "empty proposal"), nil
	}

	path, err := proposal.Write(env.Projects.Dir(slug), env.today(), strings.TrimSpace(content))
	if err != nil {
		return errorResult(slug, err.Error()), nil
	}
	return ProjectResult{
		Slug:    slug,
		Status:  db.StatusProposed,
		Summary: proposal.Summarize(content).Title,
		Path:    path,
	}, nil
}
