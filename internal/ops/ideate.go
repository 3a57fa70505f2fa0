package ops

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/idea"
)

// Rejection reasons reported by Ideate.
const (
	RejectBlacklisted = "blacklisted"
	RejectDuplicate   = "duplicate"
)

// RejectedIdea is a generated candidate that was not stored.
type RejectedIdea struct {
	Idea   string `json:"idea"`
	Reason string `json:"reason"`
}

// IdeateOutput contains the result of the Ideate operation.
type IdeateOutput struct {
	RunID     string         `json:"run_id,omitempty"`
	Generated int            `json:"generated"`
	Accepted  []idea.Record  `json:"accepted"`
	Rejected  []RejectedIdea `json:"rejected"`
}

// Ideate asks the generator for up to two ideas, filters them against the
// blacklist and every stored idea, assigns each survivor a unique slug, and
// appends them to the idea store. The store is written only when something
// was accepted.
func Ideate(ctx context.Context, env *Env) (*IdeateOutput, error) {
	records, err := env.Ideas.Load()
	if err != nil {
		return nil, err
	}

	raw, err := env.Generator.Generate(ctx, ideaRequest())
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, errors.ErrCancelled) {
			return nil, errors.NewCancelled("ideate")
		}
		return nil, err
	}
	candidates := idea.ParseIdeas(raw)

	known := idea.KnownSlugs(records)
	if env.Projects != nil {
		dirs, err := env.Projects.List()
		if err != nil {
			return nil, err
		}
		for _, d := range dirs {
			known[d] = struct{}{}
		}
	}

	today := env.today()
	out := &IdeateOutput{
		Generated: len(candidates),
		Accepted:  []idea.Record{},
		Rejected:  []RejectedIdea{},
	}
	seen := records
	for _, text := range candidates {
		switch {
		case env.Blacklist.Contains(text):
			out.Rejected = append(out.Rejected, RejectedIdea{Idea: text, Reason: RejectBlacklisted})
			continue
		case idea.IsDuplicate(seen, text):
			out.Rejected = append(out.Rejected, RejectedIdea{Idea: text, Reason: RejectDuplicate})
			continue
		}
		rec := idea.Record{
			Date:        today,
			Idea:        text,
			ProjectSlug: idea.AssignSlug(text, today, known),
			Status:      idea.StatusNew,
		}
		out.Accepted = append(out.Accepted, rec)
		seen = idea.Append(seen, []idea.Record{rec})
	}

	for _, r := range out.Rejected {
		env.log().WithFields(logrus.Fields{"reason": r.Reason, "idea": r.Idea}).Info("idea rejected")
	}
	if len(out.Accepted) == 0 {
		return out, nil
	}

	if err := env.Ideas.Save(idea.Append(records, out.Accepted)); err != nil {
		return nil, err
	}

	run := env.beginRun(db.PhaseIdeate)
	defer run.finish()
	out.RunID = run.id
	for _, rec := range out.Accepted {
		env.log().WithFields(logrus.Fields{"slug": rec.ProjectSlug, "date": rec.Date}).Info("idea accepted")
		run.record(ProjectResult{Slug: rec.ProjectSlug, Status: db.StatusAccepted, Summary: rec.Idea})
	}
	return out, nil
}
