package ops

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/idea"
)

// DiscoverOutput lists the projects a phase should visit.
type DiscoverOutput struct {
	Slugs []string `json:"slugs"`

	// FromIdeas is false when the idea store yielded nothing and the
	// projects directory was scanned instead.
	FromIdeas bool `json:"from_ideas"`

	// Assigned counts records that received a slug during discovery.
	Assigned int `json:"assigned"`

	// Bootstrapped lists projects whose state document was created.
	Bootstrapped []string `json:"bootstrapped"`
}

// Discover derives the project list from the idea store: every distinct,
// non-empty idea maps to a slug (assigned and persisted when missing) and
// is bootstrapped. When that yields nothing, existing project directories
// are used instead.
func Discover(env *Env) (*DiscoverOutput, error) {
	records, err := env.Ideas.Load()
	if err != nil {
		return nil, err
	}
	dirs, err := env.Projects.List()
	if err != nil {
		return nil, err
	}

	known := idea.KnownSlugs(records)
	for _, d := range dirs {
		known[d] = struct{}{}
	}

	out := &DiscoverOutput{Slugs: []string{}, Bootstrapped: []string{}, FromIdeas: true}
	today := env.today()
	seenIdeas := make(map[string]bool)
	seenSlugs := make(map[string]bool)
	changed := false

	for i := range records {
		rec := &records[i]
		norm := idea.Normalize(rec.Idea)
		if norm == "" || seenIdeas[norm] {
			continue
		}
		seenIdeas[norm] = true

		date := rec.Date
		if date == "" {
			date = today
		}
		slug, ok := rec.Slug()
		if !ok {
			slug = adoptOrAssign(env, rec.Idea, date, known)
			rec.ProjectSlug = slug
			changed = true
			out.Assigned++
		}
		if seenSlugs[slug] {
			continue
		}
		seenSlugs[slug] = true

		created, err := env.Projects.Bootstrap(slug, strings.TrimSpace(rec.Idea), date)
		if err != nil {
			env.log().WithError(err).WithField("slug", slug).Warn("bootstrap failed; project left out")
			continue
		}
		if created {
			env.log().WithField("slug", slug).Info("project bootstrapped")
			out.Bootstrapped = append(out.Bootstrapped, slug)
		}
		out.Slugs = append(out.Slugs, slug)
	}

	if changed {
		if err := env.Ideas.Save(records); err != nil {
			return nil, err
		}
		env.log().WithField("assigned", out.Assigned).Info("assigned slugs to stored ideas")
	}

	if len(out.Slugs) == 0 {
		out.FromIdeas = false
		out.Slugs = append(out.Slugs, dirs...)
		sort.Strings(out.Slugs)
	}
	env.log().WithFields(logrus.Fields{"projects": len(out.Slugs), "from_ideas": out.FromIdeas}).Debug("projects discovered")
	return out, nil
}

// adoptOrAssign binds a slug-less idea to the existing project directory
// that was created for the same idea text, if there is one; otherwise it
// assigns a fresh unique slug.
func adoptOrAssign(env *Env, text, date string, known map[string]struct{}) string {
	base := idea.Slugify(text)
	if base == "" {
		base = idea.FallbackSlug(date)
	}
	if _, taken := known[base]; taken {
		if doc, err := env.Projects.Load(base); err == nil && idea.Normalize(doc.Idea) == idea.Normalize(text) {
			return base
		}
	}
	return idea.AssignSlug(text, date, known)
}
