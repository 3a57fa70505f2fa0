package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/ops"
	"github.com/hpungsan/ideaforge/internal/project"
	"github.com/hpungsan/ideaforge/internal/proposal"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	env      *ops.Env
	runs     RunLister
	renderer *Renderer
}

// HandleProjects handles GET /projects.
func (h *Handlers) HandleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := ops.ListProjects(h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"projects": projects})
		return
	}
	h.renderer.renderPage(w, "projects", ProjectsPageData{
		PageData: h.renderer.page("Projects", "projects"),
		Projects: projects,
	})
}

// HandleProject handles GET /projects/{slug}: state, files, and the newest proposal.
func (h *Handlers) HandleProject(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	doc, err := ops.GetState(h.env, slug)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	files, err := ops.GetTree(h.env, slug)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	dates, err := proposal.Dates(h.env.Projects.Dir(slug))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"state":     doc,
			"files":     files,
			"proposals": dates,
		})
		return
	}

	data := ProjectPageData{
		PageData:  h.renderer.page(slug, "projects"),
		Doc:       doc,
		Files:     files,
		Proposals: dates,
	}
	if len(dates) > 0 {
		if md, err := proposal.Read(h.env.Projects.Dir(slug), dates[0]); err == nil {
			data.LatestDate = dates[0]
			data.Latest = renderMarkdown(md)
		}
	}
	h.renderer.renderPage(w, "project", data)
}

// HandleProposal handles GET /projects/{slug}/proposals/{date}.
func (h *Handlers) HandleProposal(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	date := r.PathValue("date")

	if err := project.ValidateSlug(slug); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	md, err := proposal.Read(h.env.Projects.Dir(slug), date)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	summary := proposal.Summarize(md)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"slug":     slug,
			"date":     date,
			"summary":  summary,
			"markdown": md,
		})
		return
	}
	h.renderer.renderPage(w, "proposal", ProposalPageData{
		PageData:     h.renderer.page(slug+" "+date, "projects"),
		Slug:         slug,
		Date:         date,
		Summary:      summary,
		RenderedHTML: renderMarkdown(md),
	})
}

// HandleIdeas handles GET /ideas.
func (h *Handlers) HandleIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := ops.ListIdeas(h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
		return
	}
	h.renderer.renderPage(w, "ideas", IdeasPageData{
		PageData: h.renderer.page("Ideas", "ideas"),
		Ideas:    ideas,
	})
}

// HandleRuns handles GET /runs.
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	runs := []db.RunSummary{}
	if h.runs != nil {
		var err error
		if runs, err = h.runs.Runs(parseIntParam(r, "limit", 20)); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"runs": runs})
		return
	}
	h.renderer.renderPage(w, "runs", RunsPageData{
		PageData: h.renderer.page("Runs", "runs"),
		Runs:     runs,
	})
}

// HandleRun handles GET /runs/{id}.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.runs == nil {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	run, err := h.runs.Run(id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	outcomes, err := h.runs.Outcomes(id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"run": run, "outcomes": outcomes})
		return
	}
	h.renderer.renderPage(w, "run", RunPageData{
		PageData: h.renderer.page("Run "+id, "runs"),
		Run:      run,
		Outcomes: outcomes,
	})
}

// parseIntParam reads a non-negative integer query parameter, falling back
// to def when absent or invalid.
func parseIntParam(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
