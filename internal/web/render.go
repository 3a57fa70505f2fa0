package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/ops"
	"github.com/hpungsan/ideaforge/internal/project"
	"github.com/hpungsan/ideaforge/internal/proposal"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "projects", "ideas", "runs"
}

// ProjectsPageData is the template data for the project list.
type ProjectsPageData struct {
	PageData
	Projects []ops.ProjectInfo
}

// ProjectPageData is the template data for one project.
type ProjectPageData struct {
	PageData
	Doc       *project.Document
	Files     []project.TreeEntry
	Proposals []string

	// Latest is the newest proposal, rendered, when there is one
	LatestDate string
	Latest     template.HTML
}

// ProposalPageData is the template data for one proposal document.
type ProposalPageData struct {
	PageData
	Slug         string
	Date         string
	Summary      proposal.Summary
	RenderedHTML template.HTML
}

// IdeasPageData is the template data for the idea store.
type IdeasPageData struct {
	PageData
	Ideas []idea.Record
}

// RunsPageData is the template data for the run list.
type RunsPageData struct {
	PageData
	Runs []db.RunSummary
}

// RunPageData is the template data for one run.
type RunPageData struct {
	PageData
	Run      *db.Run
	Outcomes []db.Outcome
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    logrus.FieldLogger
}

// NewRenderer parses the layout and every page template from templateFS.
func NewRenderer(templateFS fs.FS, version string, logger logrus.FieldLogger) (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatTimeP": formatTimePtr,
		"statusClass": statusClass,
	}

	layoutTmpl, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"projects": "projects.html",
		"project":  "project.html",
		"proposal": "proposal.html",
		"ideas":    "ideas.html",
		"runs":     "runs.html",
		"run":      "run.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layoutTmpl.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}, nil
}

// page returns PageData for a page titled title under nav.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// The page is fully rendered before anything is written, so a template
// failure still produces a clean 500.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.WithField("template", name).Error("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.WithError(err).WithField("template", name).Error("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var fErr *errors.ForgeError
	if !stderrors.As(err, &fErr) {
		fErr = errors.NewInternal(err)
	}

	status := fErr.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	message := fErr.Message
	if fErr.Code == errors.ErrInternal {
		r.logger.WithError(err).WithField("path", req.URL.Path).Error("request failed")
		message = "an internal error occurred"
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(fErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON instead of HTML.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the source is omitted (goldmark's default), since proposals are generated.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatTimePtr is formatTime for optional timestamps; nil renders as "running".
func formatTimePtr(unix *int64) string {
	if unix == nil {
		return "running"
	}
	return formatTime(*unix)
}

// statusClass maps a ledger status to a CSS class.
func statusClass(s db.Status) string {
	switch s {
	case db.StatusApplied, db.StatusProposed, db.StatusAccepted:
		return "ok"
	case db.StatusSkipped:
		return "warn"
	default:
		return "bad"
	}
}
