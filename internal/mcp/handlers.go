package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/ops"
)

// RunLister reads the run ledger. *db.Ledger implements it.
type RunLister interface {
	Runs(limit int) ([]db.RunSummary, error)
	Outcomes(runID string) ([]db.Outcome, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env  *ops.Env
	runs RunLister
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env, runs RunLister) *Handlers {
	return &Handlers{env: env, runs: runs}
}

// Request types for MCP tool arguments

// SlugRequest represents the arguments for project_state and project_tree.
type SlugRequest struct {
	Slug string `json:"slug"`
}

// ChangesetApplyRequest represents the arguments for changeset_apply.
type ChangesetApplyRequest struct {
	Slug      string `json:"slug"`
	ChangeSet string `json:"changeset"`
}

// RunListRequest represents the arguments for run_list.
type RunListRequest struct {
	RunID string `json:"run_id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// HandleProjectList handles the project_list tool call.
func (h *Handlers) HandleProjectList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := ops.ListProjects(h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"projects": projects})
}

// HandleProjectState handles the project_state tool call.
func (h *Handlers) HandleProjectState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlugRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	doc, err := ops.GetState(h.env, input.Slug)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(doc)
}

// HandleProjectTree handles the project_tree tool call.
func (h *Handlers) HandleProjectTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlugRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	tree, err := ops.GetTree(h.env, input.Slug)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"slug": input.Slug, "files": tree})
}

// HandleChangesetApply handles the changeset_apply tool call.
func (h *Handlers) HandleChangesetApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChangesetApplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ApplyChangeSet(h.env, ops.ApplyInput{
		Slug:      input.Slug,
		ChangeSet: input.ChangeSet,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleIdeaList handles the idea_list tool call.
func (h *Handlers) HandleIdeaList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ideas, err := ops.ListIdeas(h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"ideas": ideas})
}

// HandleRunList handles the run_list tool call.
func (h *Handlers) HandleRunList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}

	if input.RunID != "" {
		outcomes := []db.Outcome{}
		if h.runs != nil {
			if outcomes, err = h.runs.Outcomes(input.RunID); err != nil {
				return errorResult(err), nil
			}
		}
		return successResult(map[string]any{"run_id": input.RunID, "outcomes": outcomes})
	}

	runs := []db.RunSummary{}
	if h.runs != nil {
		if runs, err = h.runs.Runs(input.Limit); err != nil {
			return errorResult(err), nil
		}
	}
	return successResult(map[string]any{"runs": runs})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var fErr *errors.ForgeError
	if stderrors.As(err, &fErr) {
		msg := fErr.Message
		if err != error(fErr) {
			// keep the wrapper's context, e.g. "items[2]: ..."
			msg = err.Error()
		}
		if fErr.Code == errors.ErrInternal {
			msg = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": msg,
			"status":  fErr.Status,
		}
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
