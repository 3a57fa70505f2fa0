package mcp

import "github.com/mark3labs/mcp-go/mcp"

var projectListToolDef = mcp.NewTool("project_list",
	mcp.WithDescription("List every project directory with its idea, iteration count, and state health (ok, missing, malformed)."),
)

var projectStateToolDef = mcp.NewTool("project_state",
	mcp.WithDescription("Return a project's state document: the originating idea and its iteration history."),
	mcp.WithString("slug",
		mcp.Required(),
		mcp.Description("Project slug (directory name under the projects root)"),
	),
)

var projectTreeToolDef = mcp.NewTool("project_tree",
	mcp.WithDescription("List a project's source files (allowed extensions only) in lexical order."),
	mcp.WithString("slug",
		mcp.Required(),
		mcp.Description("Project slug"),
	),
)

var changesetApplyToolDef = mcp.NewTool("changeset_apply",
	mcp.WithDescription("Apply a change-set to a project and record it as an iteration. "+
		"Entries that escape the project, target reserved files, or use a disallowed extension are skipped and reported."),
	mcp.WithString("slug",
		mcp.Required(),
		mcp.Description("Project slug"),
	),
	mcp.WithString("changeset",
		mcp.Required(),
		mcp.Description(`Change-set JSON: {"summary": "...", "changes": [{"path": "...", "action": "create|update|delete", "content": "..."}]}`),
	),
)

var ideaListToolDef = mcp.NewTool("idea_list",
	mcp.WithDescription("List accepted ideas in the order they were stored."),
)

var runListToolDef = mcp.NewTool("run_list",
	mcp.WithDescription("List recent pipeline runs from the ledger, or the per-project outcomes of one run."),
	mcp.WithString("run_id",
		mcp.Description("Return the outcomes of this run instead of the run list"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum runs to return (default: 20)"),
	),
)
