package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/ideaforge/internal/config"
	"github.com/hpungsan/ideaforge/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"project_list": {
		def:     projectListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectList },
	},
	"project_state": {
		def:     projectStateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectState },
	},
	"project_tree": {
		def:     projectTreeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectTree },
	},
	"changeset_apply": {
		def:     changesetApplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChangesetApply },
	},
	"idea_list": {
		def:     ideaListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdeaList },
	},
	"run_list": {
		def:     runListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunList },
	},
}

// AllToolNames returns every valid tool name in lexical order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the ideaforge tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
// runs may be nil, in which case run_list reports an empty ledger.
func NewServer(env *ops.Env, runs RunLister, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ideaforge",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env, runs)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, runs RunLister, cfg *config.Config, version string) error {
	s := NewServer(env, runs, cfg, version)
	return server.ServeStdio(s)
}
