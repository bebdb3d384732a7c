package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/itinvault/itinvault/internal/cached"
	"github.com/itinvault/itinvault/internal/config"
	"github.com/itinvault/itinvault/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"scenario_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"scenario_save_version": {
		def:     saveVersionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveVersion },
	},
	"scenario_latest": {
		def:     latestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLatest },
	},
	"scenario_get_version": {
		def:     getVersionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetVersion },
	},
	"scenario_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"scenario_revert": {
		def:     revertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRevert },
	},
	"scenario_name_version": {
		def:     nameVersionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNameVersion },
	},
	"scenario_delete_version": {
		def:     deleteVersionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleteVersion },
	},
	"scenario_prune": {
		def:     pruneToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrune },
	},
	"scenario_rename": {
		def:     renameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRename },
	},
	"scenario_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"scenario_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"scenario_update_segment": {
		def:     updateSegmentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateSegment },
	},
	"scenario_summary_save": {
		def:     summarySaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummarySave },
	},
	"scenario_summary_get": {
		def:     summaryGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryGet },
	},
	"scenario_summary_delete": {
		def:     summaryDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryDelete },
	},
	"scenario_cache_stats": {
		def:     cacheStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheStats },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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

// NewServer creates a new MCP server with itinvault tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"itinvault",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(cached.New(store.New(db, cfg), cfg), cfg)

	disabled := make(map[string]bool)
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
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
