package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("hevysync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("hevysync mirrors Hevy workouts and routines into relational tables. Preview the transformed rows, trigger a sync, and inspect the run history."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolPreviewWorkouts, Handler: h.previewWorkouts},
		server.ServerTool{Tool: toolPreviewRoutines, Handler: h.previewRoutines},
		server.ServerTool{Tool: toolRunSync, Handler: h.runSync},
		server.ServerTool{Tool: toolListSyncRuns, Handler: h.listSyncRuns},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentRuns, Handler: h.recentRuns},
		server.ServerResource{Resource: resTableSchema, Handler: h.tableSchema},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentRuns = mcp.NewResource(
	"hevysync://recent_runs",
	"Recent Sync Runs",
	mcp.WithResourceDescription("The last 10 sync runs with status, row counts and duration"),
	mcp.WithMIMEType("application/json"),
)

var resTableSchema = mcp.NewResource(
	"hevysync://table_schema",
	"Table Schema",
	mcp.WithResourceDescription("Columns and logical types of the workouts and routines tables"),
	mcp.WithMIMEType("application/json"),
)
