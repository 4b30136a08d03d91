package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/hevysync/internal/syncer"
)

const (
	defaultPreviewLimit = 20
	defaultRunsLimit    = 20
)

// limitArgs is the shared shape of the tools that take a row limit.
type limitArgs struct {
	Limit *int `json:"limit"`
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

func limitFrom(req mcp.CallToolRequest, def int) (int, error) {
	args, err := decode[limitArgs](req)
	if err != nil {
		return 0, err
	}
	if args.Limit == nil {
		return def, nil
	}
	if *args.Limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", *args.Limit)
	}
	return *args.Limit, nil
}

// --- Tool definitions ---

var toolPreviewWorkouts = mcp.NewTool("preview_workouts",
	mcp.WithDescription("Fetch workouts from Hevy and return the flattened per-set rows that a sync would write, without touching the store."),
	mcp.WithNumber("limit", mcp.Description("Maximum rows to return. Defaults to 20.")),
)

var toolPreviewRoutines = mcp.NewTool("preview_routines",
	mcp.WithDescription("Fetch routines from Hevy and return the aggregated per-exercise rows (with set counts) that a sync would write, without touching the store."),
	mcp.WithNumber("limit", mcp.Description("Maximum rows to return. Defaults to 20.")),
)

var toolRunSync = mcp.NewTool("run_sync",
	mcp.WithDescription("Run a sync: workouts are appended by row_id, routines are overwritten. Returns per-table statistics."),
	mcp.WithString("target", mcp.Description("Which table to sync. Defaults to both."), mcp.Enum("all", "workouts", "routines")),
)

var toolListSyncRuns = mcp.NewTool("list_sync_runs",
	mcp.WithDescription("List recent sync runs, newest first, with status, counts and any error message."),
	mcp.WithNumber("limit", mcp.Description("Maximum runs to return. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) previewWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := limitFrom(req, defaultPreviewLimit)
	if err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	rows, err := h.ds.PreviewWorkouts(ctx, limit)
	if err != nil {
		h.log.Error("mcp preview_workouts", "error", err)
		return mcp.NewToolResultError("preview failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}

func (h *handlers) previewRoutines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := limitFrom(req, defaultPreviewLimit)
	if err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	rows, err := h.ds.PreviewRoutines(ctx, limit)
	if err != nil {
		h.log.Error("mcp preview_routines", "error", err)
		return mcp.NewToolResultError("preview failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}

func (h *handlers) runSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets, err := syncer.ParseTargets(req.GetString("target", "all"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// The run outlives a cancelled tool call so an overwrite is never cut short.
	stats, err := h.ds.Run(context.WithoutCancel(ctx), targets)
	if err != nil {
		h.log.Error("mcp run_sync", "target", targets.String(), "error", err)
		return mcp.NewToolResultError("sync failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func (h *handlers) listSyncRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := limitFrom(req, defaultRunsLimit)
	if err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	runs, err := h.ds.ListRuns(ctx, limit)
	if err != nil {
		h.log.Error("mcp list_sync_runs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(runs)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
