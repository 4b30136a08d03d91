package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/hevysync/internal/models"
)

func (h *handlers) recentRuns(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := h.ds.ListRuns(ctx, 10)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, runs)
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func columnInfos(cols []models.Column) []columnInfo {
	out := make([]columnInfo, len(cols))
	for i, c := range cols {
		out[i] = columnInfo{Name: c.Name, Type: string(c.Type)}
	}
	return out
}

func (h *handlers) tableSchema(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	schema := map[string]any{
		"workouts": map[string]any{
			"policy":  "append_unique",
			"key":     "row_id",
			"columns": columnInfos(models.WorkoutColumns),
		},
		"routines": map[string]any{
			"policy":  "overwrite",
			"columns": columnInfos(models.RoutineColumns),
		},
	}
	return jsonContents(req.Params.URI, schema)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
