package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/syncer"
)

// HTTPClient implements DataSource by calling the hevysync REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the pipeline and its store live on the server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
// A sync runs synchronously on the server, so the timeout is generous.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func limitParams(limit int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func (c *HTTPClient) PreviewWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error) {
	var rows []models.WorkoutRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/preview/workouts", limitParams(limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) PreviewRoutines(ctx context.Context, limit int) ([]models.RoutineRow, error) {
	var rows []models.RoutineRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/preview/routines", limitParams(limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) Run(ctx context.Context, targets syncer.Targets) (*syncer.Stats, error) {
	params := url.Values{}
	params.Set("target", targets.String())

	var stats syncer.Stats
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", params, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error) {
	var runs []storage.SyncRun
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs", limitParams(limit), &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
