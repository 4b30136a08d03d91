// Package hevy reads workouts and routine templates from the Hevy public API.
package hevy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/hevysync/internal/models"
)

// DefaultBaseURL is the Hevy public API host.
const DefaultBaseURL = "https://api.hevyapp.com"

// DefaultPageSize is the largest page the API accepts for workouts and routines.
const DefaultPageSize = 10

// ErrSourceUnavailable is wrapped by every failed fetch. A failed fetch
// abandons the resource for the whole run.
var ErrSourceUnavailable = errors.New("source unavailable")

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 500

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("hevy: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("hevy: %s returned %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrSourceUnavailable
}

// Params selects one page.
type Params struct {
	Page     int
	PageSize int
}

func (p Params) values() url.Values {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	return v
}

// Client calls the Hevy API with an account API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("hevy: create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hevy: %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hevy: read body: %w: %w", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		b := string(body)
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody] + "..."
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: b, URL: path}
	}
	return body, nil
}

// FetchWorkouts returns one page of completed workouts.
func (c *Client) FetchWorkouts(ctx context.Context, p Params) (*models.WorkoutsPage, error) {
	body, err := c.get(ctx, "/v1/workouts", p.values())
	if err != nil {
		return nil, err
	}
	var page models.WorkoutsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("hevy: decode workouts: %w", err)
	}
	return &page, nil
}

// FetchRoutines returns one page of routine templates.
func (c *Client) FetchRoutines(ctx context.Context, p Params) (*models.RoutinesPage, error) {
	body, err := c.get(ctx, "/v1/routines", p.values())
	if err != nil {
		return nil, err
	}
	var page models.RoutinesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("hevy: decode routines: %w", err)
	}
	return &page, nil
}

// FetchAllWorkouts walks pages from 1 until page_count, an empty page or
// maxPages (0 means no limit).
func (c *Client) FetchAllWorkouts(ctx context.Context, pageSize, maxPages int) ([]models.RawSession, error) {
	return fetchAll(ctx, pageSize, maxPages, func(ctx context.Context, p Params) ([]models.RawSession, int, error) {
		page, err := c.FetchWorkouts(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		return page.Workouts, page.PageCount, nil
	})
}

// FetchAllRoutines walks routine pages like FetchAllWorkouts.
func (c *Client) FetchAllRoutines(ctx context.Context, pageSize, maxPages int) ([]models.RawSession, error) {
	return fetchAll(ctx, pageSize, maxPages, func(ctx context.Context, p Params) ([]models.RawSession, int, error) {
		page, err := c.FetchRoutines(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		return page.Routines, page.PageCount, nil
	})
}

type pageFunc func(ctx context.Context, p Params) (sessions []models.RawSession, pageCount int, err error)

func fetchAll(ctx context.Context, pageSize, maxPages int, fetch pageFunc) ([]models.RawSession, error) {
	var all []models.RawSession
	for page := 1; ; page++ {
		sessions, pageCount, err := fetch(ctx, Params{Page: page, PageSize: pageSize})
		if err != nil {
			// The API answers 404 for a page past the end.
			var se *StatusError
			if page > 1 && errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
				return all, nil
			}
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		all = append(all, sessions...)

		if len(sessions) == 0 || page >= pageCount || (maxPages > 0 && page >= maxPages) {
			return all, nil
		}
	}
}
