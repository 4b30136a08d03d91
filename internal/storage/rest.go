package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"
)

// maxErrorBody caps how much of a rejected response is kept in a StatusError.
const maxErrorBody = 500

// ErrSchemaUnsupported is returned when a REST table store has no relational
// adapter to create tables with.
var ErrSchemaUnsupported = errors.New("schema operations need a database connection")

// StatusError is a non-2xx answer from the REST table store.
type StatusError struct {
	Op         string
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Table, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Op, e.Table, e.StatusCode)
}

// Schema creates tables on behalf of a REST store. *DB satisfies it.
type Schema interface {
	Exists(ctx context.Context, table string) (bool, error)
	Create(ctx context.Context, table string, columns []models.Column) error
}

// RESTTable is a table store speaking the PostgREST dialect (as exposed by
// Supabase under /rest/v1). Row operations go over HTTP; creating tables
// needs a Schema since the REST surface cannot run DDL.
type RESTTable struct {
	baseURL    string
	apiKey     string
	schema     Schema
	httpClient *http.Client
}

var _ reconcile.Store = (*RESTTable)(nil)

// NewRESTTable creates a REST table store. schema may be nil, in which case
// Exists probes the endpoint and Create fails with ErrSchemaUnsupported.
func NewRESTTable(baseURL, apiKey string, schema Schema) *RESTTable {
	return &RESTTable{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		schema:     schema,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *RESTTable) tableURL(table string, params url.Values) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("invalid identifier %q", table)
	}
	u := s.baseURL + "/rest/v1/" + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u, nil
}

func (s *RESTTable) do(ctx context.Context, op, table, method, u string, body io.Reader, header http.Header) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: create request: %w", op, table, err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", op, table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s %s: read body: %w", op, table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b := string(data)
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody] + "..."
		}
		return nil, resp.StatusCode, &StatusError{Op: op, Table: table, StatusCode: resp.StatusCode, Body: b}
	}
	return data, resp.StatusCode, nil
}

// Exists asks the schema adapter, or probes the table endpoint when there is none.
func (s *RESTTable) Exists(ctx context.Context, table string) (bool, error) {
	if s.schema != nil {
		return s.schema.Exists(ctx, table)
	}
	u, err := s.tableURL(table, url.Values{"select": {"*"}, "limit": {"0"}})
	if err != nil {
		return false, err
	}
	_, status, err := s.do(ctx, "probe", table, http.MethodGet, u, nil, nil)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create delegates to the schema adapter.
func (s *RESTTable) Create(ctx context.Context, table string, columns []models.Column) error {
	if s.schema == nil {
		return fmt.Errorf("creating table %s: %w", table, ErrSchemaUnsupported)
	}
	return s.schema.Create(ctx, table, columns)
}

// Select reads one window of rows using a Range header.
func (s *RESTTable) Select(ctx context.Context, table string, columns []string, offset, limit int) ([]map[string]any, error) {
	order := make([]string, len(columns))
	for i, c := range columns {
		order[i] = c + ".asc"
	}
	u, err := s.tableURL(table, url.Values{
		"select": {strings.Join(columns, ",")},
		"order":  {strings.Join(order, ",")},
	})
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Range-Unit", "items")
	header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+limit-1))

	data, status, err := s.do(ctx, "select", table, http.MethodGet, u, nil, header)
	if err != nil {
		// PostgREST answers 416 when the range starts past the last row.
		if status == http.StatusRequestedRangeNotSatisfiable {
			return nil, nil
		}
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("select %s: decode: %w", table, err)
	}
	return rows, nil
}

// Delete removes the rows matching f.
func (s *RESTTable) Delete(ctx context.Context, table string, f reconcile.Filter) error {
	if f.Op != reconcile.FilterNotEqual {
		return fmt.Errorf("delete %s: unsupported filter op %q", table, f.Op)
	}
	u, err := s.tableURL(table, url.Values{f.Column: {"neq." + fmt.Sprint(f.Value)}})
	if err != nil {
		return err
	}
	_, _, err = s.do(ctx, "delete", table, http.MethodDelete, u, nil, nil)
	return err
}

// Insert posts one chunk as a JSON array of objects.
func (s *RESTTable) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		rec := make(map[string]any, len(columns))
		for j, c := range columns {
			rec[c] = row[j]
		}
		records[i] = rec
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("insert %s: marshal: %w", table, err)
	}

	u, err := s.tableURL(table, nil)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Prefer", "return=minimal")
	_, _, err = s.do(ctx, "insert", table, http.MethodPost, u, bytes.NewReader(body), header)
	return err
}
