package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/claude/hevysync/internal/models"
)

var errInjected = errors.New("injected failure")

type memTable struct {
	columns []models.Column
	rows    []map[string]any
}

// memStore is an in-memory Store that records the calls it receives.
type memStore struct {
	tables map[string]*memTable

	creates    int
	deletes    int
	selects    []int // offsets requested
	chunkSizes []int

	failOn    string // "exists", "create", "select", "delete" or "insert"
	failAfter int    // successful calls of failOn before it fails
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]*memTable)}
}

func (m *memStore) fail(op string) error {
	if m.failOn != op {
		return nil
	}
	if m.failAfter > 0 {
		m.failAfter--
		return nil
	}
	return errInjected
}

func (m *memStore) Exists(_ context.Context, table string) (bool, error) {
	if err := m.fail("exists"); err != nil {
		return false, err
	}
	_, ok := m.tables[table]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, table string, columns []models.Column) error {
	if err := m.fail("create"); err != nil {
		return err
	}
	if _, ok := m.tables[table]; ok {
		return fmt.Errorf("table %s already exists", table)
	}
	m.creates++
	m.tables[table] = &memTable{columns: columns}
	return nil
}

func (m *memStore) Select(_ context.Context, table string, columns []string, offset, limit int) ([]map[string]any, error) {
	if err := m.fail("select"); err != nil {
		return nil, err
	}
	m.selects = append(m.selects, offset)
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("no table %s", table)
	}
	if offset >= len(t.rows) {
		return nil, nil
	}
	end := min(offset+limit, len(t.rows))
	var out []map[string]any
	for _, r := range t.rows[offset:end] {
		rec := make(map[string]any, len(columns))
		for _, c := range columns {
			rec[c] = r[c]
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, table string, f Filter) error {
	if err := m.fail("delete"); err != nil {
		return err
	}
	m.deletes++
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("no table %s", table)
	}
	if f.Op != FilterNotEqual {
		return fmt.Errorf("unsupported op %s", f.Op)
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if r[f.Column] == f.Value {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

func (m *memStore) Insert(_ context.Context, table string, columns []string, rows [][]any) error {
	if err := m.fail("insert"); err != nil {
		return err
	}
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("no table %s", table)
	}
	m.chunkSizes = append(m.chunkSizes, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(columns))
		for i, c := range columns {
			rec[c] = row[i]
		}
		t.rows = append(t.rows, rec)
	}
	return nil
}

// column returns the sorted values of one column, for order-insensitive comparison.
func (m *memStore) column(table, col string) []string {
	t := m.tables[table]
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, fmt.Sprint(r[col]))
	}
	sort.Strings(out)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
