package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"

	_ "modernc.org/sqlite"
)

// ledgerTimeLayout is fixed-width so that text ordering matches time ordering.
const ledgerTimeLayout = "2006-01-02T15:04:05.000000000Z"

// LocalDB is a table store and sync ledger backed by a local SQLite file.
// It is used for offline runs and for exercising the sync end to end
// without a database server.
type LocalDB struct {
	db *sql.DB
}

var _ reconcile.Store = (*LocalDB)(nil)

// OpenLocal opens (or creates) the SQLite database at path.
func OpenLocal(path string) (*LocalDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sync_runs (
		id               TEXT PRIMARY KEY,
		started_at       TEXT NOT NULL,
		finished_at      TEXT,
		target           TEXT NOT NULL,
		dry_run          INTEGER NOT NULL DEFAULT 0,
		status           TEXT NOT NULL,
		sessions_fetched INTEGER NOT NULL DEFAULT 0,
		rows_produced    INTEGER NOT NULL DEFAULT 0,
		rows_inserted    INTEGER NOT NULL DEFAULT 0,
		duration_ms      INTEGER,
		error_message    TEXT
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sync_runs table: %w", err)
	}

	return &LocalDB{db: db}, nil
}

// Close closes the database.
func (l *LocalDB) Close() error {
	return l.db.Close()
}

// Exists reports whether table exists.
func (l *LocalDB) Exists(ctx context.Context, table string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return count > 0, nil
}

// Create creates table with the given columns. Timestamps are stored as text.
func (l *LocalDB) Create(ctx context.Context, table string, columns []models.Column) error {
	query, err := sqliteDialect.createTable(table, columns)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// Select returns one window of rows restricted to columns.
func (l *LocalDB) Select(ctx context.Context, table string, columns []string, offset, limit int) ([]map[string]any, error) {
	query, err := sqliteDialect.selectPage(table, columns, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", table, err)
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(map[string]any, len(columns))
		for i, c := range columns {
			rec[c] = values[i]
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Delete removes the rows matching f.
func (l *LocalDB) Delete(ctx context.Context, table string, f reconcile.Filter) error {
	query, args, err := sqliteDialect.deleteWhere(table, f)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// Insert batch-inserts one chunk of rows.
func (l *LocalDB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query, args, err := sqliteDialect.insertBatch(table, columns, rows)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// DropColumn removes a column from table.
func (l *LocalDB) DropColumn(ctx context.Context, table, column string) error {
	query, err := sqliteDialect.dropColumn(table, column)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("dropping %s.%s: %w", table, column, err)
	}
	return nil
}

// StartRun records a new run.
func (l *LocalDB) StartRun(ctx context.Context, run SyncRun) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at, target, dry_run, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(ledgerTimeLayout), run.Target, run.DryRun, run.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// FinishRun updates a run with its outcome.
func (l *LocalDB) FinishRun(ctx context.Context, run SyncRun) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(ledgerTimeLayout)
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE sync_runs SET
		 finished_at = ?, status = ?, sessions_fetched = ?, rows_produced = ?,
		 rows_inserted = ?, duration_ms = ?, error_message = ?
		 WHERE id = ?`,
		finished, run.Status, run.SessionsFetched, run.RowsProduced,
		run.RowsInserted, run.DurationMs, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sync run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (l *LocalDB) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, target, dry_run, status, sessions_fetched,
		 rows_produced, rows_inserted, duration_ms, error_message
		 FROM sync_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var result []SyncRun
	for rows.Next() {
		var (
			r        SyncRun
			started  string
			finished sql.NullString
			duration sql.NullInt64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Target, &r.DryRun, &r.Status,
			&r.SessionsFetched, &r.RowsProduced, &r.RowsInserted, &duration, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		if r.StartedAt, err = time.Parse(ledgerTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %s: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(ledgerTimeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parsing finished_at of run %s: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		if duration.Valid {
			d := int(duration.Int64)
			r.DurationMs = &d
		}
		if errMsg.Valid {
			r.ErrorMessage = &errMsg.String
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
