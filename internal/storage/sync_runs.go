package storage

import (
	"context"
	"fmt"
	"time"
)

// Sync run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// SyncRun is one entry of the sync ledger.
type SyncRun struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	Target          string     `json:"target"`
	DryRun          bool       `json:"dry_run"`
	Status          string     `json:"status"`
	SessionsFetched int        `json:"sessions_fetched"`
	RowsProduced    int        `json:"rows_produced"`
	RowsInserted    int        `json:"rows_inserted"`
	DurationMs      *int       `json:"duration_ms"`
	ErrorMessage    *string    `json:"error_message"`
}

// StartRun records a new run, normally with status "running".
func (db *DB) StartRun(ctx context.Context, run SyncRun) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sync_runs (id, started_at, target, dry_run, status)
		 VALUES ($1,$2,$3,$4,$5)`,
		run.ID, run.StartedAt, run.Target, run.DryRun, run.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// FinishRun updates a run with its outcome (typically "success" or "error").
func (db *DB) FinishRun(ctx context.Context, run SyncRun) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_runs SET
		 finished_at = $2, status = $3, sessions_fetched = $4, rows_produced = $5,
		 rows_inserted = $6, duration_ms = $7, error_message = $8
		 WHERE id = $1`,
		run.ID, run.FinishedAt, run.Status, run.SessionsFetched, run.RowsProduced,
		run.RowsInserted, run.DurationMs, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("updating sync run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, started_at, finished_at, target, dry_run, status, sessions_fetched,
		 rows_produced, rows_inserted, duration_ms, error_message
		 FROM sync_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var result []SyncRun
	for rows.Next() {
		var r SyncRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Target, &r.DryRun, &r.Status,
			&r.SessionsFetched, &r.RowsProduced, &r.RowsInserted, &r.DurationMs, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
