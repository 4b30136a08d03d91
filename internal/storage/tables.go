package storage

import (
	"context"
	"fmt"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"
)

var _ reconcile.Store = (*DB)(nil)

// Exists reports whether table exists in the current schema.
func (db *DB) Exists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		 SELECT 1 FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = $1)`,
		table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return exists, nil
}

// Create creates table with the given columns.
func (db *DB) Create(ctx context.Context, table string, columns []models.Column) error {
	query, err := postgresDialect.createTable(table, columns)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// Select returns one window of rows restricted to columns.
func (db *DB) Select(ctx context.Context, table string, columns []string, offset, limit int) ([]map[string]any, error) {
	query, err := postgresDialect.selectPage(table, columns, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", table, err)
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
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
func (db *DB) Delete(ctx context.Context, table string, f reconcile.Filter) error {
	query, args, err := postgresDialect.deleteWhere(table, f)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// Insert batch-inserts one chunk of rows.
func (db *DB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query, args, err := postgresDialect.insertBatch(table, columns, rows)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// DropColumn removes a column from table.
func (db *DB) DropColumn(ctx context.Context, table, column string) error {
	query, err := postgresDialect.dropColumn(table, column)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("dropping %s.%s: %w", table, column, err)
	}
	return nil
}
