// Package app wires configuration into stores, the Hevy client and the
// syncer for the hevysync binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/hevysync/internal/config"
	"github.com/claude/hevysync/internal/hevy"
	"github.com/claude/hevysync/internal/reconcile"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/syncer"
	"github.com/claude/hevysync/migrations"
)

// Ledger records and lists sync runs.
type Ledger interface {
	syncer.RunLog
	ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error)
}

// ColumnDropper removes a column from a synced table.
type ColumnDropper interface {
	DropColumn(ctx context.Context, table, column string) error
}

// ErrNoRelationalStore is returned when a maintenance operation needs direct
// database access that the configured store does not provide.
var ErrNoRelationalStore = errors.New("no relational database configured")

// Backend is the opened store for the configured driver. Ledger and Columns
// are nil for the rest driver without a database URL.
type Backend struct {
	Tables  reconcile.Store
	Ledger  Ledger
	Columns ColumnDropper
	close   func()
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Migrate applies the ledger migrations when the config names a PostgreSQL
// database. It reports whether anything was migrated.
func Migrate(cfg *config.Config) (bool, error) {
	dsn := cfg.Store.DSN()
	if cfg.Store.Driver == config.DriverSQLite || dsn == "" {
		return false, nil
	}
	if err := storage.RunMigrations(dsn, migrations.FS); err != nil {
		return false, err
	}
	return true, nil
}

// Open connects to the configured store. PostgreSQL ledgers must already be
// migrated.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenLocal(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", "path", cfg.Store.SQLitePath)
		return &Backend{Tables: db, Ledger: db, Columns: db, close: func() { db.Close() }}, nil

	case config.DriverPostgres:
		db, err := storage.New(ctx, cfg.Store.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected")
		return &Backend{Tables: db, Ledger: db, Columns: db, close: db.Close}, nil

	case config.DriverREST:
		b := &Backend{}
		var schema storage.Schema
		if dsn := cfg.Store.DSN(); dsn != "" {
			db, err := storage.New(ctx, dsn)
			if err != nil {
				return nil, fmt.Errorf("connecting database: %w", err)
			}
			schema = db
			b.Ledger, b.Columns, b.close = db, db, db.Close
			log.Info("database connected for schema and ledger")
		} else {
			log.Warn("no database url: tables must already exist and runs are not recorded")
		}
		b.Tables = storage.NewRESTTable(cfg.Store.REST.URL, cfg.Store.REST.APIKey, schema)
		return b, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewSource returns a Hevy client for the configured account.
func NewSource(cfg *config.Config) *hevy.Client {
	return hevy.NewClient(cfg.Hevy.BaseURL, cfg.Hevy.APIKey)
}

// NewSyncer builds the pipeline over source and b. b may be nil for a dry run.
func NewSyncer(cfg *config.Config, source syncer.Source, b *Backend, dryRun bool, log *slog.Logger) *syncer.Syncer {
	opts := syncer.Options{
		WorkoutsTable: cfg.Sync.WorkoutsTable,
		RoutinesTable: cfg.Sync.RoutinesTable,
		PageSize:      cfg.Hevy.PageSize,
		MaxPages:      cfg.Hevy.MaxPages,
		DryRun:        dryRun,
	}
	if b == nil {
		return syncer.New(source, nil, nil, opts, log)
	}

	rec := reconcile.New(b.Tables, reconcile.Options{
		ChunkSize: cfg.Sync.ChunkSize,
		PageSize:  cfg.Sync.PageSize,
		PageDelay: cfg.Sync.PageDelay,
	}, log)
	var runs syncer.RunLog
	if b.Ledger != nil {
		runs = b.Ledger
	}
	return syncer.New(source, rec, runs, opts, log)
}
