package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/claude/hevysync/internal/config"
	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/syncer"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct{}

func (stubSource) FetchAllWorkouts(context.Context, int, int) ([]models.RawSession, error) {
	return nil, nil
}

func (stubSource) FetchAllRoutines(context.Context, int, int) ([]models.RawSession, error) {
	return []models.RawSession{{
		ID: "r-1", Title: "Legs",
		CreatedAt: "2024-01-01T10:00:00Z", UpdatedAt: "2024-01-01T10:00:00Z",
		Exercises: []models.RawExercise{{Title: "Squat (Barbell)", Sets: []models.RawSet{{Index: 0}}}},
	}}, nil
}

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "sync.db")
	return cfg
}

// TestOpenSQLiteAndSync verifies the sqlite backend serves tables, ledger and
// maintenance, and that the wired syncer writes through it.
func TestOpenSQLiteAndSync(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	migrated, err := Migrate(cfg)
	if err != nil || migrated {
		t.Fatalf("Migrate = %v, %v; sqlite should not migrate", migrated, err)
	}

	b, err := Open(ctx, cfg, discard())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Tables == nil || b.Ledger == nil || b.Columns == nil {
		t.Fatalf("backend = %+v, want all parts", b)
	}

	s := NewSyncer(cfg, stubSource{}, b, false, discard())
	stats, err := s.Run(ctx, syncer.Targets{Routines: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Routines.Result == nil || stats.Routines.Result.Inserted != 1 {
		t.Errorf("routines = %+v", stats.Routines)
	}

	runs, err := b.Ledger.ListRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != storage.RunSuccess {
		t.Errorf("runs = %+v", runs)
	}

	if err := b.Columns.DropColumn(ctx, cfg.Sync.RoutinesTable, "exercise_notes"); err != nil {
		t.Errorf("DropColumn: %v", err)
	}
}

// TestOpenRESTWithoutDatabase verifies the rest driver works without a
// database but has no ledger or maintenance access.
func TestOpenRESTWithoutDatabase(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Driver = config.DriverREST
	cfg.Store.REST.URL = "http://127.0.0.1:1"
	cfg.Store.REST.APIKey = "anon"

	if migrated, err := Migrate(cfg); err != nil || migrated {
		t.Fatalf("Migrate = %v, %v; nothing to migrate without a database", migrated, err)
	}

	b, err := Open(context.Background(), cfg, discard())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, ok := b.Tables.(*storage.RESTTable); !ok {
		t.Errorf("tables = %T, want *storage.RESTTable", b.Tables)
	}
	if b.Ledger != nil || b.Columns != nil {
		t.Errorf("backend = %+v, want no ledger or columns", b)
	}
}

func TestNewSyncerDryRun(t *testing.T) {
	cfg := config.Defaults()
	s := NewSyncer(cfg, stubSource{}, nil, true, discard())
	stats, err := s.Run(context.Background(), syncer.AllTargets)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.DryRun || stats.Routines.Rows != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
