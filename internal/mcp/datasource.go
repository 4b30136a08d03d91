package mcp

import (
	"context"
	"errors"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/syncer"
)

// DataSource abstracts the pipeline for MCP tools. Local (in-process) and
// HTTPClient (remote via the REST API) satisfy this interface.
type DataSource interface {
	PreviewWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error)
	PreviewRoutines(ctx context.Context, limit int) ([]models.RoutineRow, error)
	Run(ctx context.Context, targets syncer.Targets) (*syncer.Stats, error)
	ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error)
}

// RunLister reads the sync run ledger.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error)
}

// ErrNoLedger is returned by ListRuns when no ledger is configured.
var ErrNoLedger = errors.New("no run ledger configured")

// Local runs the pipeline in-process.
type Local struct {
	*syncer.Syncer
	Runs RunLister
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

// ListRuns reads the ledger, if any.
func (l Local) ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error) {
	if l.Runs == nil {
		return nil, ErrNoLedger
	}
	return l.Runs.ListRuns(ctx, limit)
}
