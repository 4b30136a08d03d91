// Package syncer runs the fetch, transform and reconcile pipeline for the
// workouts and routines tables.
package syncer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/transform"
)

// Source supplies raw sessions.
type Source interface {
	FetchAllWorkouts(ctx context.Context, pageSize, maxPages int) ([]models.RawSession, error)
	FetchAllRoutines(ctx context.Context, pageSize, maxPages int) ([]models.RawSession, error)
}

// RunLog records sync runs in the ledger.
type RunLog interface {
	StartRun(ctx context.Context, run storage.SyncRun) error
	FinishRun(ctx context.Context, run storage.SyncRun) error
}

// Targets selects which tables a run touches.
type Targets struct {
	Workouts bool
	Routines bool
}

// AllTargets syncs both tables.
var AllTargets = Targets{Workouts: true, Routines: true}

// ParseTargets accepts "", "all", "workouts" or "routines".
func ParseTargets(s string) (Targets, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllTargets, nil
	case "workouts":
		return Targets{Workouts: true}, nil
	case "routines":
		return Targets{Routines: true}, nil
	default:
		return Targets{}, fmt.Errorf("unknown target %q (want workouts, routines or all)", s)
	}
}

func (t Targets) String() string {
	switch {
	case t.Workouts && t.Routines:
		return "all"
	case t.Workouts:
		return "workouts"
	case t.Routines:
		return "routines"
	default:
		return "none"
	}
}

// Options configures a Syncer.
type Options struct {
	WorkoutsTable string
	RoutinesTable string
	PageSize      int
	MaxPages      int
	DryRun        bool
}

// TableStats is the outcome for one table.
type TableStats struct {
	Table    string            `json:"table"`
	Sessions int               `json:"sessions"`
	Rows     int               `json:"rows"`
	Result   *reconcile.Result `json:"result,omitempty"`
}

// Stats tracks a run's progress.
type Stats struct {
	RunID    string        `json:"run_id"`
	DryRun   bool          `json:"dry_run"`
	Workouts *TableStats   `json:"workouts,omitempty"`
	Routines *TableStats   `json:"routines,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (s *Stats) sessions() int {
	n := 0
	for _, ts := range []*TableStats{s.Workouts, s.Routines} {
		if ts != nil {
			n += ts.Sessions
		}
	}
	return n
}

func (s *Stats) rows() (produced, inserted int) {
	for _, ts := range []*TableStats{s.Workouts, s.Routines} {
		if ts == nil {
			continue
		}
		produced += ts.Rows
		if ts.Result != nil {
			inserted += ts.Result.Inserted
		}
	}
	return produced, inserted
}

// Syncer runs the pipeline. Runs are sequential; callers must not start two
// runs against the same tables at once.
type Syncer struct {
	source Source
	rec    *reconcile.Reconciler
	runs   RunLog
	opts   Options
	log    *slog.Logger
}

// New creates a Syncer. rec may be nil for dry runs and runs may be nil to
// skip the ledger.
func New(source Source, rec *reconcile.Reconciler, runs RunLog, opts Options, log *slog.Logger) *Syncer {
	if opts.WorkoutsTable == "" {
		opts.WorkoutsTable = "workouts"
	}
	if opts.RoutinesTable == "" {
		opts.RoutinesTable = "routines"
	}
	return &Syncer{source: source, rec: rec, runs: runs, opts: opts, log: log}
}

// DryRun reports whether the syncer skips store writes.
func (s *Syncer) DryRun() bool {
	return s.opts.DryRun
}

func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Run syncs the selected tables: workouts by append-unique, routines by
// overwrite. Nothing is written unless every selected target transforms
// cleanly, and the first error aborts the run.
func (s *Syncer) Run(ctx context.Context, targets Targets) (*Stats, error) {
	if !targets.Workouts && !targets.Routines {
		return nil, errors.New("no sync target selected")
	}
	if s.rec == nil && !s.opts.DryRun {
		return nil, errors.New("no store configured")
	}

	started := time.Now()
	stats := &Stats{RunID: newRunID(), DryRun: s.opts.DryRun}
	run := storage.SyncRun{
		ID:        stats.RunID,
		StartedAt: started.UTC(),
		Target:    targets.String(),
		DryRun:    s.opts.DryRun,
		Status:    storage.RunRunning,
	}
	s.startRun(ctx, run)
	s.log.Info("sync started", "run_id", run.ID, "target", run.Target, "dry_run", run.DryRun)

	err := s.run(ctx, targets, stats)

	stats.Duration = time.Since(started)
	s.finishRun(ctx, run, stats, err)
	if err != nil {
		s.log.Error("sync failed", "run_id", run.ID, "error", err)
		return stats, err
	}
	s.log.Info("sync finished", "run_id", run.ID, "duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// run transforms every selected target before publishing any of them, so a
// malformed session leaves the store untouched.
func (s *Syncer) run(ctx context.Context, targets Targets, stats *Stats) error {
	var workouts, routines models.RowSet

	if targets.Workouts {
		stats.Workouts = &TableStats{Table: s.opts.WorkoutsTable}
		rows, sessions, err := s.workoutRows(ctx)
		stats.Workouts.Sessions = sessions
		if err != nil {
			return fmt.Errorf("syncing workouts: %w", err)
		}
		stats.Workouts.Rows = len(rows)
		workouts = models.WorkoutRowSet(rows)
		s.log.Info("workouts transformed", "sessions", sessions, "rows", len(rows))
	}
	if targets.Routines {
		stats.Routines = &TableStats{Table: s.opts.RoutinesTable}
		rows, sessions, err := s.routineRows(ctx)
		stats.Routines.Sessions = sessions
		if err != nil {
			return fmt.Errorf("syncing routines: %w", err)
		}
		stats.Routines.Rows = len(rows)
		routines = models.RoutineRowSet(rows)
		s.log.Info("routines transformed", "sessions", sessions, "rows", len(rows))
	}

	if s.opts.DryRun {
		return nil
	}

	if targets.Workouts {
		res, err := s.rec.AppendUnique(ctx, stats.Workouts.Table, workouts)
		stats.Workouts.Result = res
		if err != nil {
			return fmt.Errorf("syncing workouts: %w", err)
		}
	}
	if targets.Routines {
		res, err := s.rec.Overwrite(ctx, stats.Routines.Table, routines)
		stats.Routines.Result = res
		if err != nil {
			return fmt.Errorf("syncing routines: %w", err)
		}
	}
	return nil
}

func (s *Syncer) workoutRows(ctx context.Context) ([]models.WorkoutRow, int, error) {
	sessions, err := s.source.FetchAllWorkouts(ctx, s.opts.PageSize, s.opts.MaxPages)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching: %w", err)
	}
	rows, err := transform.ProcessWorkouts(sessions)
	if err != nil {
		return nil, len(sessions), fmt.Errorf("transforming: %w", err)
	}
	return rows, len(sessions), nil
}

func (s *Syncer) routineRows(ctx context.Context) ([]models.RoutineRow, int, error) {
	sessions, err := s.source.FetchAllRoutines(ctx, s.opts.PageSize, s.opts.MaxPages)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching: %w", err)
	}
	rows, err := transform.ProcessRoutines(sessions)
	if err != nil {
		return nil, len(sessions), fmt.Errorf("transforming: %w", err)
	}
	return rows, len(sessions), nil
}

// PreviewWorkouts fetches and transforms workouts without writing.
// limit <= 0 returns every row.
func (s *Syncer) PreviewWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error) {
	rows, _, err := s.workoutRows(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(rows, limit), nil
}

// PreviewRoutines fetches and transforms routines without writing.
func (s *Syncer) PreviewRoutines(ctx context.Context, limit int) ([]models.RoutineRow, error) {
	rows, _, err := s.routineRows(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(rows, limit), nil
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// Ledger writes are best effort: a failing ledger never fails a sync.
func (s *Syncer) startRun(ctx context.Context, run storage.SyncRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.StartRun(ctx, run); err != nil {
		s.log.Warn("recording sync run", "run_id", run.ID, "error", err)
	}
}

func (s *Syncer) finishRun(ctx context.Context, run storage.SyncRun, stats *Stats, runErr error) {
	if s.runs == nil {
		return
	}
	finished := time.Now().UTC()
	ms := int(stats.Duration.Milliseconds())
	run.FinishedAt = &finished
	run.DurationMs = &ms
	run.SessionsFetched = stats.sessions()
	run.RowsProduced, run.RowsInserted = stats.rows()
	run.Status = storage.RunSuccess
	if runErr != nil {
		msg := runErr.Error()
		run.Status = storage.RunError
		run.ErrorMessage = &msg
	}
	// The run context may already be cancelled; the outcome is still recorded.
	if err := s.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.log.Warn("recording sync outcome", "run_id", run.ID, "error", err)
	}
}
