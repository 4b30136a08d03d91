package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/claude/hevysync/internal/hevy"
	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/transform"
)

type fakeSource struct {
	workouts    []models.RawSession
	routines    []models.RawSession
	workoutsErr error
	routinesErr error
	calls       []string
}

func (f *fakeSource) FetchAllWorkouts(context.Context, int, int) ([]models.RawSession, error) {
	f.calls = append(f.calls, "workouts")
	return f.workouts, f.workoutsErr
}

func (f *fakeSource) FetchAllRoutines(context.Context, int, int) ([]models.RawSession, error) {
	f.calls = append(f.calls, "routines")
	return f.routines, f.routinesErr
}

type failingLog struct{ finished []storage.SyncRun }

func (f *failingLog) StartRun(context.Context, storage.SyncRun) error {
	return errors.New("ledger down")
}

func (f *failingLog) FinishRun(_ context.Context, run storage.SyncRun) error {
	f.finished = append(f.finished, run)
	return errors.New("ledger down")
}

func intPtr(i int) *int { return &i }

func testSource() *fakeSource {
	return &fakeSource{
		workouts: []models.RawSession{{
			ID: "w-1", Title: "Push Day A",
			StartTime: "2024-08-14T12:00:00Z", EndTime: "2024-08-14T13:00:00Z",
			Exercises: []models.RawExercise{{
				Title: "Bench Press (Barbell)",
				Sets:  []models.RawSet{{Index: 0, Reps: intPtr(5)}, {Index: 1, Reps: intPtr(5)}},
			}},
		}},
		routines: []models.RawSession{{
			ID: "r-1", Title: "Push Day A",
			CreatedAt: "2024-01-01T10:00:00Z", UpdatedAt: "2024-02-01T10:00:00Z",
			Exercises: []models.RawExercise{{
				Title: "Chest Press (Machine)",
				Sets:  []models.RawSet{{Index: 0}, {Index: 1}},
			}},
		}},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocal(t *testing.T) *storage.LocalDB {
	t.Helper()
	db, err := storage.OpenLocal(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSyncer(src Source, db *storage.LocalDB, opts Options) *Syncer {
	rec := reconcile.New(db, reconcile.Options{ChunkSize: 10, PageSize: 10}, discard())
	return New(src, rec, db, opts, discard())
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		in      string
		want    Targets
		wantErr bool
	}{
		{in: "", want: AllTargets},
		{in: "all", want: AllTargets},
		{in: "Workouts", want: Targets{Workouts: true}},
		{in: "routines", want: Targets{Routines: true}},
		{in: "sets", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTargets(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTargets(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTargets(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
		}
	}
}

// TestRunSyncsBothTables runs the pipeline twice against a local store and
// checks the ledger and the idempotence of the workouts table.
func TestRunSyncsBothTables(t *testing.T) {
	db := newLocal(t)
	src := testSource()
	s := newTestSyncer(src, db, Options{})
	ctx := context.Background()

	stats, err := s.Run(ctx, AllTargets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RunID == "" {
		t.Error("run id should be set")
	}
	if stats.Workouts.Rows != 2 || stats.Workouts.Result.Inserted != 2 {
		t.Errorf("workouts = %+v / %+v", stats.Workouts, stats.Workouts.Result)
	}
	if stats.Routines.Rows != 1 || stats.Routines.Result.Policy != reconcile.PolicyOverwrite {
		t.Errorf("routines = %+v / %+v", stats.Routines, stats.Routines.Result)
	}
	if len(src.calls) != 2 || src.calls[0] != "workouts" {
		t.Errorf("fetch order = %v, want workouts first", src.calls)
	}

	stats, err = s.Run(ctx, AllTargets)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Workouts.Result.NoOp {
		t.Errorf("second workouts run = %+v, want no-op", stats.Workouts.Result)
	}

	page, err := db.Select(ctx, "routines", []string{"exercise_title", "equipment_type", "sets", "workout_plan", "exercise_notes"}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 {
		t.Fatalf("routine rows = %d, want 1", len(page))
	}
	r := page[0]
	if r["exercise_title"] != "Chest Press" || r["equipment_type"] != "Machine" || r["sets"] != int64(2) || r["workout_plan"] != "Push" {
		t.Errorf("routine row = %v", r)
	}
	if r["exercise_notes"] != nil {
		t.Errorf("exercise_notes = %v, want NULL", r["exercise_notes"])
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	for _, run := range runs {
		if run.Status != storage.RunSuccess || run.FinishedAt == nil || run.Target != "all" {
			t.Errorf("run = %+v", run)
		}
	}
	if runs[1].RowsInserted != 3 || runs[0].RowsInserted != 1 {
		t.Errorf("rows inserted = %d then %d, want 3 then 1", runs[1].RowsInserted, runs[0].RowsInserted)
	}
}

// TestRunSourceUnavailable verifies a failed fetch aborts before any write
// and is recorded as an error run.
func TestRunSourceUnavailable(t *testing.T) {
	db := newLocal(t)
	src := testSource()
	src.workoutsErr = &hevy.StatusError{StatusCode: 503, URL: "/v1/workouts"}
	s := newTestSyncer(src, db, Options{})
	ctx := context.Background()

	_, err := s.Run(ctx, AllTargets)
	if !errors.Is(err, hevy.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want ErrSourceUnavailable", err)
	}
	if len(src.calls) != 1 {
		t.Errorf("calls = %v, routines should not be fetched after a failure", src.calls)
	}
	if ok, _ := db.Exists(ctx, "workouts"); ok {
		t.Error("workouts table should not be created")
	}

	runs, _ := db.ListRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Status != storage.RunError || runs[0].ErrorMessage == nil {
		t.Errorf("ledger = %+v", runs)
	}
}

// TestRunMalformedTimestamp verifies a structural failure aborts the run.
func TestRunMalformedTimestamp(t *testing.T) {
	db := newLocal(t)
	src := testSource()
	src.routines[0].UpdatedAt = "soon"
	s := newTestSyncer(src, db, Options{})

	stats, err := s.Run(context.Background(), Targets{Routines: true})
	if !errors.Is(err, transform.ErrMalformedTimestamp) {
		t.Fatalf("error = %v, want ErrMalformedTimestamp", err)
	}
	if stats.Routines.Result != nil {
		t.Error("no reconciliation should run")
	}
}

// TestRunMalformedRoutineWritesNothing verifies a bad routine aborts the run
// before the already-transformed workouts are published.
func TestRunMalformedRoutineWritesNothing(t *testing.T) {
	db := newLocal(t)
	src := testSource()
	src.routines[0].UpdatedAt = "soon"
	s := newTestSyncer(src, db, Options{})
	ctx := context.Background()

	stats, err := s.Run(ctx, AllTargets)
	if !errors.Is(err, transform.ErrMalformedTimestamp) {
		t.Fatalf("error = %v, want ErrMalformedTimestamp", err)
	}
	if stats.Workouts.Rows != 2 || stats.Workouts.Result != nil {
		t.Errorf("workouts = %+v, want transformed but not reconciled", stats.Workouts)
	}
	for _, table := range []string{"workouts", "routines"} {
		if ok, err := db.Exists(ctx, table); err != nil || ok {
			t.Errorf("%s table exists = %v (%v), want no table", table, ok, err)
		}
	}

	runs, _ := db.ListRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Status != storage.RunError || runs[0].RowsInserted != 0 {
		t.Errorf("ledger = %+v", runs)
	}
}

func TestRunDryRun(t *testing.T) {
	src := testSource()
	s := New(src, nil, nil, Options{DryRun: true}, discard())

	stats, err := s.Run(context.Background(), AllTargets)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.DryRun || stats.Workouts.Rows != 2 || stats.Routines.Rows != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Workouts.Result != nil {
		t.Error("dry run should not reconcile")
	}
}

func TestRunRequiresStore(t *testing.T) {
	s := New(testSource(), nil, nil, Options{}, discard())
	if _, err := s.Run(context.Background(), AllTargets); err == nil {
		t.Error("expected error without a store")
	}
	if _, err := s.Run(context.Background(), Targets{}); err == nil {
		t.Error("expected error without targets")
	}
}

// TestLedgerFailureIsNotFatal verifies ledger errors are logged, not returned.
func TestLedgerFailureIsNotFatal(t *testing.T) {
	db := newLocal(t)
	ledger := &failingLog{}
	rec := reconcile.New(db, reconcile.Options{}, discard())
	s := New(testSource(), rec, ledger, Options{}, discard())

	if _, err := s.Run(context.Background(), Targets{Workouts: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.finished) != 1 || ledger.finished[0].Status != storage.RunSuccess {
		t.Errorf("finished = %+v", ledger.finished)
	}
}

func TestPreviewLimit(t *testing.T) {
	s := New(testSource(), nil, nil, Options{}, discard())
	rows, err := s.PreviewWorkouts(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ExerciseTitle != "Bench Press" {
		t.Errorf("rows = %+v", rows)
	}
	routines, err := s.PreviewRoutines(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(routines) != 1 || routines[0].Sets != 2 {
		t.Errorf("routines = %+v", routines)
	}
}
