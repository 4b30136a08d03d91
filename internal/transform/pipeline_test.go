package transform

import (
	"errors"
	"testing"

	"github.com/claude/hevysync/internal/models"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func sampleWorkouts() []models.RawSession {
	return []models.RawSession{
		{
			ID:        "w-1",
			Title:     "Push Day A",
			StartTime: "2024-08-14T12:00:00.250+00:00",
			EndTime:   "2024-08-14T13:10:42+00:00",
			Exercises: []models.RawExercise{
				{
					Index: 0,
					Title: "Bench Press (Barbell)",
					Notes: strPtr("pause reps"),
					Sets: []models.RawSet{
						{Index: 0, WeightKg: floatPtr(60), Reps: intPtr(10)},
						{Index: 1, WeightKg: floatPtr(80), Reps: intPtr(8)},
						{Index: 2, WeightKg: floatPtr(80), Reps: intPtr(7)},
					},
				},
				{
					Index:      1,
					Title:      "Triceps Rope Pushdown",
					SupersetID: intPtr(0),
					Sets: []models.RawSet{
						{Index: 0, WeightKg: floatPtr(25), Reps: intPtr(12)},
					},
				},
			},
		},
		{
			ID:        "w-2",
			Title:     "Core",
			StartTime: "2024-08-15T08:00:00Z",
			EndTime:   "2024-08-15T08:20:00Z",
			Exercises: []models.RawExercise{
				{
					Title: "Plank",
					Sets: []models.RawSet{
						{Index: 0, DurationSeconds: intPtr(60)},
						{Index: 1, DurationSeconds: intPtr(45)},
					},
				},
			},
		},
	}
}

// TestProcessWorkoutsCompleteness verifies one row per set with session and
// exercise fields copied down.
func TestProcessWorkoutsCompleteness(t *testing.T) {
	sessions := sampleWorkouts()
	rows, err := ProcessWorkouts(sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			total += len(ex.Sets)
		}
	}
	if len(rows) != total {
		t.Fatalf("rows = %d, want %d", len(rows), total)
	}

	r := rows[1]
	if r.WorkoutID != "w-1" || r.WorkoutTitle != "Push Day A" || r.WorkoutPlan != "Push" {
		t.Errorf("session fields = %q/%q/%q", r.WorkoutID, r.WorkoutTitle, r.WorkoutPlan)
	}
	if r.ExerciseTitle != "Bench Press" {
		t.Errorf("exercise_title = %q, want Bench Press", r.ExerciseTitle)
	}
	if deref(r.EquipmentType) != "Barbell" {
		t.Errorf("equipment_type = %s, want Barbell", deref(r.EquipmentType))
	}
	if deref(r.ExerciseNotes) != "pause reps" {
		t.Errorf("exercise_notes = %s", deref(r.ExerciseNotes))
	}
	if r.SetIndex != 2 {
		t.Errorf("set_index = %d, want 2", r.SetIndex)
	}
	if r.WeightKg == nil || *r.WeightKg != 80 || r.Reps == nil || *r.Reps != 8 {
		t.Errorf("measurements = %v/%v", r.WeightKg, r.Reps)
	}
	if r.Duration != nil {
		t.Errorf("duration = %v, want nil", *r.Duration)
	}
	if got := r.StartTime.Format(models.TimestampLayout); got != "2024-08-14 12:00:00" {
		t.Errorf("start_time = %s", got)
	}
	if got := r.EndTime.Format(models.TimestampLayout); got != "2024-08-14 13:10:42" {
		t.Errorf("end_time = %s", got)
	}

	rope := rows[3]
	if deref(rope.EquipmentType) != "Cable" {
		t.Errorf("rope equipment = %s, want Cable", deref(rope.EquipmentType))
	}
	if rope.SupersetID == nil || *rope.SupersetID != 0 {
		t.Errorf("superset_id = %v, want 0", rope.SupersetID)
	}

	plank := rows[4]
	if plank.EquipmentType != nil {
		t.Errorf("plank equipment = %s, want nil", *plank.EquipmentType)
	}
	if plank.Duration == nil || *plank.Duration != 60 || plank.WeightKg != nil {
		t.Errorf("plank measurements weight=%v duration=%v", plank.WeightKg, plank.Duration)
	}

	for _, row := range rows {
		if row.SetIndex < 1 {
			t.Errorf("set_index %d < 1", row.SetIndex)
		}
	}
}

// TestProcessWorkoutsRowIDs verifies row identities are unique within a run
// and stable across runs.
func TestProcessWorkoutsRowIDs(t *testing.T) {
	first, err := ProcessWorkouts(sampleWorkouts())
	if err != nil {
		t.Fatal(err)
	}
	second, err := ProcessWorkouts(sampleWorkouts())
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i, r := range first {
		if r.RowID == "" {
			t.Fatalf("row %d has empty row_id", i)
		}
		if seen[r.RowID] {
			t.Errorf("duplicate row_id %s", r.RowID)
		}
		seen[r.RowID] = true
		if second[i].RowID != r.RowID {
			t.Errorf("row %d: row_id changed between runs", i)
		}
	}
}

// TestWorkoutRowIDDistinguishesRepeatedExercise verifies that the same exercise
// performed twice in one session does not collide.
func TestWorkoutRowIDDistinguishesRepeatedExercise(t *testing.T) {
	if WorkoutRowID("w", 0, 1) == WorkoutRowID("w", 2, 1) {
		t.Error("row ids for different exercise positions collide")
	}
	if WorkoutRowID("w", 0, 1) != WorkoutRowID("w", 0, 1) {
		t.Error("row id is not deterministic")
	}
}

// TestProcessWorkoutsMalformedTimestamp verifies one bad timestamp fails the batch.
func TestProcessWorkoutsMalformedTimestamp(t *testing.T) {
	sessions := sampleWorkouts()
	sessions[1].EndTime = "not a time"

	rows, err := ProcessWorkouts(sessions)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrMalformedTimestamp) {
		t.Errorf("error = %v, want ErrMalformedTimestamp", err)
	}
	if rows != nil {
		t.Errorf("rows = %d, want nil on failure", len(rows))
	}
}

// TestProcessRoutinesPushDay is the end-to-end routine scenario: two sets of
// the same machine exercise collapse into one row with sets=2.
func TestProcessRoutinesPushDay(t *testing.T) {
	sessions := []models.RawSession{{
		ID:        "r-1",
		Title:     "Push Day A",
		CreatedAt: "2024-01-01T10:00:00.123456Z",
		UpdatedAt: "2024-02-01T10:00:00+00:00",
		Exercises: []models.RawExercise{{
			Title: "Chest Press (Machine)",
			Sets:  []models.RawSet{{Index: 0}, {Index: 1}},
		}},
	}}

	rows, err := ProcessRoutines(sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.WorkoutTitle != "Push Day A" {
		t.Errorf("workout_title = %q", r.WorkoutTitle)
	}
	if r.ExerciseTitle != "Chest Press" {
		t.Errorf("exercise_title = %q, want Chest Press", r.ExerciseTitle)
	}
	if deref(r.EquipmentType) != "Machine" {
		t.Errorf("equipment_type = %s, want Machine", deref(r.EquipmentType))
	}
	if r.Sets != 2 {
		t.Errorf("sets = %d, want 2", r.Sets)
	}
	if r.WorkoutPlan != "Push" {
		t.Errorf("workout_plan = %q, want Push", r.WorkoutPlan)
	}
	if got := r.CreatedAt.Format(models.TimestampLayout); got != "2024-01-01 10:00:00" {
		t.Errorf("created_at = %s", got)
	}
}

// TestProcessRoutinesMalformedTimestamp verifies routines fail the batch on bad dates.
func TestProcessRoutinesMalformedTimestamp(t *testing.T) {
	sessions := []models.RawSession{{
		ID:        "r-1",
		Title:     "Legs",
		CreatedAt: "2024-01-01T10:00:00Z",
		UpdatedAt: "",
		Exercises: []models.RawExercise{{Title: "Squat", Sets: []models.RawSet{{Index: 0}}}},
	}}
	if _, err := ProcessRoutines(sessions); !errors.Is(err, ErrMalformedTimestamp) {
		t.Errorf("error = %v, want ErrMalformedTimestamp", err)
	}
}

// TestWorkoutPlan covers the first-token rule.
func TestWorkoutPlan(t *testing.T) {
	tests := map[string]string{
		"Push Day A": "Push",
		"Legs":       "Legs",
		"":           "",
		" Upper":     "",
	}
	for in, want := range tests {
		if got := WorkoutPlan(in); got != want {
			t.Errorf("WorkoutPlan(%q) = %q, want %q", in, got, want)
		}
	}
}
