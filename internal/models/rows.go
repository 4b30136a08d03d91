package models

import "time"

// ColumnType is the logical type of a table column.
type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnInteger   ColumnType = "integer"
	ColumnReal      ColumnType = "real"
	ColumnTimestamp ColumnType = "timestamp"
)

// TimestampLayout is the textual form of a naive, second-precision timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Column describes one column of a canonical table.
type Column struct {
	Name string
	Type ColumnType
}

// WorkoutRow is one physical set of a completed workout, ready for the workouts table.
type WorkoutRow struct {
	RowID         string    `json:"row_id"`
	WorkoutID     string    `json:"workout_id"`
	WorkoutTitle  string    `json:"workout_title"`
	WorkoutPlan   string    `json:"workout_plan"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	SupersetID    *int      `json:"superset_id"`
	ExerciseTitle string    `json:"exercise_title"`
	ExerciseNotes *string   `json:"exercise_notes"`
	EquipmentType *string   `json:"equipment_type"`
	SetIndex      int       `json:"set_index"`
	WeightKg      *float64  `json:"weight_kg"`
	Reps          *int      `json:"reps"`
	Duration      *int      `json:"duration"`
}

// RoutineRow is one exercise/attribute group of a routine template with its set count.
type RoutineRow struct {
	WorkoutID     string    `json:"workout_id"`
	WorkoutTitle  string    `json:"workout_title"`
	WorkoutPlan   string    `json:"workout_plan"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExerciseTitle string    `json:"exercise_title"`
	ExerciseNotes *string   `json:"exercise_notes"`
	EquipmentType *string   `json:"equipment_type"`
	Sets          int       `json:"sets"`
}

// WorkoutColumns is the schema of the workouts table.
var WorkoutColumns = []Column{
	{Name: "row_id", Type: ColumnText},
	{Name: "workout_id", Type: ColumnText},
	{Name: "workout_title", Type: ColumnText},
	{Name: "workout_plan", Type: ColumnText},
	{Name: "start_time", Type: ColumnTimestamp},
	{Name: "end_time", Type: ColumnTimestamp},
	{Name: "superset_id", Type: ColumnInteger},
	{Name: "exercise_title", Type: ColumnText},
	{Name: "exercise_notes", Type: ColumnText},
	{Name: "equipment_type", Type: ColumnText},
	{Name: "set_index", Type: ColumnInteger},
	{Name: "weight_kg", Type: ColumnReal},
	{Name: "reps", Type: ColumnInteger},
	{Name: "duration", Type: ColumnInteger},
}

// RoutineColumns is the schema of the routines table.
var RoutineColumns = []Column{
	{Name: "workout_id", Type: ColumnText},
	{Name: "workout_title", Type: ColumnText},
	{Name: "workout_plan", Type: ColumnText},
	{Name: "created_at", Type: ColumnTimestamp},
	{Name: "updated_at", Type: ColumnTimestamp},
	{Name: "exercise_title", Type: ColumnText},
	{Name: "exercise_notes", Type: ColumnText},
	{Name: "equipment_type", Type: ColumnText},
	{Name: "sets", Type: ColumnInteger},
}

// RowSet is a table-shaped batch of rows. Each row's values line up with Columns.
type RowSet struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (rs RowSet) Len() int {
	return len(rs.Rows)
}

// Index returns the position of the named column, or -1.
func (rs RowSet) Index(name string) int {
	for i, c := range rs.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (rs RowSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// WorkoutRowSet converts workout rows into a RowSet.
func WorkoutRowSet(rows []WorkoutRow) RowSet {
	rs := RowSet{Columns: WorkoutColumns, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		rs.Rows = append(rs.Rows, []any{
			r.RowID, r.WorkoutID, r.WorkoutTitle, r.WorkoutPlan,
			r.StartTime, r.EndTime, r.SupersetID,
			r.ExerciseTitle, r.ExerciseNotes, r.EquipmentType,
			r.SetIndex, r.WeightKg, r.Reps, r.Duration,
		})
	}
	return rs
}

// RoutineRowSet converts routine rows into a RowSet.
func RoutineRowSet(rows []RoutineRow) RowSet {
	rs := RowSet{Columns: RoutineColumns, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		rs.Rows = append(rs.Rows, []any{
			r.WorkoutID, r.WorkoutTitle, r.WorkoutPlan,
			r.CreatedAt, r.UpdatedAt,
			r.ExerciseTitle, r.ExerciseNotes, r.EquipmentType,
			r.Sets,
		})
	}
	return rs
}
