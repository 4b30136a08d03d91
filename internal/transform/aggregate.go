package transform

import (
	"github.com/claude/hevysync/internal/models"
)

// routineKey identifies a routine row: every field except the set index.
// Null notes and equipment form their own groups, distinct from "".
// Timestamps are compared as Unix seconds since they are already truncated.
type routineKey struct {
	workoutID     string
	workoutTitle  string
	workoutPlan   string
	createdAt     int64
	updatedAt     int64
	exerciseTitle string
	hasNotes      bool
	exerciseNotes string
	hasEquipment  bool
	equipment     string
}

func keyOf(r models.RoutineRow) routineKey {
	k := routineKey{
		workoutID:     r.WorkoutID,
		workoutTitle:  r.WorkoutTitle,
		workoutPlan:   r.WorkoutPlan,
		createdAt:     r.CreatedAt.Unix(),
		updatedAt:     r.UpdatedAt.Unix(),
		exerciseTitle: r.ExerciseTitle,
	}
	if r.ExerciseNotes != nil {
		k.hasNotes = true
		k.exerciseNotes = *r.ExerciseNotes
	}
	if r.EquipmentType != nil {
		k.hasEquipment = true
		k.equipment = *r.EquipmentType
	}
	return k
}

// aggregateRoutines collapses per-set rows that agree on every field into a
// single row whose Sets is the number of rows collapsed. Groups are emitted in
// first-seen order. Input rows are expected to carry Sets == 0.
func aggregateRoutines(rows []models.RoutineRow) []models.RoutineRow {
	index := make(map[routineKey]int, len(rows))
	var out []models.RoutineRow
	for _, r := range rows {
		k := keyOf(r)
		if i, ok := index[k]; ok {
			out[i].Sets++
			continue
		}
		r.Sets = 1
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}
