package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/claude/hevysync/internal/models"
)

// WorkoutPlan returns the first space-delimited token of a session title:
// "Push Day A" -> "Push".
func WorkoutPlan(title string) string {
	return strings.SplitN(title, " ", 2)[0]
}

// ProcessWorkouts turns workout sessions into one canonical row per set.
// A malformed timestamp anywhere fails the whole batch.
func ProcessWorkouts(sessions []models.RawSession) ([]models.WorkoutRow, error) {
	stubs := flattenWorkouts(sessions)
	rows := make([]models.WorkoutRow, 0, len(stubs))

	for _, st := range stubs {
		start, end, err := normalizePair(st.session.StartTime, st.session.EndTime)
		if err != nil {
			return nil, fmt.Errorf("workout %s: %w", st.session.ID, err)
		}
		title, equipment := ResolveEquipment(st.exerciseTitle)
		setIndex := st.set.Index + 1

		rows = append(rows, models.WorkoutRow{
			RowID:         WorkoutRowID(st.session.ID, st.exercisePos, setIndex),
			WorkoutID:     st.session.ID,
			WorkoutTitle:  st.session.Title,
			WorkoutPlan:   WorkoutPlan(st.session.Title),
			StartTime:     start,
			EndTime:       end,
			SupersetID:    st.supersetID,
			ExerciseTitle: title,
			ExerciseNotes: st.exerciseNotes,
			EquipmentType: equipment,
			SetIndex:      setIndex,
			WeightKg:      st.set.WeightKg,
			Reps:          st.set.Reps,
			Duration:      st.set.DurationSeconds,
		})
	}
	return rows, nil
}

// ProcessRoutines turns routine templates into one canonical row per
// exercise/attribute group, with Sets counting the collapsed sets.
func ProcessRoutines(sessions []models.RawSession) ([]models.RoutineRow, error) {
	stubs := flattenRoutines(sessions)
	perSet := make([]models.RoutineRow, 0, len(stubs))

	for _, st := range stubs {
		created, updated, err := normalizePair(st.session.CreatedAt, st.session.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("routine %s: %w", st.session.ID, err)
		}
		title, equipment := ResolveEquipment(st.exerciseTitle)

		perSet = append(perSet, models.RoutineRow{
			WorkoutID:     st.session.ID,
			WorkoutTitle:  st.session.Title,
			WorkoutPlan:   WorkoutPlan(st.session.Title),
			CreatedAt:     created,
			UpdatedAt:     updated,
			ExerciseTitle: title,
			ExerciseNotes: st.exerciseNotes,
			EquipmentType: equipment,
		})
	}
	return aggregateRoutines(perSet), nil
}

// normalizePair normalizes a session's two timestamp fields.
func normalizePair(a, b string) (time.Time, time.Time, error) {
	first, err := NormalizeTimestamp(a)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	second, err := NormalizeTimestamp(b)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first, second, nil
}
