package transform

import (
	"github.com/claude/hevysync/internal/models"
)

// workoutSetStub is one flattened workout set before titles and timestamps
// are normalized.
type workoutSetStub struct {
	session       *models.RawSession
	exercisePos   int
	exerciseTitle string
	exerciseNotes *string
	supersetID    *int
	set           models.RawSet
}

// routineSetStub is one flattened routine set before normalization.
type routineSetStub struct {
	session       *models.RawSession
	exerciseTitle string
	exerciseNotes *string
	setIndex      int
}

// flattenWorkouts expands sessions into one stub per set, in source order.
func flattenWorkouts(sessions []models.RawSession) []workoutSetStub {
	var stubs []workoutSetStub
	for i := range sessions {
		s := &sessions[i]
		for pos, ex := range s.Exercises {
			for _, set := range ex.Sets {
				stubs = append(stubs, workoutSetStub{
					session:       s,
					exercisePos:   exercisePosition(ex, pos),
					exerciseTitle: ex.Title,
					exerciseNotes: ex.Notes,
					supersetID:    ex.SupersetID,
					set:           set,
				})
			}
		}
	}
	return stubs
}

// flattenRoutines expands routine templates into one stub per set, in source order.
func flattenRoutines(sessions []models.RawSession) []routineSetStub {
	var stubs []routineSetStub
	for i := range sessions {
		s := &sessions[i]
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				stubs = append(stubs, routineSetStub{
					session:       s,
					exerciseTitle: ex.Title,
					exerciseNotes: ex.Notes,
					setIndex:      set.Index + 1,
				})
			}
		}
	}
	return stubs
}

// exercisePosition prefers the API-supplied index. Payloads that omit it
// decode as zero for every exercise, so the slice position is used instead.
func exercisePosition(ex models.RawExercise, pos int) int {
	if ex.Index != 0 {
		return ex.Index
	}
	return pos
}
