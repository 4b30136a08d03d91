package transform

import (
	"fmt"

	"github.com/google/uuid"
)

// workoutRowNamespace scopes workout row identities.
var workoutRowNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hevysync.workouts"))

// WorkoutRowID derives the stable identity of one workout set. The same
// workout, exercise position and set index always yield the same ID, which
// is what lets append-unique skip rows it has already stored.
func WorkoutRowID(workoutID string, exercisePos, setIndex int) string {
	name := fmt.Sprintf("%s/%d/%d", workoutID, exercisePos, setIndex)
	return uuid.NewSHA1(workoutRowNamespace, []byte(name)).String()
}
