package models

// WorkoutsPage is one page of the Hevy /v1/workouts endpoint.
type WorkoutsPage struct {
	Page      int          `json:"page"`
	PageCount int          `json:"page_count"`
	Workouts  []RawSession `json:"workouts"`
}

// RoutinesPage is one page of the Hevy /v1/routines endpoint.
type RoutinesPage struct {
	Page      int          `json:"page"`
	PageCount int          `json:"page_count"`
	Routines  []RawSession `json:"routines"`
}

// RawSession is a workout or routine as returned by the API.
// Workouts carry StartTime/EndTime, routines carry CreatedAt/UpdatedAt.
type RawSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	StartTime string        `json:"start_time,omitempty"`
	EndTime   string        `json:"end_time,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	UpdatedAt string        `json:"updated_at,omitempty"`
	Exercises []RawExercise `json:"exercises"`
}

// RawExercise is a single exercise within a session.
type RawExercise struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	Notes      *string  `json:"notes"`
	SupersetID *int     `json:"superset_id"`
	Sets       []RawSet `json:"sets"`
}

// RawSet is a single set. Measurements are only present on workouts and
// may be null there as well.
type RawSet struct {
	Index           int      `json:"index"`
	WeightKg        *float64 `json:"weight_kg"`
	Reps            *int     `json:"reps"`
	DurationSeconds *int     `json:"duration_seconds"`
}
