package models

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseRow is a row of the exercises table.
type ExerciseRow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// WorkoutRow is a planned workout template.
type WorkoutRow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
}

// TemplateExerciseRow is one planned exercise of a workout template.
type TemplateExerciseRow struct {
	ID           uuid.UUID `json:"id"`
	WorkoutID    uuid.UUID `json:"workout_id"`
	ExerciseID   uuid.UUID `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	Section      Section   `json:"section"`
	Order        int       `json:"order"`
	Target
}

// TemplateOrder moves one template row to a new position.
type TemplateOrder struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
}

// Program is a named rotation of workouts, one per training day. At most one
// program is active.
type Program struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Active      bool             `json:"active"`
	Workouts    []ProgramWorkout `json:"workouts"`
}

// ProgramWorkout places a workout on a day of a program.
type ProgramWorkout struct {
	ID          uuid.UUID `json:"id"`
	ProgramID   uuid.UUID `json:"program_id"`
	WorkoutID   uuid.UUID `json:"workout_id"`
	WorkoutName string    `json:"workout_name"`
	DayNumber   int       `json:"day_number"`
}

// WorkoutTemplate is a workout with its planned exercises in template order.
type WorkoutTemplate struct {
	WorkoutRow
	Exercises []TemplateExerciseRow `json:"exercises"`
}

// SessionRow is a row of the sessions table.
type SessionRow struct {
	ID              uuid.UUID  `json:"id"`
	WorkoutID       *uuid.UUID `json:"workout_id"`
	Name            string     `json:"name"`
	Date            time.Time  `json:"date"`
	Notes           string     `json:"notes"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	DurationMinutes int        `json:"duration_minutes"`
}

// Finished reports whether the session has been closed; its entries are then read-only.
func (s SessionRow) Finished() bool {
	return s.FinishedAt != nil
}

// SessionView is everything needed to start logging a session.
type SessionView struct {
	Session SessionRow      `json:"session"`
	Entries []ExerciseEntry `json:"entries"`
}

// HistoryRow is one past logged entry of an exercise.
type HistoryRow struct {
	SessionID uuid.UUID   `json:"session_id"`
	Date      time.Time   `json:"date"`
	Sets      []SetRecord `json:"sets"`
	RPE       *float64    `json:"rpe"`
	PainFlag  bool        `json:"pain_flag"`
	Notes     string      `json:"notes"`
}

// SaveResult acknowledges a persisted batch.
type SaveResult struct {
	Saved []string `json:"saved"`
}

// TrainingPeriod aggregates logged work over one week or month. Volume is
// reps times load over completed sets, kept apart per unit.
type TrainingPeriod struct {
	Period        string   `json:"period"`
	Sessions      int      `json:"sessions"`
	Minutes       int      `json:"minutes"`
	Entries       int      `json:"entries"`
	CompletedSets int      `json:"completed_sets"`
	TotalReps     int      `json:"total_reps"`
	VolumeLb      float64  `json:"volume_lb"`
	VolumeKg      float64  `json:"volume_kg"`
	PainFlags     int      `json:"pain_flags"`
	AvgRPE        *float64 `json:"avg_rpe,omitempty"`
}
