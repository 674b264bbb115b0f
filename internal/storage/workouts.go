package storage

import (
	"context"
	"fmt"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListWorkouts returns all workout templates ordered by name.
func (db *DB) ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, description, tags FROM workouts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutRow{}
	for rows.Next() {
		var w models.WorkoutRow
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.Tags); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkoutTemplate retrieves a workout with its planned exercises in
// template order.
func (db *DB) GetWorkoutTemplate(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutTemplate, error) {
	return getWorkoutTemplate(ctx, db.Pool, workoutID)
}

// querier is the subset of pgxpool.Pool and pgx.Tx used by shared readers.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	templateColumns = `we.id, we.workout_id, we.exercise_id, ex.name, we.section, we.sort_order,
		we.target_sets, we.target_reps, we.target_value, we.target_unit,
		we.target_distance, we.target_distance_unit, we.program_notes`
	templateFrom = `
		FROM workout_exercises we
		JOIN exercises ex ON ex.id = we.exercise_id`
)

func scanTemplateRow(row pgx.Row) (models.TemplateExerciseRow, error) {
	var r models.TemplateExerciseRow
	err := row.Scan(&r.ID, &r.WorkoutID, &r.ExerciseID, &r.ExerciseName, &r.Section, &r.Order,
		&r.Sets, &r.Reps, &r.Value, &r.Unit,
		&r.Distance, &r.DistanceUnit, &r.Notes)
	return r, err
}

func getWorkoutTemplate(ctx context.Context, q querier, workoutID uuid.UUID) (*models.WorkoutTemplate, error) {
	var t models.WorkoutTemplate
	err := q.QueryRow(ctx,
		`SELECT id, name, description, tags FROM workouts WHERE id = $1`, workoutID).
		Scan(&t.ID, &t.Name, &t.Description, &t.Tags)
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", notFound(err))
	}

	rows, err := q.Query(ctx,
		`SELECT `+templateColumns+templateFrom+` WHERE we.workout_id = $1 ORDER BY we.sort_order`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer rows.Close()

	t.Exercises = []models.TemplateExerciseRow{}
	for rows.Next() {
		r, err := scanTemplateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		t.Exercises = append(t.Exercises, r)
	}
	return &t, rows.Err()
}

// SeedWorkout creates or replaces a workout template by name. Exercises are
// referenced by ExerciseID and stored in the given order. Returns the
// workout id.
func (db *DB) SeedWorkout(ctx context.Context, w models.WorkoutRow, exercises []models.TemplateExerciseRow) (uuid.UUID, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}

	var id uuid.UUID
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO workouts (id, name, description, tags)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE
				SET description = EXCLUDED.description, tags = EXCLUDED.tags
			RETURNING id
		`, w.ID, w.Name, w.Description, w.Tags).Scan(&id)
		if err != nil {
			return fmt.Errorf("upserting workout %q: %w", w.Name, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM workout_exercises WHERE workout_id = $1`, id); err != nil {
			return fmt.Errorf("clearing workout exercises: %w", err)
		}

		batch := &pgx.Batch{}
		for i, e := range exercises {
			order := e.Order
			if order == 0 {
				order = i + 1
			}
			batch.Queue(`
				INSERT INTO workout_exercises (id, workout_id, exercise_id, section, sort_order,
					target_sets, target_reps, target_value, target_unit,
					target_distance, target_distance_unit, program_notes)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
				uuid.New(), id, e.ExerciseID, models.ParseSection(string(e.Section)), order,
				e.Sets, e.Reps, e.Value, string(e.Unit),
				e.Distance, string(e.DistanceUnit), e.Notes)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting workout exercises: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
