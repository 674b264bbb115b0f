package storage

import (
	"context"
	"fmt"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListPrograms returns every program, the active one first and the rest by
// name, each with its workouts in day order.
func (db *DB) ListPrograms(ctx context.Context) ([]models.Program, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, description, active FROM programs ORDER BY active DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	result := []models.Program{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		p := models.Program{Workouts: []models.ProgramWorkout{}}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Active); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		index[p.ID] = len(result)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	days, err := queryProgramWorkouts(ctx, db.Pool)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		if i, ok := index[d.ProgramID]; ok {
			result[i].Workouts = append(result[i].Workouts, d)
		}
	}
	return result, nil
}

// CreateProgram stores a new, inactive program with no workouts.
func (db *DB) CreateProgram(ctx context.Context, name, description string) (*models.Program, error) {
	p := &models.Program{ID: uuid.New(), Name: name, Description: description, Workouts: []models.ProgramWorkout{}}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO programs (id, name, description) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.Description)
	if err != nil {
		return nil, fmt.Errorf("inserting program: %w", err)
	}
	return p, nil
}

// DeleteProgram removes a program and its day assignments.
func (db *DB) DeleteProgram(ctx context.Context, programID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM programs WHERE id = $1`, programID)
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProgramActive activates or deactivates a program. Activating one
// deactivates every other.
func (db *DB) SetProgramActive(ctx context.Context, programID uuid.UUID, active bool) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if active {
			_, err := tx.Exec(ctx, `UPDATE programs SET active = FALSE WHERE active AND id <> $1`, programID)
			if err != nil {
				return fmt.Errorf("deactivating programs: %w", err)
			}
		}
		tag, err := tx.Exec(ctx, `UPDATE programs SET active = $2 WHERE id = $1`, programID, active)
		if err != nil {
			return fmt.Errorf("updating program: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddProgramWorkout schedules a workout on the day after the program's last.
func (db *DB) AddProgramWorkout(ctx context.Context, programID, workoutID uuid.UUID) (*models.ProgramWorkout, error) {
	pw := &models.ProgramWorkout{ID: uuid.New(), ProgramID: programID, WorkoutID: workoutID}
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM programs WHERE id = $1 FOR UPDATE`, programID).Scan(&one)
		if err != nil {
			return fmt.Errorf("locking program: %w", notFound(err))
		}
		err = tx.QueryRow(ctx, `SELECT name FROM workouts WHERE id = $1`, workoutID).Scan(&pw.WorkoutName)
		if err != nil {
			return fmt.Errorf("querying workout: %w", notFound(err))
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO program_workouts (id, program_id, workout_id, day_number)
			VALUES ($1, $2, $3,
				(SELECT COALESCE(MAX(day_number), 0) + 1 FROM program_workouts WHERE program_id = $2))
			RETURNING day_number`,
			pw.ID, programID, workoutID).Scan(&pw.DayNumber)
		if err != nil {
			return fmt.Errorf("inserting program workout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// RemoveProgramWorkout takes one day off a program. Later days keep their
// numbers.
func (db *DB) RemoveProgramWorkout(ctx context.Context, programID, programWorkoutID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM program_workouts WHERE id = $1 AND program_id = $2`, programWorkoutID, programID)
	if err != nil {
		return fmt.Errorf("deleting program workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func queryProgramWorkouts(ctx context.Context, q querier) ([]models.ProgramWorkout, error) {
	rows, err := q.Query(ctx, `
		SELECT pw.id, pw.program_id, pw.workout_id, w.name, pw.day_number
		FROM program_workouts pw
		JOIN workouts w ON w.id = pw.workout_id
		ORDER BY pw.program_id, pw.day_number`)
	if err != nil {
		return nil, fmt.Errorf("querying program workouts: %w", err)
	}
	defer rows.Close()

	var result []models.ProgramWorkout
	for rows.Next() {
		var pw models.ProgramWorkout
		if err := rows.Scan(&pw.ID, &pw.ProgramID, &pw.WorkoutID, &pw.WorkoutName, &pw.DayNumber); err != nil {
			return nil, fmt.Errorf("scanning program workout: %w", err)
		}
		result = append(result, pw)
	}
	return result, rows.Err()
}
