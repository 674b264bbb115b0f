package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AddTemplateExercise appends an exercise to a workout template after its
// last row, with empty targets.
func (db *DB) AddTemplateExercise(ctx context.Context, workoutID, exerciseID uuid.UUID, section models.Section) (*models.TemplateExerciseRow, error) {
	var row models.TemplateExerciseRow
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM workouts WHERE id = $1 FOR UPDATE`, workoutID).Scan(&one)
		if err != nil {
			return fmt.Errorf("locking workout: %w", notFound(err))
		}
		err = tx.QueryRow(ctx, `SELECT 1 FROM exercises WHERE id = $1`, exerciseID).Scan(&one)
		if err != nil {
			return fmt.Errorf("querying exercise: %w", notFound(err))
		}

		id := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_exercises (id, workout_id, exercise_id, section, sort_order, target_unit)
			VALUES ($1, $2, $3, $4,
				(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM workout_exercises WHERE workout_id = $2), '')`,
			id, workoutID, exerciseID, models.ParseSection(string(section)))
		if err != nil {
			return fmt.Errorf("inserting workout exercise: %w", err)
		}
		row, err = getTemplateRow(ctx, tx, workoutID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateTemplateTarget replaces the planned targets of one template row.
func (db *DB) UpdateTemplateTarget(ctx context.Context, workoutID, rowID uuid.UUID, target models.Target) (*models.TemplateExerciseRow, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE workout_exercises
		SET target_sets = $3, target_reps = $4, target_value = $5, target_unit = $6,
		    target_distance = $7, target_distance_unit = $8, program_notes = $9
		WHERE id = $1 AND workout_id = $2`,
		rowID, workoutID, target.Sets, target.Reps, target.Value, string(target.Unit),
		target.Distance, string(target.DistanceUnit), target.Notes)
	if err != nil {
		return nil, fmt.Errorf("updating workout exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	row, err := getTemplateRow(ctx, db.Pool, workoutID, rowID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReorderTemplate moves template rows to new positions in one transaction.
// Positions must stay unique within the workout once all moves are applied;
// an id outside the workout yields ErrNotFound and nothing is changed.
func (db *DB) ReorderTemplate(ctx context.Context, workoutID uuid.UUID, orders []models.TemplateOrder) error {
	if len(orders) == 0 {
		return nil
	}
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, o := range orders {
			batch.Queue(`UPDATE workout_exercises SET sort_order = $3 WHERE id = $1 AND workout_id = $2`,
				o.ID, workoutID, o.Order)
		}
		br := tx.SendBatch(ctx, batch)
		for _, o := range orders {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("moving workout exercise %s: %w", o.ID, err)
			}
			if tag.RowsAffected() == 0 {
				_ = br.Close()
				return fmt.Errorf("moving workout exercise %s: %w", o.ID, ErrNotFound)
			}
		}
		return br.Close()
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// DeleteTemplateExercise removes one row from a workout template. Sessions
// already started from the template keep their entries.
func (db *DB) DeleteTemplateExercise(ctx context.Context, workoutID, rowID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_exercises WHERE id = $1 AND workout_id = $2`, rowID, workoutID)
	if err != nil {
		return fmt.Errorf("deleting workout exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getTemplateRow(ctx context.Context, q querier, workoutID, rowID uuid.UUID) (models.TemplateExerciseRow, error) {
	row, err := scanTemplateRow(q.QueryRow(ctx,
		`SELECT `+templateColumns+templateFrom+` WHERE we.id = $1 AND we.workout_id = $2`,
		rowID, workoutID))
	if err != nil {
		return row, fmt.Errorf("querying workout exercise: %w", notFound(err))
	}
	return row, nil
}
