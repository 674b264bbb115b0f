package storage

import (
	"context"
	"fmt"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
)

// ListExercises returns the exercise catalog ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, category, description FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.ExerciseRow{}
	for rows.Next() {
		var e models.ExerciseRow
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Description); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise retrieves one exercise.
func (db *DB) GetExercise(ctx context.Context, id uuid.UUID) (*models.ExerciseRow, error) {
	var e models.ExerciseRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, category, description FROM exercises WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Category, &e.Description)
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", notFound(err))
	}
	return &e, nil
}

// UpsertExercise inserts an exercise by name, or updates category and
// description of the existing one. Returns its id.
func (db *DB) UpsertExercise(ctx context.Context, e models.ExerciseRow) (uuid.UUID, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, name, category, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
			SET category = COALESCE(NULLIF($3, ''), exercises.category),
			    description = COALESCE(NULLIF($4, ''), exercises.description)
		RETURNING id
	`, e.ID, e.Name, e.Category, e.Description).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting exercise %q: %w", e.Name, err)
	}
	return id, nil
}

// ExerciseHistory returns the most recent logged entries of an exercise for
// a user, newest first. Entries without sets are skipped.
func (db *DB) ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit, userID int) ([]models.HistoryRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.date, e.sets, e.rpe, e.pain_flag, e.notes
		FROM session_entries e
		JOIN sessions s ON s.id = e.session_id
		WHERE e.exercise_id = $1 AND s.user_id = $2 AND e.sets <> '[]'::jsonb
		ORDER BY s.date DESC, s.started_at DESC
		LIMIT $3`,
		exerciseID, userID, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	result := []models.HistoryRow{}
	for rows.Next() {
		var (
			h    models.HistoryRow
			sets []byte
		)
		if err := rows.Scan(&h.SessionID, &h.Date, &sets, &h.RPE, &h.PainFlag, &h.Notes); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if h.Sets, err = decodeSets(sets); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
