package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

const sessionColumns = `id, workout_id, name, date, notes, started_at, finished_at, duration_minutes`

func scanSession(row pgx.Row) (*models.SessionRow, error) {
	var s models.SessionRow
	if err := row.Scan(&s.ID, &s.WorkoutID, &s.Name, &s.Date, &s.Notes,
		&s.StartedAt, &s.FinishedAt, &s.DurationMinutes); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartSession creates a session for the user. When workoutID is set, one
// entry per template exercise is created in template order, each carrying a
// snapshot of its target.
func (db *DB) StartSession(ctx context.Context, workoutID *uuid.UUID, userID int) (*models.SessionRow, error) {
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var sess *models.SessionRow
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var tmpl *models.WorkoutTemplate
		if workoutID != nil {
			var err error
			if tmpl, err = getWorkoutTemplate(ctx, tx, *workoutID); err != nil {
				return err
			}
		}

		name := ""
		if tmpl != nil {
			name = tmpl.Name
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO sessions (id, user_id, workout_id, name, date, started_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+sessionColumns,
			uuid.New(), userID, workoutID, sessionName(name, now), date, now)
		var err error
		if sess, err = scanSession(row); err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		if tmpl == nil {
			return nil
		}

		batch := &pgx.Batch{}
		for _, ex := range tmpl.Exercises {
			target, err := encodeTarget(ex.Target)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO session_entries (id, session_id, exercise_id, section, sort_order, target)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), sess.ID, ex.ExerciseID, string(ex.Section), ex.Order, target)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting session entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession retrieves one of the user's sessions.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionRow, error) {
	sess, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID))
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", notFound(err))
	}
	return sess, nil
}

// GetSessionView loads a session with its entries in order. Each entry's
// LastSessionSets holds what was logged for the same exercise in the user's
// most recent other session of the same workout.
func (db *DB) GetSessionView(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionView, error) {
	sess, err := db.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	var (
		entries []models.ExerciseEntry
		last    map[string][]models.SetRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = db.sessionEntries(gctx, sessionID)
		return err
	})
	if sess.WorkoutID != nil {
		g.Go(func() error {
			var err error
			last, err = db.lastSessionSets(gctx, *sess.WorkoutID, sessionID, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range entries {
		if sets, ok := last[entries[i].ExerciseID]; ok {
			entries[i].LastSessionSets = sets
		}
	}
	return &models.SessionView{Session: *sess, Entries: entries}, nil
}

func (db *DB) sessionEntries(ctx context.Context, sessionID uuid.UUID) ([]models.ExerciseEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT e.id, e.exercise_id, ex.name, e.section, e.sort_order,
		       e.sets, e.rpe, e.pain_flag, e.notes, e.target
		FROM session_entries e
		JOIN exercises ex ON ex.id = e.exercise_id
		WHERE e.session_id = $1
		ORDER BY e.sort_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session entries: %w", err)
	}
	defer rows.Close()

	result := []models.ExerciseEntry{}
	for rows.Next() {
		var (
			e               models.ExerciseEntry
			id, exerciseID  uuid.UUID
			section         string
			setsRaw, tgtRaw []byte
		)
		if err := rows.Scan(&id, &exerciseID, &e.ExerciseName, &section, &e.Order,
			&setsRaw, &e.RPE, &e.PainFlag, &e.Notes, &tgtRaw); err != nil {
			return nil, fmt.Errorf("scanning session entry: %w", err)
		}
		e.ID = id.String()
		e.ExerciseID = exerciseID.String()
		e.Section = models.ParseSection(section)
		if e.Sets, err = decodeSets(setsRaw); err != nil {
			return nil, err
		}
		if e.Target, err = decodeTarget(tgtRaw); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// lastSessionSets maps exercise id to the sets logged in the most recent
// other session of the workout.
func (db *DB) lastSessionSets(ctx context.Context, workoutID, excludeID uuid.UUID, userID int) (map[string][]models.SetRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT e.exercise_id, e.sets
		FROM session_entries e
		WHERE e.session_id = (
			SELECT id FROM sessions
			WHERE workout_id = $1 AND user_id = $2 AND id <> $3
			ORDER BY date DESC, started_at DESC
			LIMIT 1
		)`, workoutID, userID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("querying last session sets: %w", err)
	}
	defer rows.Close()

	result := map[string][]models.SetRecord{}
	for rows.Next() {
		var (
			exerciseID uuid.UUID
			raw        []byte
		)
		if err := rows.Scan(&exerciseID, &raw); err != nil {
			return nil, fmt.Errorf("scanning last session sets: %w", err)
		}
		sets, err := decodeSets(raw)
		if err != nil {
			return nil, err
		}
		result[exerciseID.String()] = sets
	}
	return result, rows.Err()
}

// AddEntry appends an exercise to an open session after its last entry.
func (db *DB) AddEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section, userID int) (*models.ExerciseEntry, error) {
	entry := &models.ExerciseEntry{
		ID:         uuid.New().String(),
		ExerciseID: exerciseID.String(),
		Section:    models.ParseSection(string(section)),
		Sets:       []models.SetRecord{},
	}

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var finishedAt *time.Time
		err := tx.QueryRow(ctx,
			`SELECT finished_at FROM sessions WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			sessionID, userID).Scan(&finishedAt)
		if err != nil {
			return fmt.Errorf("locking session: %w", notFound(err))
		}
		if finishedAt != nil {
			return ErrSessionFinished
		}

		err = tx.QueryRow(ctx, `SELECT name FROM exercises WHERE id = $1`, exerciseID).
			Scan(&entry.ExerciseName)
		if err != nil {
			return fmt.Errorf("querying exercise: %w", notFound(err))
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO session_entries (id, session_id, exercise_id, section, sort_order)
			VALUES ($1, $2, $3, $4,
				(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM session_entries WHERE session_id = $2))
			RETURNING sort_order`,
			entry.ID, sessionID, exerciseID, string(entry.Section)).Scan(&entry.Order)
		if err != nil {
			return fmt.Errorf("inserting session entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// FinishSession closes a session, recording the rounded minutes since it
// started. Finishing an already finished session returns it unchanged.
func (db *DB) FinishSession(ctx context.Context, sessionID uuid.UUID, now time.Time, userID int) (*models.SessionRow, error) {
	var sess *models.SessionRow
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		sess, err = scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			sessionID, userID))
		if err != nil {
			return fmt.Errorf("locking session: %w", notFound(err))
		}
		if sess.Finished() {
			return nil
		}
		sess, err = scanSession(tx.QueryRow(ctx, `
			UPDATE sessions SET finished_at = $2, duration_minutes = $3
			WHERE id = $1
			RETURNING `+sessionColumns,
			sessionID, now, durationMinutes(sess.StartedAt, now)))
		if err != nil {
			return fmt.Errorf("finishing session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns the user's most recent sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, limit, userID int) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		userID, clampLimit(limit, defaultSessionsLimit))
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	result := []models.SessionRow{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}
