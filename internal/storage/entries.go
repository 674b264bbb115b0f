package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveEntries writes the persisted fields of each update. Only entries that
// belong to sessionID are written; updates with unknown or malformed ids are
// skipped. Returns the ids actually saved, in input order. A session the user
// does not own yields ErrNotFound and a finished one ErrSessionFinished.
func (db *DB) SaveEntries(ctx context.Context, sessionID uuid.UUID, updates []models.EntryUpdate, userID int) ([]string, error) {
	saved := []string{}
	var queued []string
	batch := &pgx.Batch{}
	for _, u := range updates {
		entryID, err := uuid.Parse(u.ID)
		if err != nil {
			continue
		}
		sets, err := encodeSets(u.Sets)
		if err != nil {
			return nil, err
		}
		batch.Queue(`
			UPDATE session_entries e
			SET sets = $3, rpe = $4, pain_flag = $5, notes = $6, updated_at = NOW()
			FROM sessions s
			WHERE e.id = $1 AND e.session_id = $2
			  AND s.id = e.session_id AND s.user_id = $7 AND s.finished_at IS NULL`,
			entryID, sessionID, sets, u.RPE, u.PainFlag, u.Notes, userID)
		queued = append(queued, u.ID)
	}

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var finishedAt *time.Time
		err := tx.QueryRow(ctx,
			`SELECT finished_at FROM sessions WHERE id = $1 AND user_id = $2 FOR SHARE`,
			sessionID, userID).Scan(&finishedAt)
		if err != nil {
			return fmt.Errorf("locking session: %w", notFound(err))
		}
		if finishedAt != nil {
			return ErrSessionFinished
		}
		if len(queued) == 0 {
			return nil
		}

		br := tx.SendBatch(ctx, batch)
		for _, id := range queued {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("updating entry %s: %w", id, err)
			}
			if tag.RowsAffected() > 0 {
				saved = append(saved, id)
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("saving entries: %w", err)
	}
	return saved, nil
}

// EntryWriter saves entries on behalf of one user. It lets a logger write
// straight to the database.
type EntryWriter struct {
	db     *DB
	userID int
}

// Writer returns an EntryWriter for userID.
func (db *DB) Writer(userID int) *EntryWriter {
	return &EntryWriter{db: db, userID: userID}
}

func (w *EntryWriter) SaveEntries(ctx context.Context, sessionID string, updates []models.EntryUpdate) ([]string, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return w.db.SaveEntries(ctx, id, updates, w.userID)
}
