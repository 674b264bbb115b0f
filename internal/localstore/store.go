// Package localstore keeps sessions in a SQLite file for logging without a
// server. It satisfies session.Adapter.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS entries (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	exercise_id   TEXT NOT NULL DEFAULT '',
	exercise_name TEXT NOT NULL DEFAULT '',
	section       TEXT NOT NULL DEFAULT 'main',
	sort_order    INTEGER NOT NULL,
	sets          TEXT NOT NULL DEFAULT '[]',
	rpe           REAL,
	pain_flag     INTEGER NOT NULL DEFAULT 0,
	notes         TEXT NOT NULL DEFAULT '',
	target        TEXT NOT NULL DEFAULT '{}',
	updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_entries_session ON entries (session_id, sort_order);
`

// Store is a local session database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Session is a locally stored session header.
type Session struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// Open opens (or creates) the database at dir/replog.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "replog.db"))
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession stores a new session with its planned entries, in the given
// order. Entries without an id are assigned one. Returns the session id and
// the stored entries.
func (s *Store) CreateSession(ctx context.Context, name string, entries []models.ExerciseEntry) (string, []models.ExerciseEntry, error) {
	id := uuid.NewString()
	stored := make([]models.ExerciseEntry, len(entries))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, name, started_at) VALUES (?, ?, ?)`,
		id, name, s.now().UTC()); err != nil {
		return "", nil, fmt.Errorf("inserting session: %w", err)
	}

	for i, e := range entries {
		e = e.Clone()
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.Section = models.ParseSection(string(e.Section))
		e.Order = i + 1
		e.Dirty = false
		if e.Sets == nil {
			e.Sets = []models.SetRecord{}
		}
		if err := insertEntry(ctx, tx, id, e); err != nil {
			return "", nil, err
		}
		stored[i] = e
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("committing session: %w", err)
	}
	return id, stored, nil
}

// AddEntry appends an ad hoc entry after the session's last one and returns
// it with its id and order filled in.
func (s *Store) AddEntry(ctx context.Context, sessionID string, e models.ExerciseEntry) (models.ExerciseEntry, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return e, err
	}
	e = e.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Section = models.ParseSection(string(e.Section))
	e.Dirty = false
	if e.Sets == nil {
		e.Sets = []models.SetRecord{}
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM entries WHERE session_id = ?`, sessionID).
		Scan(&e.Order)
	if err != nil {
		return e, fmt.Errorf("next entry order: %w", err)
	}
	if err := insertEntry(ctx, s.db, sessionID, e); err != nil {
		return e, err
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, sessionID string, e models.ExerciseEntry) error {
	sets, err := json.Marshal(e.Sets)
	if err != nil {
		return fmt.Errorf("encoding sets: %w", err)
	}
	target, err := json.Marshal(e.Target)
	if err != nil {
		return fmt.Errorf("encoding target: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (id, session_id, exercise_id, exercise_name, section, sort_order,
			sets, rpe, pain_flag, notes, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, sessionID, e.ExerciseID, e.ExerciseName, string(e.Section), e.Order,
		string(sets), e.RPE, e.PainFlag, e.Notes, string(target))
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return nil
}

// Session returns the header of one session.
func (s *Store) Session(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, started_at, finished_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&sess.ID, &sess.Name, &sess.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if finished.Valid {
		sess.FinishedAt = &finished.Time
	}
	return &sess, nil
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, started_at, finished_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		var sess Session
		var finished sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if finished.Valid {
			sess.FinishedAt = &finished.Time
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// LoadEntries returns a session's entries in order, all clean.
func (s *Store) LoadEntries(ctx context.Context, sessionID string) ([]models.ExerciseEntry, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exercise_id, exercise_name, section, sort_order, sets, rpe, pain_flag, notes, target
		FROM entries WHERE session_id = ? ORDER BY sort_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	result := []models.ExerciseEntry{}
	for rows.Next() {
		var (
			e            models.ExerciseEntry
			section      string
			sets, target string
			rpe          sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.ExerciseID, &e.ExerciseName, &section, &e.Order,
			&sets, &rpe, &e.PainFlag, &e.Notes, &target); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Section = models.ParseSection(section)
		if err := json.Unmarshal([]byte(sets), &e.Sets); err != nil {
			return nil, fmt.Errorf("decoding sets of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(target), &e.Target); err != nil {
			return nil, fmt.Errorf("decoding target of %s: %w", e.ID, err)
		}
		if rpe.Valid {
			e.RPE = &rpe.Float64
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SaveEntries writes the persisted fields of each update to the entry with
// the same id in the session. Unknown ids and finished sessions are skipped.
// Returns the ids saved.
func (s *Store) SaveEntries(ctx context.Context, sessionID string, updates []models.EntryUpdate) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved := []string{}
	for _, u := range updates {
		sets := u.Sets
		if sets == nil {
			sets = []models.SetRecord{}
		}
		data, err := json.Marshal(sets)
		if err != nil {
			return nil, fmt.Errorf("encoding sets: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE entries
			SET sets = ?, rpe = ?, pain_flag = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND session_id = ?
			  AND EXISTS (SELECT 1 FROM sessions WHERE id = ? AND finished_at IS NULL)`,
			string(data), u.RPE, u.PainFlag, u.Notes, u.ID, sessionID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("updating entry %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			saved = append(saved, u.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing entries: %w", err)
	}
	return saved, nil
}

// FinishSession marks the session finished. Returns the whole minutes it
// lasted, rounded.
func (s *Store) FinishSession(ctx context.Context, sessionID string) (int, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	if sess.FinishedAt == nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET finished_at = ? WHERE id = ?`, now, sessionID); err != nil {
			return 0, fmt.Errorf("finishing session: %w", err)
		}
	} else {
		now = *sess.FinishedAt
	}
	return int(now.Sub(sess.StartedAt).Round(time.Minute) / time.Minute), nil
}
