package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/replog/internal/client"
	"github.com/claude/replog/internal/importer"
	"github.com/claude/replog/internal/localstore"
	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

// backend is where a logging session lives.
type backend interface {
	session.Adapter
	// Open starts a new session or resumes an existing one.
	Open(ctx context.Context) (id, name string, entries []models.ExerciseEntry, err error)
	// Finish closes the session and returns how many minutes it lasted.
	Finish(ctx context.Context, sessionID string) (int, error)
	// NewEntry stores an ad hoc exercise in the session.
	NewEntry(ctx context.Context, sessionID, exercise string, section models.Section) (models.ExerciseEntry, error)
}

// records is the session API shared by the server and the database.
type records interface {
	session.Adapter
	ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error)
	ListExercises(ctx context.Context) ([]models.ExerciseRow, error)
	addEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section) (*models.ExerciseEntry, error)
	start(ctx context.Context, workoutID *uuid.UUID) (*models.SessionView, error)
	view(ctx context.Context, sessionID uuid.UUID) (*models.SessionView, error)
	finish(ctx context.Context, sessionID uuid.UUID) (*models.SessionRow, error)
}

type remoteRecords struct{ *client.Client }

func (r remoteRecords) start(ctx context.Context, workoutID *uuid.UUID) (*models.SessionView, error) {
	return r.StartSession(ctx, workoutID)
}

func (r remoteRecords) view(ctx context.Context, id uuid.UUID) (*models.SessionView, error) {
	return r.GetSession(ctx, id)
}

func (r remoteRecords) addEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section) (*models.ExerciseEntry, error) {
	return r.AddEntry(ctx, sessionID, exerciseID, section)
}

func (r remoteRecords) finish(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	return r.FinishSession(ctx, id)
}

type dbRecords struct {
	db     *storage.DB
	userID int
}

func (d dbRecords) SaveEntries(ctx context.Context, sessionID string, updates []models.EntryUpdate) ([]string, error) {
	return d.db.Writer(d.userID).SaveEntries(ctx, sessionID, updates)
}

func (d dbRecords) ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error) {
	return d.db.ListWorkouts(ctx)
}

func (d dbRecords) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	return d.db.ListExercises(ctx)
}

func (d dbRecords) addEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section) (*models.ExerciseEntry, error) {
	return d.db.AddEntry(ctx, sessionID, exerciseID, section, d.userID)
}

func (d dbRecords) start(ctx context.Context, workoutID *uuid.UUID) (*models.SessionView, error) {
	sess, err := d.db.StartSession(ctx, workoutID, d.userID)
	if err != nil {
		return nil, err
	}
	return d.view(ctx, sess.ID)
}

func (d dbRecords) view(ctx context.Context, id uuid.UUID) (*models.SessionView, error) {
	return d.db.GetSessionView(ctx, id, d.userID)
}

func (d dbRecords) finish(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	return d.db.FinishSession(ctx, id, time.Now().UTC(), d.userID)
}

// recordBackend logs against the server or the database directly.
type recordBackend struct {
	records
	workout string
	resume  string
}

func (b *recordBackend) Open(ctx context.Context) (string, string, []models.ExerciseEntry, error) {
	var (
		view *models.SessionView
		err  error
	)
	if b.resume != "" {
		id, perr := uuid.Parse(b.resume)
		if perr != nil {
			return "", "", nil, fmt.Errorf("invalid session id %q", b.resume)
		}
		view, err = b.view(ctx, id)
	} else {
		var workoutID *uuid.UUID
		if b.workout != "" {
			workouts, lerr := b.ListWorkouts(ctx)
			if lerr != nil {
				return "", "", nil, fmt.Errorf("listing workouts: %w", lerr)
			}
			w, ferr := findWorkout(workouts, b.workout)
			if ferr != nil {
				return "", "", nil, ferr
			}
			workoutID = &w.ID
		}
		view, err = b.start(ctx, workoutID)
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("opening session: %w", err)
	}
	if view.Session.Finished() {
		return "", "", nil, fmt.Errorf("session %s is already finished", view.Session.ID)
	}
	return view.Session.ID.String(), view.Session.Name, view.Entries, nil
}

func (b *recordBackend) Finish(ctx context.Context, sessionID string) (int, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", sessionID)
	}
	sess, err := b.finish(ctx, id)
	if err != nil {
		return 0, err
	}
	return sess.DurationMinutes, nil
}

func (b *recordBackend) NewEntry(ctx context.Context, sessionID, exercise string, section models.Section) (models.ExerciseEntry, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return models.ExerciseEntry{}, fmt.Errorf("invalid session id %q", sessionID)
	}
	exercises, err := b.ListExercises(ctx)
	if err != nil {
		return models.ExerciseEntry{}, fmt.Errorf("listing exercises: %w", err)
	}
	ex, err := findExercise(exercises, exercise)
	if err != nil {
		return models.ExerciseEntry{}, err
	}
	entry, err := b.addEntry(ctx, id, ex.ID, section)
	if err != nil {
		return models.ExerciseEntry{}, err
	}
	if entry.ExerciseName == "" {
		entry.ExerciseName = ex.Name
	}
	return *entry, nil
}

// findWorkout matches a workout by id, exact name or unique partial name,
// ignoring case.
func findWorkout(workouts []models.WorkoutRow, ref string) (models.WorkoutRow, error) {
	return findByName(workouts, "workout", ref, func(w models.WorkoutRow) (uuid.UUID, string) { return w.ID, w.Name })
}

// findExercise matches a catalog exercise the same way.
func findExercise(exercises []models.ExerciseRow, ref string) (models.ExerciseRow, error) {
	return findByName(exercises, "exercise", ref, func(e models.ExerciseRow) (uuid.UUID, string) { return e.ID, e.Name })
}

func findByName[T any](items []T, kind, ref string, key func(T) (uuid.UUID, string)) (T, error) {
	var zero T
	needle := strings.ToLower(strings.TrimSpace(ref))
	var partial []T
	for _, it := range items {
		id, name := key(it)
		name = strings.ToLower(name)
		if id.String() == needle || name == needle {
			return it, nil
		}
		if strings.Contains(name, needle) {
			partial = append(partial, it)
		}
	}
	switch len(partial) {
	case 0:
		return zero, fmt.Errorf("no %s matches %q", kind, ref)
	case 1:
		return partial[0], nil
	}
	return zero, fmt.Errorf("%q matches %d %ss", ref, len(partial), kind)
}

// localBackend logs to a SQLite file, planning sessions from a program file.
type localBackend struct {
	*localstore.Store
	program *importer.Program
	workout string
	resume  string
}

func (b *localBackend) Open(ctx context.Context) (string, string, []models.ExerciseEntry, error) {
	if b.resume != "" {
		sess, err := b.Session(ctx, b.resume)
		if err != nil {
			return "", "", nil, err
		}
		if sess.FinishedAt != nil {
			return "", "", nil, fmt.Errorf("session %s is already finished", sess.ID)
		}
		entries, err := b.LoadEntries(ctx, sess.ID)
		if err != nil {
			return "", "", nil, err
		}
		return sess.ID, sess.Name, entries, nil
	}

	if b.program == nil {
		return "", "", nil, errors.New("a program file is needed to start a local session")
	}
	w, ok := b.program.Workout(b.workout)
	if !ok {
		return "", "", nil, fmt.Errorf("no workout %q in program", b.workout)
	}
	planned, err := b.program.Entries(w)
	if err != nil {
		return "", "", nil, err
	}
	id, stored, err := b.CreateSession(ctx, w.Name, planned)
	if err != nil {
		return "", "", nil, err
	}
	return id, w.Name, stored, nil
}

func (b *localBackend) Finish(ctx context.Context, sessionID string) (int, error) {
	return b.FinishSession(ctx, sessionID)
}

// NewEntry adds an exercise by name; the local store has no catalog to
// check it against.
func (b *localBackend) NewEntry(ctx context.Context, sessionID, exercise string, section models.Section) (models.ExerciseEntry, error) {
	return b.AddEntry(ctx, sessionID, models.ExerciseEntry{ExerciseName: exercise, Section: section})
}
