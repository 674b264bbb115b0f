// Package importer loads training program files (YAML) and seeds their
// exercises and workout templates into the record store.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
)

// Store is the part of the record store the importer writes to.
type Store interface {
	UpsertExercise(ctx context.Context, e models.ExerciseRow) (uuid.UUID, error)
	SeedWorkout(ctx context.Context, w models.WorkoutRow, exercises []models.TemplateExerciseRow) (uuid.UUID, error)
}

// Stats tracks import progress.
type Stats struct {
	ExercisesUpserted int
	ExercisesImplicit int
	WorkoutsSeeded    int
	TemplateRows      int
}

// Importer seeds a program into the store.
type Importer struct {
	db     Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. In dry-run mode nothing is written.
func New(db Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun}
}

// Import upserts the program's exercises, then seeds each workout. Exercises
// a workout names but the catalog does not define are created with no
// category. Seeding a workout replaces its planned exercises.
func (imp *Importer) Import(ctx context.Context, p *Program) (*Stats, error) {
	ids := map[string]uuid.UUID{}

	for _, e := range p.Exercises {
		if err := imp.upsertExercise(ctx, ids, models.ExerciseRow{
			Name:        strings.TrimSpace(e.Name),
			Category:    e.Category,
			Description: e.Description,
		}); err != nil {
			return &imp.stats, err
		}
		imp.stats.ExercisesUpserted++
	}

	for i := range p.Workouts {
		w := &p.Workouts[i]
		row, rows, err := p.Template(w)
		if err != nil {
			return &imp.stats, err
		}

		for j := range rows {
			key := nameKey(rows[j].ExerciseName)
			if _, ok := ids[key]; !ok {
				imp.log.Info("exercise not in catalog, creating", "exercise", rows[j].ExerciseName, "workout", row.Name)
				if err := imp.upsertExercise(ctx, ids, models.ExerciseRow{Name: rows[j].ExerciseName}); err != nil {
					return &imp.stats, err
				}
				imp.stats.ExercisesImplicit++
			}
			rows[j].ExerciseID = ids[key]
		}

		if imp.dryRun {
			imp.log.Info("would seed workout", "workout", row.Name, "exercises", len(rows))
		} else {
			id, err := imp.db.SeedWorkout(ctx, row, rows)
			if err != nil {
				return &imp.stats, fmt.Errorf("seeding workout %q: %w", row.Name, err)
			}
			imp.log.Info("workout seeded", "workout", row.Name, "id", id, "exercises", len(rows))
		}
		imp.stats.WorkoutsSeeded++
		imp.stats.TemplateRows += len(rows)
	}

	return &imp.stats, nil
}

func (imp *Importer) upsertExercise(ctx context.Context, ids map[string]uuid.UUID, e models.ExerciseRow) error {
	key := nameKey(e.Name)
	if imp.dryRun {
		ids[key] = uuid.Nil
		return nil
	}
	id, err := imp.db.UpsertExercise(ctx, e)
	if err != nil {
		return fmt.Errorf("importing exercise %q: %w", e.Name, err)
	}
	ids[key] = id
	return nil
}
