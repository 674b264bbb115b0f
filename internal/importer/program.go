package importer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/claude/replog/internal/models"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Program is a training program file: the exercise catalog, reusable blocks
// of planned exercises, and the workout templates built from them.
type Program struct {
	Exercises []ExerciseDef           `yaml:"exercises"`
	Blocks    map[string][]PlannedDef `yaml:"blocks"`
	Workouts  []WorkoutDef            `yaml:"workouts"`
}

// ExerciseDef is one catalog exercise.
type ExerciseDef struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

// WorkoutDef is a workout template. Blocks named in Blocks are placed before
// Exercises, in the order listed.
type WorkoutDef struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Tags        []string     `yaml:"tags"`
	Blocks      []string     `yaml:"blocks"`
	Exercises   []PlannedDef `yaml:"exercises"`
}

// PlannedDef is one planned exercise of a workout.
//
// Weight is free-form ("125 lb", "20 lb KB", "bw", "band"); Unit overrides the
// unit parsed from it.
type PlannedDef struct {
	Exercise     string `yaml:"exercise"`
	Section      string `yaml:"section"`
	Sets         int    `yaml:"sets"`
	Reps         string `yaml:"reps"`
	Weight       string `yaml:"weight"`
	Unit         string `yaml:"unit"`
	Distance     string `yaml:"distance"`
	DistanceUnit string `yaml:"distance_unit"`
	Notes        string `yaml:"notes"`
}

// LoadFile reads and parses a program file.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a program.
func Parse(data []byte) (*Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Program) validate() error {
	var errs []error

	seen := map[string]bool{}
	for i, e := range p.Exercises {
		key := nameKey(e.Name)
		switch {
		case key == "":
			errs = append(errs, fmt.Errorf("exercise %d: name is required", i+1))
		case seen[key]:
			errs = append(errs, fmt.Errorf("exercise %q: defined twice", e.Name))
		}
		seen[key] = true
	}

	for name, block := range p.Blocks {
		for i, pd := range block {
			if err := pd.check(); err != nil {
				errs = append(errs, fmt.Errorf("block %q item %d: %w", name, i+1, err))
			}
		}
	}

	workouts := map[string]bool{}
	for i, w := range p.Workouts {
		key := nameKey(w.Name)
		if key == "" {
			errs = append(errs, fmt.Errorf("workout %d: name is required", i+1))
			continue
		}
		if workouts[key] {
			errs = append(errs, fmt.Errorf("workout %q: defined twice", w.Name))
		}
		workouts[key] = true

		for _, b := range w.Blocks {
			if _, ok := p.Blocks[b]; !ok {
				errs = append(errs, fmt.Errorf("workout %q: unknown block %q", w.Name, b))
			}
		}
		for j, pd := range w.Exercises {
			if err := pd.check(); err != nil {
				errs = append(errs, fmt.Errorf("workout %q item %d: %w", w.Name, j+1, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (pd PlannedDef) check() error {
	if strings.TrimSpace(pd.Exercise) == "" {
		return errors.New("exercise is required")
	}
	if pd.Sets < 0 {
		return fmt.Errorf("sets must not be negative, got %d", pd.Sets)
	}
	_, err := pd.Target()
	return err
}

// Target converts the planned prescription to a target. Non-numeric units
// drop any parsed value.
func (pd PlannedDef) Target() (models.Target, error) {
	value, unit := models.ParseTargetWeight(pd.Weight)
	if pd.Unit != "" {
		u, ok := models.ParseUnit(pd.Unit)
		if !ok {
			return models.Target{}, fmt.Errorf("unknown unit %q", pd.Unit)
		}
		unit = u
	}
	if !unit.Numeric() {
		value = ""
	}

	var du models.DistanceUnit
	if pd.DistanceUnit != "" {
		d, ok := models.ParseDistanceUnit(pd.DistanceUnit)
		if !ok {
			return models.Target{}, fmt.Errorf("unknown distance unit %q", pd.DistanceUnit)
		}
		du = d
	}

	return models.Target{
		Sets:         pd.Sets,
		Reps:         strings.TrimSpace(pd.Reps),
		Value:        value,
		Unit:         unit,
		Distance:     strings.TrimSpace(pd.Distance),
		DistanceUnit: du,
		Notes:        strings.TrimSpace(pd.Notes),
	}, nil
}

// nameKey folds a name for case-insensitive matching.
func nameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Workout finds a workout by name, ignoring case.
func (p *Program) Workout(name string) (*WorkoutDef, bool) {
	key := nameKey(name)
	for i := range p.Workouts {
		if nameKey(p.Workouts[i].Name) == key {
			return &p.Workouts[i], true
		}
	}
	return nil, false
}

// Planned returns the workout's planned exercises with its blocks expanded.
func (p *Program) Planned(w *WorkoutDef) []PlannedDef {
	var out []PlannedDef
	for _, b := range w.Blocks {
		out = append(out, p.Blocks[b]...)
	}
	return append(out, w.Exercises...)
}

// Template returns the rows to seed for a workout, in template order.
// Exercise ids are left for the caller to resolve by name.
func (p *Program) Template(w *WorkoutDef) (models.WorkoutRow, []models.TemplateExerciseRow, error) {
	row := models.WorkoutRow{Name: strings.TrimSpace(w.Name), Description: w.Description, Tags: w.Tags}
	planned := p.Planned(w)
	rows := make([]models.TemplateExerciseRow, 0, len(planned))
	for i, pd := range planned {
		target, err := pd.Target()
		if err != nil {
			return row, nil, fmt.Errorf("workout %q: %w", w.Name, err)
		}
		rows = append(rows, models.TemplateExerciseRow{
			ExerciseName: strings.TrimSpace(pd.Exercise),
			Section:      models.ParseSection(pd.Section),
			Order:        i + 1,
			Target:       target,
		})
	}
	return row, rows, nil
}

// Entries returns fresh session entries for a workout, used when logging
// without a server.
func (p *Program) Entries(w *WorkoutDef) ([]models.ExerciseEntry, error) {
	_, rows, err := p.Template(w)
	if err != nil {
		return nil, err
	}
	entries := make([]models.ExerciseEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.ExerciseEntry{
			ExerciseName: r.ExerciseName,
			Section:      r.Section,
			Order:        r.Order,
			Sets:         []models.SetRecord{},
			Target:       r.Target,
		}
	}
	return entries, nil
}
