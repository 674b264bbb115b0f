package server

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

var (
	templateRowID = uuid.MustParse("3f1e2d4c-5b6a-4789-9c0d-1e2f3a4b5c6d")
	programID     = uuid.MustParse("8d7c6b5a-4e3f-4a1b-9c2d-0e1f2a3b4c5d")
)

func (f *fakeStore) AddTemplateExercise(ctx context.Context, wid, eid uuid.UUID, section models.Section) (*models.TemplateExerciseRow, error) {
	if wid != workoutID || eid != exerciseID {
		return nil, storage.ErrNotFound
	}
	return &models.TemplateExerciseRow{ID: templateRowID, WorkoutID: wid, ExerciseID: eid, ExerciseName: "Leg Press",
		Section: models.ParseSection(string(section)), Order: 4}, nil
}

func (f *fakeStore) UpdateTemplateTarget(ctx context.Context, wid, rowID uuid.UUID, target models.Target) (*models.TemplateExerciseRow, error) {
	if wid != workoutID || rowID != templateRowID {
		return nil, storage.ErrNotFound
	}
	f.target = target
	return &models.TemplateExerciseRow{ID: rowID, WorkoutID: wid, Target: target}, nil
}

func (f *fakeStore) ReorderTemplate(ctx context.Context, wid uuid.UUID, orders []models.TemplateOrder) error {
	if f.err != nil {
		return f.err
	}
	if wid != workoutID {
		return storage.ErrNotFound
	}
	f.reordered = orders
	return nil
}

func (f *fakeStore) DeleteTemplateExercise(ctx context.Context, wid, rowID uuid.UUID) error {
	if wid != workoutID || rowID != templateRowID {
		return storage.ErrNotFound
	}
	return nil
}

func (f *fakeStore) ListPrograms(ctx context.Context) ([]models.Program, error) {
	if f.programs == nil {
		return []models.Program{}, nil
	}
	return f.programs, nil
}

func (f *fakeStore) CreateProgram(ctx context.Context, name, description string) (*models.Program, error) {
	p := models.Program{ID: programID, Name: name, Description: description, Workouts: []models.ProgramWorkout{}}
	f.programs = append(f.programs, p)
	return &p, nil
}

func (f *fakeStore) program(id uuid.UUID) *models.Program {
	for i := range f.programs {
		if f.programs[i].ID == id {
			return &f.programs[i]
		}
	}
	return nil
}

func (f *fakeStore) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	if f.program(id) == nil {
		return storage.ErrNotFound
	}
	f.programs = nil
	return nil
}

func (f *fakeStore) SetProgramActive(ctx context.Context, id uuid.UUID, active bool) error {
	p := f.program(id)
	if p == nil {
		return storage.ErrNotFound
	}
	p.Active = active
	return nil
}

func (f *fakeStore) AddProgramWorkout(ctx context.Context, pid, wid uuid.UUID) (*models.ProgramWorkout, error) {
	p := f.program(pid)
	if p == nil || wid != workoutID {
		return nil, storage.ErrNotFound
	}
	pw := models.ProgramWorkout{ID: uuid.New(), ProgramID: pid, WorkoutID: wid, WorkoutName: "Lower Body A", DayNumber: len(p.Workouts) + 1}
	p.Workouts = append(p.Workouts, pw)
	return &pw, nil
}

func (f *fakeStore) RemoveProgramWorkout(ctx context.Context, pid, dayID uuid.UUID) error {
	p := f.program(pid)
	if p == nil {
		return storage.ErrNotFound
	}
	for i, pw := range p.Workouts {
		if pw.ID == dayID {
			p.Workouts = append(p.Workouts[:i], p.Workouts[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// TestAddTemplateExercise verifies exercises are appended to a template and
// unknown workouts or exercises are reported.
func TestAddTemplateExercise(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	path := "/api/v1/workouts/" + workoutID.String() + "/exercises"

	rec := do(t, s, http.MethodPost, path, `{"exercise_id":"`+exerciseID.String()+`","section":"cooldown"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	row := decode[models.TemplateExerciseRow](t, rec)
	if row.ID != templateRowID || row.Section != models.SectionCooldown || row.Order != 4 {
		t.Errorf("row = %+v", row)
	}

	if rec := do(t, s, http.MethodPost, path, `{"exercise_id":"`+uuid.NewString()+`"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exercise: status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, path, `{"exercise_id":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad exercise id: status = %d, want 400", rec.Code)
	}
}

// TestUpdateTemplateTarget verifies target updates accept a free-form weight
// and canonical unit aliases, and reject unknown units.
func TestUpdateTemplateTarget(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)
	path := "/api/v1/workouts/" + workoutID.String() + "/exercises/" + templateRowID.String()

	rec := do(t, s, http.MethodPatch, path, `{"target_sets":3,"target_reps":"12-15","target_weight":"125 lb"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	want := models.Target{Sets: 3, Reps: "12-15", Value: "125", Unit: models.UnitLb}
	if !reflect.DeepEqual(store.target, want) {
		t.Errorf("target = %+v, want %+v", store.target, want)
	}

	do(t, s, http.MethodPatch, path, `{"target_sets":1,"target_value":"30","target_unit":"seconds","target_distance":"20","target_distance_unit":"yards"}`)
	if store.target.Unit != models.UnitSec || store.target.DistanceUnit != models.DistanceYards {
		t.Errorf("target = %+v, want sec and yds", store.target)
	}

	for _, body := range []string{`{"target_unit":"stone"}`, `{"target_distance_unit":"miles"}`, `{"target_sets":-1}`} {
		if rec := do(t, s, http.MethodPatch, path, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	other := "/api/v1/workouts/" + workoutID.String() + "/exercises/" + uuid.NewString()
	if rec := do(t, s, http.MethodPatch, other, `{"target_sets":2}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown row: status = %d, want 404", rec.Code)
	}
}

// TestReorderTemplate verifies reorders pass through and duplicate or
// non-positive positions are refused before reaching the store.
func TestReorderTemplate(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)
	path := "/api/v1/workouts/" + workoutID.String() + "/exercises"
	a, b := uuid.New(), uuid.New()

	body := fmt.Sprintf(`[{"id":"%s","order":2},{"id":"%s","order":1}]`, a, b)
	rec := do(t, s, http.MethodPatch, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]int](t, rec)["saved"]; got != 2 {
		t.Errorf("saved = %d, want 2", got)
	}
	want := []models.TemplateOrder{{ID: a, Order: 2}, {ID: b, Order: 1}}
	if !reflect.DeepEqual(store.reordered, want) {
		t.Errorf("reordered = %+v", store.reordered)
	}

	store.reordered = nil
	dup := fmt.Sprintf(`[{"id":"%s","order":1},{"id":"%s","order":1}]`, a, b)
	if rec := do(t, s, http.MethodPatch, path, dup); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: status = %d, want 400", rec.Code)
	}
	zero := fmt.Sprintf(`[{"id":"%s","order":0}]`, a)
	if rec := do(t, s, http.MethodPatch, path, zero); rec.Code != http.StatusBadRequest {
		t.Errorf("zero order: status = %d, want 400", rec.Code)
	}
	if store.reordered != nil {
		t.Error("invalid reorders reached the store")
	}

	s = newTestAPI(t, &fakeStore{err: fmt.Errorf("committing: %w", storage.ErrConflict)})
	if rec := do(t, s, http.MethodPatch, path, body); rec.Code != http.StatusConflict {
		t.Errorf("position clash: status = %d, want 409", rec.Code)
	}
}

// TestDeleteTemplateExercise verifies template rows are removed by id.
func TestDeleteTemplateExercise(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	base := "/api/v1/workouts/" + workoutID.String() + "/exercises/"

	rec := do(t, s, http.MethodDelete, base+templateRowID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["deleted"]; got != templateRowID.String() {
		t.Errorf("deleted = %q", got)
	}
	if rec := do(t, s, http.MethodDelete, base+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown row: status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, base+"nope", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad row id: status = %d, want 400", rec.Code)
	}
}

// TestProgramLifecycle walks a program through creation, activation, day
// assignment and deletion.
func TestProgramLifecycle(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)

	if rec := do(t, s, http.MethodPost, "/api/v1/programs", `{"name":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank name: status = %d, want 400", rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/programs", `{"name":" Rehab Block ","description":"6 weeks"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if p := decode[models.Program](t, rec); p.Name != "Rehab Block" || p.Active {
		t.Errorf("created = %+v", p)
	}

	base := "/api/v1/programs/" + programID.String()
	if rec := do(t, s, http.MethodPost, base+"/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate: status = %d", rec.Code)
	}
	for i := 1; i <= 2; i++ {
		rec := do(t, s, http.MethodPost, base+"/workouts", `{"workout_id":"`+workoutID.String()+`"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add workout: status = %d: %s", rec.Code, rec.Body)
		}
		if pw := decode[models.ProgramWorkout](t, rec); pw.DayNumber != i {
			t.Errorf("day = %d, want %d", pw.DayNumber, i)
		}
	}
	if rec := do(t, s, http.MethodPost, base+"/workouts", `{"workout_id":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad workout id: status = %d, want 400", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/programs", "")
	programs := decode[[]models.Program](t, rec)
	if len(programs) != 1 || !programs[0].Active || len(programs[0].Workouts) != 2 {
		t.Fatalf("programs = %+v", programs)
	}

	first := programs[0].Workouts[0].ID
	if rec := do(t, s, http.MethodDelete, base+"/workouts/"+first.String(), ""); rec.Code != http.StatusOK {
		t.Errorf("remove day: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, base+"/workouts/"+first.String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("remove twice: status = %d, want 404", rec.Code)
	}
	if got := store.programs[0].Workouts; len(got) != 1 || got[0].DayNumber != 2 {
		t.Errorf("remaining days = %+v, want day 2 only", got)
	}

	if rec := do(t, s, http.MethodPost, base+"/deactivate", ""); rec.Code != http.StatusOK || store.programs[0].Active {
		t.Errorf("deactivate: status = %d active = %v", rec.Code, store.programs[0].Active)
	}
	if rec := do(t, s, http.MethodDelete, base, ""); rec.Code != http.StatusOK {
		t.Errorf("delete: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, base+"/activate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("activate deleted: status = %d, want 404", rec.Code)
	}
}
