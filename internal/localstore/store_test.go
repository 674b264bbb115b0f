package localstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/replog/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func planned() []models.ExerciseEntry {
	return []models.ExerciseEntry{
		{
			ExerciseName: "Goblet Squat",
			Section:      models.SectionMain,
			Target:       models.Target{Sets: 3, Reps: "10", Value: "35", Unit: models.UnitLb},
		},
		{
			ExerciseName: "Band Pull-Apart",
			Section:      "Warmup",
			Target:       models.Target{Sets: 2, Reps: "15", Unit: models.UnitBand},
		},
		{ExerciseName: "Dead Bug", Section: ""},
	}
}

// TestCreateAndLoad verifies planned entries come back in order, clean, with
// ids assigned, sections normalized and targets intact.
func TestCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, stored, err := s.CreateSession(ctx, "Lower Body A", planned())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d entries, want 3", len(stored))
	}

	got, err := s.LoadEntries(ctx, id)
	if err != nil {
		t.Fatalf("LoadEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.ID == "" || e.ID != stored[i].ID {
			t.Errorf("entry %d id = %q, want %q", i, e.ID, stored[i].ID)
		}
		if e.Order != i+1 {
			t.Errorf("entry %d order = %d, want %d", i, e.Order, i+1)
		}
		if e.Dirty {
			t.Errorf("entry %d should be clean", i)
		}
		if e.Sets == nil || len(e.Sets) != 0 {
			t.Errorf("entry %d sets = %v, want empty", i, e.Sets)
		}
	}
	if got[1].Section != models.SectionWarmup {
		t.Errorf("section = %q, want warmup", got[1].Section)
	}
	if got[2].Section != models.SectionMain {
		t.Errorf("untagged section = %q, want main", got[2].Section)
	}
	if got[0].Target.Value != "35" || got[0].Target.Sets != 3 {
		t.Errorf("target = %+v", got[0].Target)
	}

	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.Name != "Lower Body A" || sess.FinishedAt != nil {
		t.Errorf("session = %+v", sess)
	}
}

// TestSaveEntries verifies saved fields round-trip and unknown ids are left
// out of the acknowledgement.
func TestSaveEntries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, stored, err := s.CreateSession(ctx, "A", planned())
	if err != nil {
		t.Fatal(err)
	}

	updates := []models.EntryUpdate{
		{
			ID: stored[0].ID,
			Sets: []models.SetRecord{
				{Reps: intPtr(10), Value: floatPtr(35), Unit: models.UnitLb, Completed: true},
			},
			RPE:      floatPtr(7.5),
			PainFlag: true,
			Notes:    "knee ok",
		},
		{ID: "missing", Sets: []models.SetRecord{}},
	}
	saved, err := s.SaveEntries(ctx, id, updates)
	if err != nil {
		t.Fatalf("SaveEntries: %v", err)
	}
	if len(saved) != 1 || saved[0] != stored[0].ID {
		t.Errorf("saved = %v, want [%s]", saved, stored[0].ID)
	}

	got, err := s.LoadEntries(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	e := got[0]
	if len(e.Sets) != 1 || *e.Sets[0].Reps != 10 || *e.Sets[0].Value != 35 || !e.Sets[0].Completed {
		t.Errorf("sets = %+v", e.Sets)
	}
	if e.RPE == nil || *e.RPE != 7.5 {
		t.Errorf("rpe = %v, want 7.5", e.RPE)
	}
	if !e.PainFlag || e.Notes != "knee ok" {
		t.Errorf("pain = %v notes = %q", e.PainFlag, e.Notes)
	}
	if got[1].RPE != nil {
		t.Errorf("untouched entry rpe = %v, want nil", *got[1].RPE)
	}
}

// TestSaveEntriesWrongSession verifies an entry id is only saved under its
// own session.
func TestSaveEntriesWrongSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, stored, err := s.CreateSession(ctx, "A", planned())
	if err != nil {
		t.Fatal(err)
	}
	other, _, err := s.CreateSession(ctx, "B", nil)
	if err != nil {
		t.Fatal(err)
	}

	saved, err := s.SaveEntries(ctx, other, []models.EntryUpdate{{ID: stored[0].ID, Notes: "x"}})
	if err != nil {
		t.Fatalf("SaveEntries: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("saved = %v, want none", saved)
	}
}

// TestFinishedSessionIsReadOnly verifies saves after finishing are skipped and
// finishing twice keeps the first finish time.
func TestFinishedSessionIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	id, stored, err := s.CreateSession(ctx, "A", planned())
	if err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return start.Add(47*time.Minute + 40*time.Second) }
	minutes, err := s.FinishSession(ctx, id)
	if err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	if minutes != 48 {
		t.Errorf("minutes = %d, want 48", minutes)
	}

	s.now = func() time.Time { return start.Add(2 * time.Hour) }
	again, err := s.FinishSession(ctx, id)
	if err != nil {
		t.Fatalf("second FinishSession: %v", err)
	}
	if again != 48 {
		t.Errorf("second finish minutes = %d, want 48", again)
	}

	saved, err := s.SaveEntries(ctx, id, []models.EntryUpdate{{ID: stored[0].ID, Notes: "late"}})
	if err != nil {
		t.Fatalf("SaveEntries: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("saved = %v, want none after finish", saved)
	}
}

// TestAddEntry verifies ad hoc entries are appended after the last order.
func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, _, err := s.CreateSession(ctx, "A", planned())
	if err != nil {
		t.Fatal(err)
	}

	e, err := s.AddEntry(ctx, id, models.ExerciseEntry{ExerciseName: "Farmer Carry", Section: models.SectionCore})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if e.ID == "" || e.Order != 4 {
		t.Errorf("entry = %+v, want id set and order 4", e)
	}

	got, err := s.LoadEntries(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || got[3].ExerciseName != "Farmer Carry" {
		t.Errorf("entries = %+v", got)
	}
}

// TestUnknownSession verifies lookups of unknown sessions return ErrNotFound.
func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.LoadEntries(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadEntries err = %v, want ErrNotFound", err)
	}
	if _, err := s.AddEntry(ctx, "nope", models.ExerciseEntry{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddEntry err = %v, want ErrNotFound", err)
	}
	if _, err := s.FinishSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishSession err = %v, want ErrNotFound", err)
	}
}

// TestListSessions verifies sessions are listed newest first.
func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		s.now = func() time.Time { return base.Add(time.Duration(i) * 24 * time.Hour) }
		id, _, err := s.CreateSession(ctx, "S", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	got, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sessions, want 3", len(got))
	}
	if got[0].ID != ids[2] || got[2].ID != ids[0] {
		t.Errorf("order = %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}
