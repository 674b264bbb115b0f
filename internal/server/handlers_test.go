package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

const testKey = "test-key"

var (
	workoutID  = uuid.MustParse("7b1d0a3e-5f0c-4d7e-9a51-1f6f0c2b9e11")
	sessionID  = uuid.MustParse("2c9a6b1e-0a4f-4b55-8d2e-6c3e9f7d5a01")
	exerciseID = uuid.MustParse("9e0f4c2a-7d1b-4a36-b8c5-3d2e1f0a9b77")
	entryID    = "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
)

// fakeStore is an in-memory Store with one workout, one exercise and at most
// one session.
type fakeStore struct {
	session     *models.SessionView
	finished    bool
	savedUser   int
	savedBatch  []models.EntryUpdate
	histLimit   int
	err         error
	pingErr     error
	finishedAt  time.Time
	userLookups []string
	summary     struct {
		start, end time.Time
		bucket     string
	}

	reordered []models.TemplateOrder
	target    models.Target
	programs  []models.Program
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	f.userLookups = append(f.userLookups, login)
	return 7, nil
}

func (f *fakeStore) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	return []models.ExerciseRow{{ID: exerciseID, Name: "Leg Press"}}, f.err
}

func (f *fakeStore) GetExercise(ctx context.Context, id uuid.UUID) (*models.ExerciseRow, error) {
	if id != exerciseID {
		return nil, storage.ErrNotFound
	}
	return &models.ExerciseRow{ID: id, Name: "Leg Press"}, nil
}

func (f *fakeStore) ExerciseHistory(ctx context.Context, id uuid.UUID, limit, userID int) ([]models.HistoryRow, error) {
	f.histLimit = limit
	return []models.HistoryRow{{SessionID: sessionID, Sets: []models.SetRecord{}}}, nil
}

func (f *fakeStore) ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error) {
	return []models.WorkoutRow{{ID: workoutID, Name: "Lower Body A"}}, nil
}

func (f *fakeStore) GetWorkoutTemplate(ctx context.Context, id uuid.UUID) (*models.WorkoutTemplate, error) {
	if id != workoutID {
		return nil, storage.ErrNotFound
	}
	return &models.WorkoutTemplate{WorkoutRow: models.WorkoutRow{ID: id, Name: "Lower Body A"}}, nil
}

func (f *fakeStore) StartSession(ctx context.Context, wid *uuid.UUID, userID int) (*models.SessionRow, error) {
	if wid != nil && *wid != workoutID {
		return nil, storage.ErrNotFound
	}
	row := models.SessionRow{ID: sessionID, WorkoutID: wid, Name: "Lower Body A · Mar 2"}
	var entries []models.ExerciseEntry
	if wid != nil {
		entries = []models.ExerciseEntry{{ID: entryID, ExerciseID: exerciseID.String(), ExerciseName: "Leg Press",
			Section: models.SectionMain, Order: 1, Sets: []models.SetRecord{}}}
	}
	f.session = &models.SessionView{Session: row, Entries: entries}
	return &row, nil
}

func (f *fakeStore) ListSessions(ctx context.Context, limit, userID int) ([]models.SessionRow, error) {
	if f.session == nil {
		return []models.SessionRow{}, nil
	}
	return []models.SessionRow{f.session.Session}, nil
}

func (f *fakeStore) GetSessionView(ctx context.Context, id uuid.UUID, userID int) (*models.SessionView, error) {
	if f.session == nil || id != f.session.Session.ID {
		return nil, storage.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeStore) AddEntry(ctx context.Context, sid, eid uuid.UUID, section models.Section, userID int) (*models.ExerciseEntry, error) {
	if f.finished {
		return nil, storage.ErrSessionFinished
	}
	return &models.ExerciseEntry{ID: uuid.NewString(), ExerciseID: eid.String(), Section: models.ParseSection(string(section)), Order: 2}, nil
}

func (f *fakeStore) SaveEntries(ctx context.Context, sid uuid.UUID, updates []models.EntryUpdate, userID int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.finished {
		return nil, fmt.Errorf("saving entries: %w", storage.ErrSessionFinished)
	}
	f.savedUser = userID
	f.savedBatch = updates
	saved := []string{}
	for _, u := range updates {
		if u.ID == entryID {
			saved = append(saved, u.ID)
		}
	}
	return saved, nil
}

func (f *fakeStore) FinishSession(ctx context.Context, sid uuid.UUID, now time.Time, userID int) (*models.SessionRow, error) {
	if sid != sessionID {
		return nil, storage.ErrNotFound
	}
	f.finishedAt = now
	return &models.SessionRow{ID: sid, FinishedAt: &now, DurationMinutes: 48}, nil
}

func (f *fakeStore) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]models.TrainingPeriod, error) {
	f.summary.start, f.summary.end, f.summary.bucket = start, end, bucket
	return []models.TrainingPeriod{{Period: "2026-02-23", Sessions: 2, CompletedSets: 18}}, nil
}

func newTestAPI(t *testing.T, store *fakeStore) *Server {
	t.Helper()
	s := New(store, testKey, slog.New(slog.DiscardHandler))
	s.now = func() time.Time { return time.Date(2026, 3, 2, 18, 48, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestHealthz verifies the health endpoint needs no key and reflects the
// database state.
func TestHealthz(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	store.pingErr = errors.New("down")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// TestAPIRequiresKey verifies /api/v1 routes reject requests without a key.
func TestAPIRequiresKey(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	rec := do(t, s, http.MethodGet, "/api/v1/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" || info.DisplayName != "Local Dev User" {
		t.Errorf("info = %+v", info)
	}
}

// TestTailnetSkipsAPIKey verifies that once the tailnet identifies the
// caller, no API key is needed and work is attributed to that user.
func TestTailnetSkipsAPIKey(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)
	s.SetTailscale(fakeWhoIs{login: "alice@example.com", name: "Alice"})
	do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"`+workoutID.String()+`"}`)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/"+sessionID.String()+"/entries",
		strings.NewReader(`[{"id":"`+entryID+`","sets":[]}]`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if store.savedUser != 7 {
		t.Errorf("saved as user %d, want 7", store.savedUser)
	}
	if len(store.userLookups) == 0 || store.userLookups[0] != "alice@example.com" {
		t.Errorf("user lookups = %v", store.userLookups)
	}
}

// TestStartSessionFromWorkout verifies a session started from a workout is
// returned with its template entries.
func TestStartSessionFromWorkout(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	rec := do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"`+workoutID.String()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	view := decode[models.SessionView](t, rec)
	if view.Session.ID != sessionID {
		t.Errorf("session id = %v", view.Session.ID)
	}
	if len(view.Entries) != 1 || view.Entries[0].ExerciseName != "Leg Press" {
		t.Errorf("entries = %+v", view.Entries)
	}
}

// TestStartSessionFreestyle verifies an empty body starts a session with no
// entries.
func TestStartSessionFreestyle(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	rec := do(t, s, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if view := decode[models.SessionView](t, rec); len(view.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(view.Entries))
	}
}

// TestStartSessionErrors verifies malformed and unknown workout ids.
func TestStartSessionErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"invalid id", `{"workout_id":"abc"}`, http.StatusBadRequest},
		{"unknown workout", `{"workout_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestAPI(t, &fakeStore{})
			if rec := do(t, s, http.MethodPost, "/api/v1/sessions", tc.body); rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

// TestGetSession verifies lookup, 404 for unknown ids and 400 for malformed ones.
func TestGetSession(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)
	do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"`+workoutID.String()+`"}`)

	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown: status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed: status = %d, want 400", rec.Code)
	}
}

// TestSaveEntries verifies the autosave endpoint passes the batch through and
// answers with the acknowledged ids only.
func TestSaveEntries(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)

	body := `[{"id":"` + entryID + `","sets":[{"reps":12,"value":125,"unit":"lb","distance":null,"notes":"","completed":true}],"rpe":8,"pain_flag":false,"notes":""},
		{"id":"` + uuid.NewString() + `","sets":[],"rpe":null,"pain_flag":true,"notes":""}]`
	rec := do(t, s, http.MethodPatch, "/api/v1/sessions/"+sessionID.String()+"/entries", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	res := decode[models.SaveResult](t, rec)
	if !reflect.DeepEqual(res.Saved, []string{entryID}) {
		t.Errorf("saved = %v, want [%s]", res.Saved, entryID)
	}
	if len(store.savedBatch) != 2 {
		t.Fatalf("batch = %d, want 2", len(store.savedBatch))
	}
	first := store.savedBatch[0]
	if first.RPE == nil || *first.RPE != 8 || *first.Sets[0].Reps != 12 {
		t.Errorf("first update = %+v", first)
	}
	if store.savedUser != 1 {
		t.Errorf("user = %d, want dev user 1", store.savedUser)
	}
}

// TestSaveEntriesErrors verifies bad bodies get 400 and store failures 500.
func TestSaveEntriesErrors(t *testing.T) {
	path := "/api/v1/sessions/" + sessionID.String() + "/entries"

	s := newTestAPI(t, &fakeStore{})
	if rec := do(t, s, http.MethodPatch, path, `{"id":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("object body: status = %d, want 400", rec.Code)
	}

	s = newTestAPI(t, &fakeStore{err: errors.New("deadlock")})
	if rec := do(t, s, http.MethodPatch, path, `[]`); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: status = %d, want 500", rec.Code)
	}
}

// TestSaveEntriesFinishedSession verifies autosaves to a finished session are
// refused with 409 rather than acknowledged as an empty save.
func TestSaveEntriesFinishedSession(t *testing.T) {
	path := "/api/v1/sessions/" + sessionID.String() + "/entries"
	s := newTestAPI(t, &fakeStore{finished: true})

	body := `[{"id":"` + entryID + `","sets":[],"rpe":null,"pain_flag":false,"notes":"late"}]`
	rec := do(t, s, http.MethodPatch, path, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodPatch, path, `[]`); rec.Code != http.StatusConflict {
		t.Errorf("empty batch: status = %d, want 409", rec.Code)
	}
}

// TestAddEntry verifies ad hoc entries are created and refused once the
// session is finished.
func TestAddEntry(t *testing.T) {
	path := "/api/v1/sessions/" + sessionID.String() + "/entries"
	body := `{"exercise_id":"` + exerciseID.String() + `","section":"core"}`

	store := &fakeStore{}
	s := newTestAPI(t, store)
	rec := do(t, s, http.MethodPost, path, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if entry := decode[models.ExerciseEntry](t, rec); entry.Section != models.SectionCore {
		t.Errorf("section = %q, want core", entry.Section)
	}

	store.finished = true
	if rec := do(t, s, http.MethodPost, path, body); rec.Code != http.StatusConflict {
		t.Errorf("finished: status = %d, want 409", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, path, `{"exercise_id":"bad"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad exercise: status = %d, want 400", rec.Code)
	}
}

// TestFinishSession verifies the server clock is used to close the session.
func TestFinishSession(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)
	rec := do(t, s, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/finish", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if want := s.now(); !store.finishedAt.Equal(want) {
		t.Errorf("finished at %v, want %v", store.finishedAt, want)
	}
	if row := decode[models.SessionRow](t, rec); row.DurationMinutes != 48 || !row.Finished() {
		t.Errorf("row = %+v", row)
	}
}

// TestExerciseHistory verifies the limit is forwarded and unknown exercises 404.
func TestExerciseHistory(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)

	rec := do(t, s, http.MethodGet, "/api/v1/exercises/"+exerciseID.String()+"/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.histLimit != 5 {
		t.Errorf("limit = %d, want 5", store.histLimit)
	}

	do(t, s, http.MethodGet, "/api/v1/exercises/"+exerciseID.String()+"/history?limit=abc", "")
	if store.histLimit != 0 {
		t.Errorf("invalid limit forwarded as %d, want 0", store.histLimit)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/"+uuid.NewString()+"/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exercise: status = %d, want 404", rec.Code)
	}
}

// TestListEndpoints verifies the catalog endpoints return JSON arrays.
func TestListEndpoints(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	for _, path := range []string{"/api/v1/exercises", "/api/v1/workouts", "/api/v1/sessions"} {
		rec := do(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[") {
			t.Errorf("%s: body = %s, want array", path, rec.Body)
		}
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/workouts/"+workoutID.String(), ""); rec.Code != http.StatusOK {
		t.Errorf("workout: status = %d, want 200", rec.Code)
	}
}

// TestMountMCP verifies the mounted handler sits behind the API key and sees
// the caller's user id.
func TestMountMCP(t *testing.T) {
	s := newTestAPI(t, &fakeStore{})
	var gotUser int
	s.MountMCP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r)
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/mcp", "{}")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if gotUser != storage.DevUserID {
		t.Errorf("user = %d, want %d", gotUser, storage.DevUserID)
	}
}

// TestTrainingSummary verifies the default range and bucket, explicit dates
// and rejected parameters.
func TestTrainingSummary(t *testing.T) {
	store := &fakeStore{}
	s := newTestAPI(t, store)

	rec := do(t, s, http.MethodGet, "/api/v1/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if store.summary.bucket != "week" || store.summary.end.Sub(store.summary.start) != 84*24*time.Hour {
		t.Errorf("summary args = %+v", store.summary)
	}
	periods := decode[[]models.TrainingPeriod](t, rec)
	if len(periods) != 1 || periods[0].CompletedSets != 18 {
		t.Errorf("periods = %+v", periods)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/summary?start=2026-01-01&end=2026-03-01&bucket=month", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if store.summary.bucket != "month" || !store.summary.start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("summary args = %+v", store.summary)
	}

	for _, q := range []string{"?bucket=year", "?start=yesterday", "?start=2026-03-01&end=2026-01-01"} {
		if rec := do(t, s, http.MethodGet, "/api/v1/summary"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}
