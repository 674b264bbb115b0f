package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes bounds request bodies; a full session of entries is far smaller.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathUUID(w, r, "exercise")
	if !ok {
		return
	}
	if _, err := s.db.GetExercise(r.Context(), exerciseID); err != nil {
		s.storeError(w, err)
		return
	}
	history, err := s.db.ExerciseHistory(r.Context(), exerciseID, queryLimit(r), userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.db.ListWorkouts(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathUUID(w, r, "workout")
	if !ok {
		return
	}
	tmpl, err := s.db.GetWorkoutTemplate(r.Context(), workoutID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.db.ListSessions(r.Context(), queryLimit(r), userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// StartSessionRequest is the body of POST /sessions. An empty body starts a
// freestyle session.
type StartSessionRequest struct {
	WorkoutID string `json:"workout_id,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var workoutID *uuid.UUID
	if req.WorkoutID != "" {
		id, err := uuid.Parse(req.WorkoutID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid workout ID")
			return
		}
		workoutID = &id
	}

	uid := userIDFromContext(r)
	sess, err := s.db.StartSession(r.Context(), workoutID, uid)
	if err != nil {
		s.storeError(w, err)
		return
	}
	view, err := s.db.GetSessionView(r.Context(), sess.ID, uid)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.log.Info("session started", "session", sess.ID, "entries", len(view.Entries), "user", uid)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "session")
	if !ok {
		return
	}
	view, err := s.db.GetSessionView(r.Context(), sessionID, userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddEntryRequest is the body of POST /sessions/{id}/entries.
type AddEntryRequest struct {
	ExerciseID string         `json:"exercise_id"`
	Section    models.Section `json:"section"`
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "session")
	if !ok {
		return
	}
	var req AddEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	exerciseID, err := uuid.Parse(req.ExerciseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exercise ID")
		return
	}

	entry, err := s.db.AddEntry(r.Context(), sessionID, exerciseID, req.Section, userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleSaveEntries(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "session")
	if !ok {
		return
	}
	var updates []models.EntryUpdate
	if err := decodeBody(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	saved, err := s.db.SaveEntries(r.Context(), sessionID, updates, userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if len(saved) < len(updates) {
		s.log.Warn("entries not saved", "session", sessionID, "sent", len(updates), "saved", len(saved))
	}
	writeJSON(w, http.StatusOK, models.SaveResult{Saved: saved})
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "session")
	if !ok {
		return
	}
	sess, err := s.db.FinishSession(r.Context(), sessionID, s.now(), userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.log.Info("session finished", "session", sess.ID, "duration_minutes", sess.DurationMinutes)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time range: "+err.Error())
		return
	}
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "week"
	}
	if bucket != "week" && bucket != "month" {
		writeError(w, http.StatusBadRequest, "bucket must be week or month")
		return
	}

	periods, err := s.db.GetTrainingSummary(r.Context(), start, end, bucket, userIDFromContext(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// storeError maps storage errors onto status codes.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrSessionFinished), errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("store error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathUUID parses the {id} URL parameter, answering 400 when malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	return pathParamUUID(w, r, "id", what)
}

func pathParamUUID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads ?limit=, returning 0 (store default) when absent or invalid.
func queryLimit(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

// parseTimeRange reads ?start= and ?end= as RFC 3339 or YYYY-MM-DD.
// Defaults to the twelve weeks before now.
func parseTimeRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	end = now
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	start = end.AddDate(0, 0, -7*12)
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("start must be before end")
	}
	return start, end, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
