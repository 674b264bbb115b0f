package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
)

// TemplateTargetRequest is the body of PATCH /workouts/{id}/exercises/{row}.
// Weight, when set, is a free-form template weight such as "125 lb" or "bw"
// and takes precedence over target_value and target_unit.
type TemplateTargetRequest struct {
	models.Target
	Weight *string `json:"target_weight,omitempty"`
}

// normalize resolves the weight shorthand and unit aliases.
func (req TemplateTargetRequest) normalize() (models.Target, error) {
	t := req.Target
	if req.Weight != nil {
		t.Value, t.Unit = models.ParseTargetWeight(*req.Weight)
	}
	if t.Sets < 0 {
		return t, errors.New("target_sets must not be negative")
	}
	if t.Unit != "" {
		u, ok := models.ParseUnit(string(t.Unit))
		if !ok {
			return t, fmt.Errorf("unknown unit %q", t.Unit)
		}
		t.Unit = u
	}
	if t.DistanceUnit != "" {
		d, ok := models.ParseDistanceUnit(string(t.DistanceUnit))
		if !ok {
			return t, fmt.Errorf("unknown distance unit %q", t.DistanceUnit)
		}
		t.DistanceUnit = d
	}
	return t, nil
}

func (s *Server) handleAddTemplateExercise(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathUUID(w, r, "workout")
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

	row, err := s.db.AddTemplateExercise(r.Context(), workoutID, exerciseID, req.Section)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleReorderTemplate(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathUUID(w, r, "workout")
	if !ok {
		return
	}
	var orders []models.TemplateOrder
	if err := decodeBody(r, &orders); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	seen := make(map[int]bool, len(orders))
	for _, o := range orders {
		if o.Order < 1 || seen[o.Order] {
			writeError(w, http.StatusBadRequest, "orders must be positive and distinct")
			return
		}
		seen[o.Order] = true
	}

	if err := s.db.ReorderTemplate(r.Context(), workoutID, orders); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(orders)})
}

func (s *Server) handleUpdateTemplateTarget(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathUUID(w, r, "workout")
	if !ok {
		return
	}
	rowID, ok := pathParamUUID(w, r, "row", "workout exercise")
	if !ok {
		return
	}
	var req TemplateTargetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	target, err := req.normalize()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := s.db.UpdateTemplateTarget(r.Context(), workoutID, rowID, target)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteTemplateExercise(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathUUID(w, r, "workout")
	if !ok {
		return
	}
	rowID, ok := pathParamUUID(w, r, "row", "workout exercise")
	if !ok {
		return
	}
	if err := s.db.DeleteTemplateExercise(r.Context(), workoutID, rowID); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": rowID.String()})
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := s.db.ListPrograms(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// CreateProgramRequest is the body of POST /programs.
type CreateProgramRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := s.db.CreateProgram(r.Context(), name, req.Description)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.log.Info("program created", "program", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := pathUUID(w, r, "program")
	if !ok {
		return
	}
	if err := s.db.DeleteProgram(r.Context(), programID); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": programID.String()})
}

func (s *Server) handleSetProgramActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, ok := pathUUID(w, r, "program")
		if !ok {
			return
		}
		if err := s.db.SetProgramActive(r.Context(), programID, active); err != nil {
			s.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": programID, "active": active})
	}
}

// AddProgramWorkoutRequest is the body of POST /programs/{id}/workouts.
type AddProgramWorkoutRequest struct {
	WorkoutID string `json:"workout_id"`
}

func (s *Server) handleAddProgramWorkout(w http.ResponseWriter, r *http.Request) {
	programID, ok := pathUUID(w, r, "program")
	if !ok {
		return
	}
	var req AddProgramWorkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	workoutID, err := uuid.Parse(req.WorkoutID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout ID")
		return
	}

	pw, err := s.db.AddProgramWorkout(r.Context(), programID, workoutID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pw)
}

func (s *Server) handleRemoveProgramWorkout(w http.ResponseWriter, r *http.Request) {
	programID, ok := pathUUID(w, r, "program")
	if !ok {
		return
	}
	dayID, ok := pathParamUUID(w, r, "day", "program workout")
	if !ok {
		return
	}
	if err := s.db.RemoveProgramWorkout(r.Context(), programID, dayID); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": dayID.String()})
}
