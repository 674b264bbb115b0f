package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/replog/internal/format"
	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List logged training sessions, newest first. Returns session id, name, date, start/finish times and duration in minutes."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to 20, at most 200.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get one session with every exercise entry grouped by section (warmup, main, core, cooldown). Each entry has raw sets, RPE, pain flag and notes, plus the planned target, logged sets and last session's sets as short display strings."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id (UUID) from list_sessions")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Recent logged entries of one exercise across sessions, newest first, with sets, RPE, pain flag and notes."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise id (UUID) or name (case-insensitive; a unique partial name also works)")),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return. Defaults to 10.")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List planned workout templates with descriptions and tags."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a workout template with its planned exercises in order, including sets, reps, load and coaching notes."),
	mcp.WithString("workout", mcp.Required(), mcp.Description("Workout id (UUID) or name (case-insensitive; a unique partial name also works)")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises with ids, categories and descriptions."),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Logged work per week or month, newest first: sessions, minutes, entries, completed sets, total reps, volume (reps x load) in lb and kg, pain flags and average RPE."),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to 12 weeks before end.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD), exclusive. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period: week (default) or month")),
)

// --- Response shapes ---

type entryDetail struct {
	models.ExerciseEntry
	TargetText      string `json:"target_text"`
	SetsText        string `json:"sets_text"`
	LastSessionText string `json:"last_session_text,omitempty"`
}

type sectionDetail struct {
	Name    models.Section `json:"name"`
	Entries []entryDetail  `json:"entries"`
}

type sessionDetail struct {
	Session  models.SessionRow `json:"session"`
	Sections []sectionDetail   `json:"sections"`
}

type templateExerciseDetail struct {
	models.TemplateExerciseRow
	TargetText string `json:"target_text"`
}

type workoutDetail struct {
	models.WorkoutRow
	Exercises []templateExerciseDetail `json:"exercises"`
}

// newSessionDetail groups entries by section in display order and adds the
// formatted strings.
func newSessionDetail(view *models.SessionView) sessionDetail {
	bySection := map[models.Section][]entryDetail{}
	for _, e := range view.Entries {
		d := entryDetail{
			ExerciseEntry: e,
			TargetText:    format.Target(e.Target),
			SetsText:      format.Sets(e.Sets),
		}
		if len(e.LastSessionSets) > 0 {
			d.LastSessionText = format.Sets(e.LastSessionSets)
		}
		sec := models.ParseSection(string(e.Section))
		bySection[sec] = append(bySection[sec], d)
	}

	detail := sessionDetail{Session: view.Session, Sections: []sectionDetail{}}
	for _, sec := range models.SectionOrder {
		if entries := bySection[sec]; len(entries) > 0 {
			detail.Sections = append(detail.Sections, sectionDetail{Name: sec, Entries: entries})
		}
	}
	return detail
}

// resolve finds the id of a named item: an exact UUID, an exact
// case-insensitive name, or a unique partial name.
func resolve[T any](ref string, items []T, id func(T) uuid.UUID, name func(T) string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if parsed, err := uuid.Parse(ref); err == nil {
		return parsed, nil
	}
	needle := strings.ToLower(ref)

	var partial []T
	for _, it := range items {
		n := strings.ToLower(name(it))
		if n == needle {
			return id(it), nil
		}
		if strings.Contains(n, needle) {
			partial = append(partial, it)
		}
	}
	switch len(partial) {
	case 0:
		return uuid.Nil, fmt.Errorf("no match for %q", ref)
	case 1:
		return id(partial[0]), nil
	}
	names := make([]string, len(partial))
	for i, it := range partial {
		names[i] = name(it)
	}
	return uuid.Nil, fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(names, ", "))
}

// --- Tool handlers ---

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	uid := UserIDFromContext(ctx)

	sessions, err := h.ds.ListSessions(ctx, limit, uid)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if sessions == nil {
		sessions = []models.SessionRow{}
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + raw), nil
	}

	view, err := h.ds.GetSessionView(ctx, id, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_session", "session", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(newSessionDetail(view))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp get_exercise_history exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	id, err := resolve(ref, exercises,
		func(e models.ExerciseRow) uuid.UUID { return e.ID },
		func(e models.ExerciseRow) string { return e.Name })
	if err != nil {
		return mcp.NewToolResultError("exercise: " + err.Error()), nil
	}

	rows, err := h.ds.ExerciseHistory(ctx, id, req.GetInt("limit", 10), UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_exercise_history", "exercise", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	type historyEntry struct {
		models.HistoryRow
		SetsText string `json:"sets_text"`
	}
	history := make([]historyEntry, len(rows))
	for i, r := range rows {
		history[i] = historyEntry{HistoryRow: r, SetsText: format.Sets(r.Sets)}
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise_id": id,
		"history":     history,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if workouts == nil {
		workouts = []models.WorkoutRow{}
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("workout")
	if err != nil {
		return mcp.NewToolResultError("workout parameter is required"), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp get_workout workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	id, err := resolve(ref, workouts,
		func(w models.WorkoutRow) uuid.UUID { return w.ID },
		func(w models.WorkoutRow) string { return w.Name })
	if err != nil {
		return mcp.NewToolResultError("workout: " + err.Error()), nil
	}

	tmpl, err := h.ds.GetWorkoutTemplate(ctx, id)
	if err != nil {
		h.log.Error("mcp get_workout", "workout", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	detail := workoutDetail{WorkoutRow: tmpl.WorkoutRow, Exercises: make([]templateExerciseDetail, len(tmpl.Exercises))}
	for i, e := range tmpl.Exercises {
		detail.Exercises[i] = templateExerciseDetail{TemplateExerciseRow: e, TargetText: format.Target(e.Target)}
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if exercises == nil {
		exercises = []models.ExerciseRow{}
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	end := h.now()
	if v := req.GetString("end", ""); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return mcp.NewToolResultError("invalid end date: " + v), nil
		}
		end = t
	}
	start := end.AddDate(0, 0, -7*12)
	if v := req.GetString("start", ""); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return mcp.NewToolResultError("invalid start date: " + v), nil
		}
		start = t
	}
	if !start.Before(end) {
		return mcp.NewToolResultError("start must be before end"), nil
	}
	bucket := req.GetString("bucket", "week")
	if bucket != "week" && bucket != "month" {
		return mcp.NewToolResultError("bucket must be week or month"), nil
	}

	periods, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if periods == nil {
		periods = []models.TrainingPeriod{}
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
