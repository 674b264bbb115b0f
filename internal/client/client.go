// Package client talks to the RepLog REST API. It is the sync adapter for
// loggers that run away from the database, and the remote data source for
// the MCP server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s returned %d: %s", e.Path, e.Code, strings.TrimSpace(e.Body))
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client calls the RepLog REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// New creates a Client targeting baseURL, authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		attempts:   3,
		backoff:    time.Second,
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// retry repeats an idempotent call with exponential backoff. Client errors
// (4xx) are returned at once.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << (attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("after %d attempts: %w", attempt, errors.Join(lastErr, ctx.Err()))
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var se *StatusError
		if errors.As(lastErr, &se) && se.Code < 500 {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

func limitParams(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

// StartSession starts a session, from a workout template when workoutID is set.
func (c *Client) StartSession(ctx context.Context, workoutID *uuid.UUID) (*models.SessionView, error) {
	req := map[string]string{}
	if workoutID != nil {
		req["workout_id"] = workoutID.String()
	}
	var view models.SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetSession loads a session with its entries.
func (c *Client) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionView, error) {
	var view models.SessionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetSessionView is GetSession under the data source signature; the server
// scopes by the caller's identity, so the user id is unused.
func (c *Client) GetSessionView(ctx context.Context, sessionID uuid.UUID, _ int) (*models.SessionView, error) {
	return c.GetSession(ctx, sessionID)
}

// SaveEntries sends an autosave batch and returns the ids the server saved.
// Network failures and 5xx answers are retried.
func (c *Client) SaveEntries(ctx context.Context, sessionID string, updates []models.EntryUpdate) ([]string, error) {
	if updates == nil {
		updates = []models.EntryUpdate{}
	}
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/entries"

	var res models.SaveResult
	err := c.retry(ctx, func() error {
		return c.do(ctx, http.MethodPatch, path, nil, updates, &res)
	})
	if err != nil {
		return nil, err
	}
	return res.Saved, nil
}

// AddEntry appends an ad hoc exercise to a session.
func (c *Client) AddEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section) (*models.ExerciseEntry, error) {
	req := map[string]string{"exercise_id": exerciseID.String(), "section": string(section)}
	var entry models.ExerciseEntry
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/entries", nil, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FinishSession closes a session.
func (c *Client) FinishSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionRow, error) {
	var row models.SessionRow
	err := c.retry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/finish", nil, nil, &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (c *Client) ListSessions(ctx context.Context, limit, _ int) ([]models.SessionRow, error) {
	var rows []models.SessionRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions", limitParams(limit), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit, _ int) ([]models.HistoryRow, error) {
	var rows []models.HistoryRow
	path := "/api/v1/exercises/" + exerciseID.String() + "/history"
	if err := c.do(ctx, http.MethodGet, path, limitParams(limit), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	var rows []models.ExerciseRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/exercises", nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error) {
	var rows []models.WorkoutRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts", nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetWorkoutTemplate loads a workout with its planned exercises.
func (c *Client) GetWorkoutTemplate(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutTemplate, error) {
	var tmpl models.WorkoutTemplate
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+workoutID.String(), nil, nil, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// GetTrainingSummary returns logged work per week or month in [start, end).
func (c *Client) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]models.TrainingPeriod, error) {
	params := url.Values{
		"start":  {start.Format(time.RFC3339)},
		"end":    {end.Format(time.RFC3339)},
		"bucket": {bucket},
	}
	var periods []models.TrainingPeriod
	if err := c.do(ctx, http.MethodGet, "/api/v1/summary", params, nil, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}
