package mcp

import (
	"context"
	"time"

	"github.com/claude/replog/internal/client"
	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and *client.Client (remote via REST API) satisfy this interface.
type DataSource interface {
	ListSessions(ctx context.Context, limit, userID int) ([]models.SessionRow, error)
	GetSessionView(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionView, error)
	ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit, userID int) ([]models.HistoryRow, error)
	ListExercises(ctx context.Context) ([]models.ExerciseRow, error)
	ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error)
	GetWorkoutTemplate(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutTemplate, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]models.TrainingPeriod, error)
}

// Compile-time checks.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*client.Client)(nil)
)
