package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the persistence the HTTP API needs. *storage.DB satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)

	ListExercises(ctx context.Context) ([]models.ExerciseRow, error)
	GetExercise(ctx context.Context, id uuid.UUID) (*models.ExerciseRow, error)
	ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit, userID int) ([]models.HistoryRow, error)

	ListWorkouts(ctx context.Context) ([]models.WorkoutRow, error)
	GetWorkoutTemplate(ctx context.Context, workoutID uuid.UUID) (*models.WorkoutTemplate, error)
	AddTemplateExercise(ctx context.Context, workoutID, exerciseID uuid.UUID, section models.Section) (*models.TemplateExerciseRow, error)
	UpdateTemplateTarget(ctx context.Context, workoutID, rowID uuid.UUID, target models.Target) (*models.TemplateExerciseRow, error)
	ReorderTemplate(ctx context.Context, workoutID uuid.UUID, orders []models.TemplateOrder) error
	DeleteTemplateExercise(ctx context.Context, workoutID, rowID uuid.UUID) error

	ListPrograms(ctx context.Context) ([]models.Program, error)
	CreateProgram(ctx context.Context, name, description string) (*models.Program, error)
	DeleteProgram(ctx context.Context, programID uuid.UUID) error
	SetProgramActive(ctx context.Context, programID uuid.UUID, active bool) error
	AddProgramWorkout(ctx context.Context, programID, workoutID uuid.UUID) (*models.ProgramWorkout, error)
	RemoveProgramWorkout(ctx context.Context, programID, programWorkoutID uuid.UUID) error

	StartSession(ctx context.Context, workoutID *uuid.UUID, userID int) (*models.SessionRow, error)
	ListSessions(ctx context.Context, limit, userID int) ([]models.SessionRow, error)
	GetSessionView(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionView, error)
	AddEntry(ctx context.Context, sessionID, exerciseID uuid.UUID, section models.Section, userID int) (*models.ExerciseEntry, error)
	SaveEntries(ctx context.Context, sessionID uuid.UUID, updates []models.EntryUpdate, userID int) ([]string, error)
	FinishSession(ctx context.Context, sessionID uuid.UUID, now time.Time, userID int) (*models.SessionRow, error)

	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]models.TrainingPeriod, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	identity func(http.Handler) http.Handler
	now      func() time.Time
}

// New creates a new Server with all routes configured. Requests are
// attributed to the local dev user until SetTailscale is called.
func New(db Store, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		identity: DevIdentity,
		now:      time.Now,
	}
	s.routes()
	return s
}

// SetTailscale attributes requests to the tailnet user that sent them.
// Requests identified this way do not need an API key.
func (s *Server) SetTailscale(whois WhoIsClient) {
	s.identity = TailscaleIdentity(whois, s.db, s.log)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)
		r.Use(s.requireAPIKey)

		r.Get("/me", s.handleMe)

		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}/history", s.handleExerciseHistory)

		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Post("/workouts/{id}/exercises", s.handleAddTemplateExercise)
		r.Patch("/workouts/{id}/exercises", s.handleReorderTemplate)
		r.Patch("/workouts/{id}/exercises/{row}", s.handleUpdateTemplateTarget)
		r.Delete("/workouts/{id}/exercises/{row}", s.handleDeleteTemplateExercise)

		r.Get("/programs", s.handleListPrograms)
		r.Post("/programs", s.handleCreateProgram)
		r.Delete("/programs/{id}", s.handleDeleteProgram)
		r.Post("/programs/{id}/activate", s.handleSetProgramActive(true))
		r.Post("/programs/{id}/deactivate", s.handleSetProgramActive(false))
		r.Post("/programs/{id}/workouts", s.handleAddProgramWorkout)
		r.Delete("/programs/{id}/workouts/{day}", s.handleRemoveProgramWorkout)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/entries", s.handleAddEntry)
		r.Patch("/sessions/{id}/entries", s.handleSaveEntries)
		r.Post("/sessions/{id}/finish", s.handleFinishSession)

		r.Get("/summary", s.handleTrainingSummary)
	})
}

// MountMCP serves an MCP transport at /mcp behind the same identity and
// API key checks as the REST API.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(s.identify, s.requireAPIKey).Handle("/mcp", h)
}

// identify looks the identity middleware up per request so SetTailscale can
// run after New.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.identity(next).ServeHTTP(w, r)
	})
}

// requireAPIKey enforces the API key unless the tailnet already vouched for
// the caller.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	keyed := APIKeyAuth(s.apiKey)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viaTailnet(r) {
			next.ServeHTTP(w, r)
			return
		}
		keyed.ServeHTTP(w, r)
	})
}
