package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/storage"
	"github.com/claude/hevysync/internal/syncer"
)

// Pipeline is the part of *syncer.Syncer the API drives.
type Pipeline interface {
	Run(ctx context.Context, targets syncer.Targets) (*syncer.Stats, error)
	PreviewWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error)
	PreviewRoutines(ctx context.Context, limit int) ([]models.RoutineRow, error)
}

// RunLister reads the sync run ledger.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]storage.SyncRun, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	pipeline Pipeline
	runs     RunLister
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	// running guards against overlapping syncs within this process.
	running sync.Mutex
}

// New creates a new Server with all routes configured. runs may be nil when
// no ledger is configured.
func New(pipeline Pipeline, runs RunLister, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		runs:     runs,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
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
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/sync", s.handleSync)
		r.Get("/runs", s.handleListRuns)
		r.Get("/preview/{kind}", s.handlePreview)
	})
}
