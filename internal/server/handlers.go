package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/hevysync/internal/hevy"
	"github.com/claude/hevysync/internal/syncer"
	"github.com/claude/hevysync/internal/transform"
)

const (
	defaultPreviewLimit = 20
	defaultRunsLimit    = 50
	maxLimit            = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	targets, err := syncer.ParseTargets(r.URL.Query().Get("target"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if !s.running.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a sync is already running"})
		return
	}
	defer s.running.Unlock()

	// A disconnecting client must not interrupt an overwrite between its
	// purge and its inserts.
	stats, err := s.pipeline.Run(context.WithoutCancel(r.Context()), targets)
	if err != nil {
		s.log.Error("sync error", "target", targets.String(), "error", err)
		writeJSON(w, errorStatus(err), map[string]any{"error": err.Error(), "stats": stats})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no run ledger configured"})
		return
	}
	limit, err := parseLimit(r, defaultRunsLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultPreviewLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var rows any
	switch kind := chi.URLParam(r, "kind"); kind {
	case "workouts":
		rows, err = s.pipeline.PreviewWorkouts(r.Context(), limit)
	case "routines":
		rows, err = s.pipeline.PreviewRoutines(r.Context(), limit)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown preview kind: " + kind})
		return
	}
	if err != nil {
		s.log.Error("preview error", "error", err)
		writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// errorStatus maps pipeline failures onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, hevy.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, transform.ErrMalformedTimestamp):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxLimit), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
