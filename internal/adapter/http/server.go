// Package http exposes the service's operational and location endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/scheduler"
)

// LocationService is the scheduler surface the HTTP layer needs.
type LocationService interface {
	CurrentBestLocation() (domain.LocationSnapshot, bool)
	IsFresh(domain.LocationSnapshot) bool
	ForceUpdate(ctx context.Context) (domain.LocationSnapshot, error)
	NextUpdateTimes() []scheduler.SlotTime
	Stats() (domain.UpdateStats, error)
	History(n int) ([]domain.UpdateRecord, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and location HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    LocationService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, service LocationService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /location", s.handleLocation)
	mux.HandleFunc("POST /update", s.handleUpdate)
	mux.HandleFunc("GET /schedule", s.handleSchedule)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /history", s.handleHistory)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// locationResponse is a snapshot annotated with its freshness at serve time.
type locationResponse struct {
	domain.LocationSnapshot
	Fresh bool `json:"fresh"`
}

func (s *Server) handleLocation(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := s.service.CurrentBestLocation()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no location known yet"})
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		LocationSnapshot: snapshot,
		Fresh:            s.service.IsFresh(snapshot),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.ForceUpdate(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrPositionPermissionDenied) {
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		LocationSnapshot: snapshot,
		Fresh:            true,
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slots": s.service.NextUpdateTimes()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := domain.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.service.History(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []domain.UpdateRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
