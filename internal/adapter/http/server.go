package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-fusion-service/internal/dashboard"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

// FusionTrigger runs a fusion cycle on demand.
type FusionTrigger interface {
	RunOnce(ctx context.Context) (fusion.Result, error)
}

// AlertStatusUpdater applies operator status transitions. A nil alert means not found.
type AlertStatusUpdater interface {
	UpdateAlertStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error)
}

// DashboardReader serves the cached read models.
type DashboardReader interface {
	ActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	Summary(ctx context.Context) (dashboard.Summary, error)
}

// API groups the dependencies of the /v1 routes.
type API struct {
	Fusion      FusionTrigger
	Alerts      AlertStatusUpdater
	Dashboard   DashboardReader
	Invalidator fusion.CacheInvalidator
}

// Server exposes health, readiness, metrics and the operational JSON API.
type Server struct {
	httpServer *http.Server
	api        API
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, api API, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/fusion/run", s.handleRun)
	mux.HandleFunc("GET /v1/alerts/active", s.handleActiveAlerts)
	mux.HandleFunc("GET /v1/dashboard", s.handleDashboard)
	mux.HandleFunc("PATCH /v1/alerts/{id}/status", s.handleAlertStatus)

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

type runResponse struct {
	Clusters         int      `json:"clusters"`
	NewAlerts        []string `json:"new_alerts"`
	UpdatedAlerts    []string `json:"updated_alerts"`
	VerifiedReports  int      `json:"verified_reports"`
	SkippedClusters  int      `json:"skipped_clusters"`
	MalformedReports []string `json:"malformed_reports"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.Fusion.RunOnce(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "fusion cycle failed", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, runResponse{
		Clusters:         len(res.Clusters),
		NewAlerts:        alertIDs(res.NewAlerts),
		UpdatedAlerts:    alertIDs(res.UpdatedAlerts),
		VerifiedReports:  len(res.VerifiedReportIDs),
		SkippedClusters:  res.SkippedClusters,
		MalformedReports: nonNil(res.MalformedReports),
	})
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.api.Dashboard.ActiveAlerts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load active alerts", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.api.Dashboard.Summary(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load dashboard", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, sum)
}

type statusRequest struct {
	Status domain.AlertStatus `json:"status"`
}

func (s *Server) handleAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !req.Status.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid status", errors.New(string(req.Status)))
		return
	}

	alert, err := s.api.Alerts.UpdateAlertStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "update alert status", err)
		return
	}
	if alert == nil {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "alert not found", "id": id})
		return
	}

	s.api.Invalidator.InvalidateActiveAlerts(r.Context())
	s.api.Invalidator.InvalidateDashboardData(r.Context())
	s.logger.Info("alert status changed", "alert_id", id, "status", req.Status)
	sharedobs.WriteJSON(w, http.StatusOK, alert)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg, "detail": err.Error()})
}

func alertIDs(alerts []domain.Alert) []string {
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
