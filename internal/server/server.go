package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
)

// Server provides health check, metrics and alert API endpoints.
type Server struct {
	storage storage.Storage
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server.
func NewServer(store storage.Storage, logger *slog.Logger) *Server {
	s := &Server{
		storage: store,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleListAlerts)
	s.mux.HandleFunc("GET /api/v1/alerts/{fingerprint}", s.handleGetAlert)
	s.mux.HandleFunc("POST /api/v1/alerts/{fingerprint}/resolve", s.handleResolveAlert)
	s.mux.HandleFunc("GET /api/v1/licenses/latest", s.handleLatestLicenses)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"time_utc": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := model.AlertFilter{
		ConditionType: q.Get("condition_type"),
		Subject:       q.Get("subject"),
	}
	if status := q.Get("status"); status != "" {
		filter.Status = model.ParseStatus(status)
	}

	records, err := s.storage.ListAlerts(ctx, filter)
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.AlertRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	record, err := s.storage.GetAlert(ctx, r.PathValue("fingerprint"))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get alert", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	fp := r.PathValue("fingerprint")
	err := s.storage.SetAlertStatus(ctx, fp, model.StatusResolved)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("resolve alert", "fingerprint", fp, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("alert resolved", "fingerprint", fp)
	w.WriteHeader(http.StatusNoContent)
}

type latestLicensesResponse struct {
	CapturedAt time.Time               `json:"captured_at"`
	Licenses   []model.LicenseSnapshot `json:"licenses"`
}

func (s *Server) handleLatestLicenses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	capturedAt, snaps, err := s.storage.LatestSnapshots(ctx)
	if errors.Is(err, storage.ErrNoSnapshots) {
		http.Error(w, "no license snapshots", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("latest snapshots", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, latestLicensesResponse{CapturedAt: capturedAt, Licenses: snaps})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
