// Package server exposes the scan pipeline over HTTP: submit and inspect
// jobs, list leads, and stream exports.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/export"
	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/orchestrator"
	"github.com/reson-group/lead-radar/internal/store"
)

// Server serves the lead-radar HTTP API.
type Server struct {
	cfg   config.ServerConfig
	store store.Store
	orch  *orchestrator.Orchestrator
}

// New wires the API around an orchestrator and its store.
func New(cfg config.ServerConfig, st store.Store, orch *orchestrator.Orchestrator) *Server {
	return &Server{cfg: cfg, store: st, orch: orch}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs/scan", s.handleScan)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Post("/jobs/{jobID}/cancel", s.handleCancelJob)
		r.Get("/leads", s.handleListLeads)
		r.Post("/export", s.handleExport)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var params model.ScanParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.orch.Submit(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.Status(r.Context(), chi.URLParam(r, "jobID"))
	if eris.Is(err, orchestrator.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.orch.Cancel(jobID); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling", "job_id": jobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		State:  model.JobState(r.URL.Query().Get("state")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []model.ScanJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := leadFilterFromQuery(r)
	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	total, err := s.store.CountLeads(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "total": total})
}

// handleExport streams every lead matching the filter in the requested
// format. The filter body mirrors the /v1/leads query parameters.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string           `json:"format"`
		Filter model.LeadFilter `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := req.Filter
	if filter.Limit <= 0 {
		filter.Limit = 10000
	}
	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=leads.%s", format))
	if err := export.Export(w, leads, format); err != nil {
		// Headers are gone; all we can do is log.
		zap.L().Error("export stream failed", zap.Error(err))
	}
}

func contentType(f export.Format) string {
	switch f {
	case export.FormatCSV:
		return "text/csv"
	case export.FormatJSONL:
		return "application/x-ndjson"
	case export.FormatMarkdown:
		return "text/markdown"
	case export.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func leadFilterFromQuery(r *http.Request) model.LeadFilter {
	q := r.URL.Query()
	return model.LeadFilter{
		Band:     model.PriorityBand(q.Get("band")),
		Country:  q.Get("country"),
		Tag:      q.Get("tag"),
		MinScore: queryIntQ(q.Get("min_score")),
		Limit:    queryIntQ(q.Get("limit")),
		Offset:   queryIntQ(q.Get("offset")),
	}
}

func queryInt(r *http.Request, key string) int {
	return queryIntQ(r.URL.Query().Get(key))
}

func queryIntQ(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
