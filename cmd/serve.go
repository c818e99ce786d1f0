package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/benchmark"
	"github.com/sourcelens/audit-cli/internal/catalog"
	"github.com/sourcelens/audit-cli/internal/jobs"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/pipeline"
	"github.com/sourcelens/audit-cli/internal/store"
)

var (
	servePort    int
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the question service and audit API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAuditEnv(ctx, cfg.Observation.Enabled, false)
		if err != nil {
			return err
		}
		defer env.Close()

		queue := jobs.NewMemoryQueue(serveWorkers)
		defer queue.Close()

		audits := jobs.NewAuditService(queue, pipeline.New(cfg, env.Store, env.Observer))
		srv := newServer(catalog.Default(), audits)

		scheduler := jobs.NewTimerScheduler(queue)
		defer scheduler.Close()
		if env.Store != nil {
			schedulePrune(ctx, scheduler, env.Store, time.Hour)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 2, "concurrent audit jobs")
	rootCmd.AddCommand(serveCmd)
}

// schedulePrune registers a snapshot cache prune that reschedules itself
// after each firing until the server context is cancelled.
func schedulePrune(ctx context.Context, sched jobs.Scheduler, st store.Store, every time.Duration) {
	_, err := sched.Schedule(time.Now().Add(every), func(jobCtx context.Context) (any, error) {
		deleted, err := st.DeleteExpiredSnapshots(jobCtx)
		if err != nil {
			return nil, err
		}
		if deleted > 0 {
			zap.L().Info("pruned expired snapshots", zap.Int("deleted", deleted))
		}
		if ctx.Err() == nil {
			schedulePrune(ctx, sched, st, every)
		}
		return deleted, nil
	}, map[string]string{"task": "snapshot-prune"})
	if err != nil {
		zap.L().Warn("failed to schedule snapshot prune", zap.Error(err))
	}
}

// server holds the HTTP handlers and their collaborators.
type server struct {
	catalog *catalog.Catalog
	audits  *jobs.AuditService
}

func newServer(cat *catalog.Catalog, audits *jobs.AuditService) *server {
	return &server{catalog: cat, audits: audits}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(cfg.Server.AuthToken))

		r.Route("/questions", func(r chi.Router) {
			r.Get("/universal", s.handleListQuestions)
			r.Get("/universal/{id}", s.handleGetQuestion)
			r.Get("/stats", s.handleQuestionStats)
			r.Get("/categories", s.handleCategories)
			r.Get("/difficulties", s.handleDifficulties)
			r.Post("/generate", s.handleGenerateQuestions)
		})

		r.Route("/audits", func(r chi.Router) {
			r.Post("/", s.handleCreateAudit)
			r.Get("/{jobID}", s.handleGetAudit)
			r.Delete("/{jobID}", s.handleCancelAudit)
		})
	})

	return r
}

// requestLogger logs each request with its duration and status.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// bearerAuth requires "Authorization: Bearer <token>". An empty configured
// token disables authentication.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"catalog_version": catalog.Version,
	})
}

func (s *server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	difficulty := r.URL.Query().Get("difficulty")

	questions, err := filterQuestions(s.catalog, category, difficulty)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"questions": questions,
		"count":     len(questions),
	})
}

func (s *server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, ok := s.catalog.ByID(id)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown question id %q", id))
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *server) handleQuestionStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Stats())
}

func (s *server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, model.Categories())
}

func (s *server) handleDifficulties(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, model.Difficulties())
}

// handleGenerateQuestions accepts the site context as query parameters, as a
// JSON body, or both; query values win. The body is the only way to pass
// page_texts, which query strings are too small for.
func (s *server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		model.SiteContext
		MaxQuestions   int   `json:"max_questions"`
		IncludeDerived *bool `json:"include_derived"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	params := r.URL.Query()
	if v := params.Get("company_name"); v != "" {
		req.CompanyName = v
	}
	if v := params.Get("domain"); v != "" {
		req.Domain = v
	}
	if v := params.Get("title"); v != "" {
		req.Title = v
	}
	if v := params.Get("description"); v != "" {
		req.Description = v
	}
	if vs := params["schema_types"]; len(vs) > 0 {
		req.SchemaTypes = append(req.SchemaTypes, vs...)
	}

	includeDerived := true
	if req.IncludeDerived != nil {
		includeDerived = *req.IncludeDerived
	}
	if v := params.Get("include_derived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid include_derived")
			return
		}
		includeDerived = b
	}

	if req.CompanyName == "" {
		respondError(w, http.StatusBadRequest, "company_name is required")
		return
	}

	opts := catalog.DeriveOptions{
		MaxQuestions:        cfg.Catalog.MaxQuestions,
		MinKeywordFrequency: cfg.Catalog.MinKeywordFrequency,
	}
	if req.MaxQuestions > 0 {
		opts.MaxQuestions = req.MaxQuestions
	}

	set, err := s.catalog.GenerateForSite(req.SiteContext, opts)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !includeDerived {
		set.Derived = nil
	}
	respondJSON(w, http.StatusOK, set)
}

// auditRequest is the POST /audits body.
type auditRequest struct {
	CompanyName string                  `json:"company_name"`
	Domain      string                  `json:"domain"`
	Pages       []pipeline.SnapshotPage `json:"pages"`
	Competitors []struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	} `json:"competitors,omitempty"`
}

func (s *server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyName == "" {
		respondError(w, http.StatusBadRequest, "company_name is required")
		return
	}
	if len(req.Pages) == 0 {
		respondError(w, http.StatusBadRequest, "pages are required")
		return
	}

	snap := &pipeline.SnapshotFile{
		CompanyName: req.CompanyName,
		Domain:      req.Domain,
		Pages:       req.Pages,
	}
	in := pipeline.Input{
		SiteID:      req.Domain,
		CompanyName: req.CompanyName,
		Domain:      req.Domain,
		Pages:       snap.ExtractedPages(),
	}
	for _, c := range req.Competitors {
		in.Competitors = append(in.Competitors, benchmark.Competitor{Name: c.Name, Domain: c.Domain})
	}

	jobID, err := s.audits.EnqueueAudit(in)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(jobs.StatusQueued),
	})
}

func (s *server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	info, err := s.audits.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *server) handleCancelAudit(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !s.audits.Cancel(jobID) {
		respondError(w, http.StatusConflict, fmt.Sprintf("job %s cannot be cancelled", jobID))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(jobs.StatusCanceled),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
