// Package api exposes the conflict and retrieval engines over HTTP.
// Every route is scoped to a team: tenant isolation is enforced by the
// path, not by the caller's honesty.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orgsignal/decision-cli/internal/brief"
	"github.com/orgsignal/decision-cli/internal/conflict"
	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
	"github.com/orgsignal/decision-cli/internal/retrieval"
	"github.com/orgsignal/decision-cli/internal/store"
)

// Server serves the decision-intelligence API.
type Server struct {
	store     store.Store
	detector  *conflict.Detector
	retriever *retrieval.Retriever
	briefer   *brief.Generator
	port      int
}

// New assembles the router. briefer may be nil when no Anthropic key is
// configured; the brief route then answers 503.
func New(st store.Store, detector *conflict.Detector, retriever *retrieval.Retriever, briefer *brief.Generator, port int) *Server {
	return &Server{store: st, detector: detector, retriever: retriever, briefer: briefer, port: port}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/teams/{team}", func(r chi.Router) {
		r.Get("/decisions", s.handleListDecisions)
		r.Get("/conflicts", s.handleConflicts)
		r.Get("/consistency", s.handleConsistency)
		r.Get("/report", s.handleReport)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/brief", s.handleBrief)
	})
	return r
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: listen")
	}
	return nil
}

// handleHealth reports "degraded" rather than failing when the store is
// unreachable: the process is alive, the graph just can't be loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check: store unreachable", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded", "store": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	decisions, err := s.store.ListDecisions(r.Context(), team, 0, 0)
	if err != nil {
		s.writeError(w, team, err)
		return
	}
	if decisions == nil {
		decisions = []model.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	flags, err := s.detector.DetectConflicts(r.Context(), team)
	if err != nil {
		s.writeError(w, team, err)
		return
	}
	if flags == nil {
		flags = []model.ConflictFlag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": flags})
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	metrics, err := s.detector.ConsistencyScore(r.Context(), team)
	if err != nil {
		s.writeError(w, team, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// handleReport runs conflict detection and the consistency score
// concurrently and returns both.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")

	var (
		flags   []model.ConflictFlag
		metrics model.ConsistencyMetrics
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		flags, err = s.detector.DetectConflicts(ctx, team)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = s.detector.ConsistencyScore(ctx, team)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, team, err)
		return
	}
	if flags == nil {
		flags = []model.ConflictFlag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts":   flags,
		"consistency": metrics,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")

	var req struct {
		Query       string `json:"query"`
		TokenBudget int    `json:"token_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if req.TokenBudget <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token_budget must be > 0"})
		return
	}

	corpus, err := s.store.ListDecisions(r.Context(), team, 0, 0)
	if err != nil {
		s.writeError(w, team, err)
		return
	}
	result := s.retriever.Retrieve(req.Query, corpus, req.TokenBudget)
	if result.Decisions == nil {
		result.Decisions = []model.Decision{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	if s.briefer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "brief generation is not configured"})
		return
	}
	team := chi.URLParam(r, "team")

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	b, err := s.briefer.Generate(r.Context(), team, req.Question)
	if err != nil {
		s.writeError(w, team, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brief":   b.Text,
		"context": b.Context,
	})
}

// writeError maps engine errors to HTTP statuses. A store outage
// surfaces as 503 so callers can tell it apart from a bad request.
func (s *Server) writeError(w http.ResponseWriter, team string, err error) {
	zap.L().Error("request failed", zap.String("team", team), zap.Error(err))
	if eris.Is(err, graph.ErrUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "decision graph unavailable"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
