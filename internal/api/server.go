// Package api exposes filter options, KPIs, daily tables, rankings and
// baseline analysis over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/dataset"
	"github.com/sells-group/adperf/internal/store"
)

// Provider returns the current dataset snapshot.
type Provider interface {
	Dataset(ctx context.Context) (*dataset.Dataset, error)
}

// Narrator writes a prose paragraph for an analysis result.
type Narrator interface {
	Narrate(ctx context.Context, res analysis.Result) (string, error)
}

// Options configures a Server. Store and Narrator are optional.
type Options struct {
	Provider       Provider
	Store          store.Store
	Narrator       Narrator
	AllowedOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	data     Provider
	store    store.Store
	narrator Narrator
	origins  []string
}

// New creates a Server.
func New(opts Options) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		data:     opts.Provider,
		store:    opts.Store,
		narrator: opts.Narrator,
		origins:  origins,
	}
}

// Handler returns the routed handler with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/options", s.handleOptions)
	r.Get("/kpi", s.handleKPI)
	r.Get("/daily", s.handleDaily)
	r.Get("/rank", s.handleRank)
	r.Get("/breakdown", s.handleBreakdown)
	r.Get("/compare", s.handleCompare)
	r.Get("/analysis", s.handleAnalysis)
	r.Get("/export", s.handleExport)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Delete("/{id}", s.handleDeleteRun)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
