// Package server exposes the submission API and the tokenized report download over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"assessment-pipeline/internal/common/auth"
	"assessment-pipeline/internal/common/config"
	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	downloadtoken "assessment-pipeline/internal/workers/assessment/download-token"
	processsubmission "assessment-pipeline/internal/workers/assessment/process-submission"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ProcessTokenHeader  = "X-Process-Token"
	DefaultMaxBodyBytes = 1 << 20
)

type Coordinator interface {
	Submit(ctx context.Context, req processsubmission.Stage1Request) (*processsubmission.Stage1Response, error)
	Process(ctx context.Context, submissionID string) (*processsubmission.Stage2Status, error)
}

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*downloadtoken.Resolution, error)
}

type DownloadCounter interface {
	IncrementDownloadCount(ctx context.Context, id string) error
}

type Dependencies struct {
	Coordinator Coordinator
	Tokens      TokenResolver
	Downloads   DownloadCounter
	Signer      *auth.Signer
	// Metrics defaults to the Prometheus default gatherer.
	Metrics http.Handler
	// HealthChecks are run by /healthz; any failure turns the response into a 503.
	HealthChecks map[string]HealthCheck
}

type HealthCheck func(ctx context.Context) error

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	// ReportsDir, when set, is served read-only under /reports/.
	ReportsDir         string
	HealthCheckTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Address:         cfg.Server.Address,
		ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ReportsDir:      cfg.Reports.Dir,
	}
}

type Server struct {
	config     *Config
	deps       Dependencies
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	httpServer *http.Server
}

func New(config *Config, deps Dependencies, log logger.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.HealthCheckTimeout <= 0 {
		config.HealthCheckTimeout = 2 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	l := log.WithFields(map[string]interface{}{"component": "http"})
	s := &Server{
		config: config,
		deps:   deps,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
	}
	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      s.Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics)

	r.Route("/api/submissions", func(api chi.Router) {
		api.Post("/", s.handleSubmit)
		api.Post("/process", s.handleProcess)
	})
	r.Get("/download", s.handleDownload)
	if s.config.ReportsDir != "" {
		reports := http.StripPrefix("/reports/", reportFiles(s.config.ReportsDir))
		r.Method(http.MethodGet, "/reports/*", reports)
		r.Method(http.MethodHead, "/reports/*", reports)
	}
	return r
}

// ListenAndServe blocks until the server stops; a graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.config.Address})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// reportFiles serves rendered reports by name. Directory listings are not exposed.
func reportFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request served", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}
