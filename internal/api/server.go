// Package api exposes the transcript analysis pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
)

// Analyzer is the pipeline surface the server depends on
type Analyzer interface {
	Analyze(ctx context.Context, text string, mode model.SourceMode) (*model.AnalysisResult, error)
	Diagnose(ctx context.Context) model.Diagnostic
}

// Server serves analyze, diagnostic, health and metrics endpoints
type Server struct {
	router   *chi.Mux
	analyzer Analyzer
	validate *validator.Validate
	logger   logrus.FieldLogger
	timeout  time.Duration
}

// NewServer builds the router. A zero timeout disables the per-request
// deadline.
func NewServer(analyzer Analyzer, timeout time.Duration, logger logrus.FieldLogger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		analyzer: analyzer,
		validate: validator.New(),
		logger:   logging.OrDiscard(logger),
		timeout:  timeout,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(echoRequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(allowAnyOrigin)
	if timeout > 0 {
		s.router.Use(middleware.Timeout(timeout))
	}

	s.router.Get("/health", s.health)
	s.router.Post("/analyze", s.analyze)
	s.router.Get("/diag/llm", s.diagLLM)
	s.router.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("API server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
