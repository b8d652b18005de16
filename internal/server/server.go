// Package server exposes the verification pipeline over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/claimcheck/internal/feedback"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in-flight requests may finish on shutdown
const shutdownTimeout = 10 * time.Second

// Verifier runs the pipeline for one text or image
type Verifier interface {
	Verify(ctx context.Context, text string, explain bool) (*model.VerificationResult, error)
	VerifyImage(ctx context.Context, image []byte, filename string, explain bool) (*model.VerificationResult, error)
}

// Options are the optional collaborators of a server
type Options struct {
	Feedback *feedback.Log
	Metrics  *metrics.Prometheus
	Limiter  *worker.Limiter // Per-client limiter; nil disables rate limiting
	Logger   *zap.Logger
}

// Server is the HTTP transport
type Server struct {
	cfg      model.ServerConfig
	verifier Verifier
	feedback *feedback.Log
	metrics  *metrics.Prometheus
	limiter  *worker.Limiter
	validate *validator.Validate
	logger   *zap.Logger
	router   chi.Router
}

// New builds the server and its routes
func New(cfg model.ServerConfig, verifier Verifier, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Feedback == nil {
		opts.Feedback = feedback.NewLog("")
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = model.DefaultConfig().Server.MaxTextLength
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = model.DefaultConfig().Server.MaxImageBytes
	}

	s := &Server{
		cfg:      cfg,
		verifier: verifier,
		feedback: opts.Feedback,
		metrics:  opts.Metrics,
		limiter:  opts.Limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimit(s.limiter))
		}
		r.Post("/verify/text", s.verifyText)
		r.Post("/verify/image", s.verifyImage)
		r.Post("/feedback", s.submitFeedback)
	})
	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
