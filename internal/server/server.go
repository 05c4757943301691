// Package server wires the HTTP surface: validation, health, metrics and
// static files.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nephila016/emailvalidate/internal/logging"
	"github.com/nephila016/emailvalidate/internal/metrics"
	"github.com/nephila016/emailvalidate/internal/ratelimit"
	"github.com/nephila016/emailvalidate/internal/verifier"
)

// Options configures the HTTP handler.
type Options struct {
	Pipeline *verifier.Pipeline

	// Limiter guards POST /validate-email only; nil disables limiting.
	Limiter        ratelimit.Limiter
	RateLimitLabel string

	Metrics *metrics.Metrics
	Logger  *zap.Logger

	EnableCORS         bool
	CORSAllowedOrigins []string

	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Leave it off unless a proxy sets those headers.
	TrustProxy bool

	MaxRequestBodyBytes int64
	StaticDir           string

	Now func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	pipeline *verifier.Pipeline
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewRouter builds the chi router for the service.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = verifier.New(verifier.Config{Logger: logger})
	}

	s := &Server{
		pipeline: pipeline,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.Recoverer(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.HTTPMetrics)
	}
	r.Use(logging.RequestLogger(logger))
	if opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
			ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		}))
	}
	if opts.MaxRequestBodyBytes > 0 {
		r.Use(middleware.RequestSize(opts.MaxRequestBodyBytes))
	}

	r.Get("/health", s.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	validate := r.With()
	if opts.Limiter != nil {
		validate = r.With(ratelimit.Middleware(opts.Limiter, ratelimit.Config{
			Now: now,
			OnLimited: func(r *http.Request, key string) {
				logger.Warn("rate limit exceeded", zap.String("ip", key), zap.String("backend", opts.RateLimitLabel))
				if opts.Metrics != nil {
					opts.Metrics.ObserveRateLimited()
				}
			},
			OnError: func(r *http.Request, err error) {
				logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			},
		}))
	}
	validate.Post("/validate-email", s.handleValidate)

	if dir := opts.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			logger.Debug("static directory not found; not serving static files", zap.String("dir", dir))
		}
	}

	return r
}

// WithShutdownSignals returns a context that is canceled when the process
// receives SIGINT or SIGTERM. The returned cancel function also stops the
// signal handler.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// ListenAndServe serves handler on addr until ctx is canceled, then shuts
// down gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
