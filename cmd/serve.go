package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/metrics"
	"github.com/nephila016/emailvalidate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP validation service",
	Long: `Run the HTTP service.

Routes:
  POST /validate-email   validate {"email": "..."} (rate limited per client IP)
  GET  /health           liveness
  GET  /metrics          Prometheus metrics
  GET  /*                static files from static_dir, when present

Examples:
  emailvalidate serve
  emailvalidate serve --port 8080 --rate-limit-backend redis
  PORT=8080 MAILINATOR_API_KEY=... emailvalidate serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "Listen port (env PORT, default 3000)")
	serveCmd.Flags().String("static-dir", "", "Directory of static files served at / (env STATIC_DIR)")
	serveCmd.Flags().String("rate-limit-backend", "", "Rate limit backend: memory or redis (env RATE_LIMIT_BACKEND)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the redis backend (env REDIS_ADDR)")
	serveCmd.Flags().Bool("trust-proxy", false, "Key rate limits on X-Forwarded-For / X-Real-IP (env TRUST_PROXY)")

	bindFlag(serveCmd.Flags().Lookup("port"), "port")
	bindFlag(serveCmd.Flags().Lookup("static-dir"), "static_dir")
	bindFlag(serveCmd.Flags().Lookup("rate-limit-backend"), "rate_limit_backend")
	bindFlag(serveCmd.Flags().Lookup("redis-addr"), "redis_addr")
	bindFlag(serveCmd.Flags().Lookup("trust-proxy"), "trust_proxy")
}

func runServe(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := server.WithShutdownSignals(parent, logger)
	defer cancel()

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	rl, backend, err := buildLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rl.Close(); err != nil {
			logger.Warn("failed to close rate limiter", zap.Error(err))
		}
	}()

	handler := server.NewRouter(server.Options{
		Pipeline:            pipeline,
		Limiter:             rl,
		RateLimitLabel:      backend,
		Metrics:             metrics.New(),
		Logger:              logger,
		EnableCORS:          cfg.CORS.EnableCORS,
		CORSAllowedOrigins:  cfg.CORS.CORSAllowedOrigins,
		TrustProxy:          cfg.TrustProxy,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		StaticDir:           cfg.StaticDir,
	})

	logger.Info("starting emailvalidate",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("disposable_lookup", describeLookup(cfg)),
		zap.Bool("verification_simulation", cfg.Mailosaur.APIKey != "" && cfg.Mailosaur.ServerID != ""),
		zap.String("rate_limit_backend", backend),
		zap.Int("rate_limit_max", cfg.RateLimit.Max),
		zap.Bool("trust_proxy", cfg.TrustProxy),
		zap.Duration("rate_limit_window", cfg.RateLimit.Window),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	return server.ListenAndServe(ctx, addr, handler, cfg.ShutdownTimeout, logger)
}
