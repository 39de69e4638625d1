package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/analytics"
	"github.com/jonathan/talent-pipeline/internal/candidates"
	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/notify"
	"github.com/jonathan/talent-pipeline/internal/observability"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
	"github.com/jonathan/talent-pipeline/internal/server"
	"github.com/jonathan/talent-pipeline/internal/server/ratelimit"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the pipeline, candidate and analytics endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides APP_PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	defaults, err := config.LoadPipelineDefaults(cfg.PipelineDefaultsFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DB.URL, db.PoolOptions{
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
		MaxConnIdleTime: cfg.DB.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	opts := analytics.Options{
		TTL:            cfg.Analytics.CacheTTL,
		SLADefaultDays: cfg.Analytics.SLADefaultDays,
		Logger:         logger.Named("analytics"),
	}
	if cfg.CacheEnabled() {
		client := analytics.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = client.Close() }()
		if err := analytics.Ping(ctx, client); err != nil {
			// Analytics still work uncached.
			logger.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			opts.Cache = analytics.NewRedisCache(client)
		}
	}
	stats := analytics.NewService(database, opts)

	srv := server.New(server.Config{Addr: cfg.Addr()}, server.Deps{
		Pipeline:   pipeline.NewService(database, defaults, stats, logger.Named("pipeline")),
		Candidates: candidates.NewService(database, notify.NewDBNotifier(database, logger.Named("notify")), stats, logger.Named("candidates")),
		Analytics:  stats,
		JWT:        server.NewJWTService(cfg.JWT),
		Limiter:    ratelimit.NewLimiter(ratelimit.FromConfig(cfg.Limiter), 5*time.Minute),
		Logger:     logger.Named("http"),
	})
	return srv.Start()
}
