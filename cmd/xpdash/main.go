package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"xpdash/internal/auth"
	"xpdash/internal/backend"
	"xpdash/internal/cli"
	apphttp "xpdash/internal/http"
	"xpdash/internal/log"
	"xpdash/internal/middleware/ratelimit"
	"xpdash/internal/pipeline"
	"xpdash/internal/services"
	"xpdash/internal/source"
	"xpdash/internal/xp"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	heuristics, err := xp.LoadHeuristics(cfg.HeuristicsFile)
	if err != nil {
		logger.Error("Failed to load heuristics", log.FieldError, err, "path", cfg.HeuristicsFile)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// A nil *amqp.Client must stay a nil interface so the service skips events.
	var publisher services.Publisher
	if result.Publisher != nil {
		publisher = result.Publisher
	}

	loader := pipeline.New(heuristics,
		source.PageOptions{PageSize: cfg.PageSize, MaxPages: cfg.MaxPages},
		pipeline.WithLogger(logger))
	profiles := services.NewProfileService(loader, publisher, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Provider:      result.Backend,
		Authenticator: result.Backend,
		Profiles:      profiles,
		Sessions:      auth.NewStore(cfg.SessionTTL, cfg.SessionMax, cfg.CookieSecure),
		LoginLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.LoginRatePerMinute}),
		Logger:        logger,
		Backend:       cfg.DataBackend,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting xpdash server",
			log.FieldOperation, log.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	profiles.Wait()
	if err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
