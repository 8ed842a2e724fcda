// Command mentorshipd runs the mentorship engine: it loads configuration,
// connects storage, wires the services and stays up until signalled,
// reporting backend health on an interval.
//
//	mentorshipd               run the engine
//	mentorshipd migrate       apply pending postgres migrations
//	mentorshipd migrate down  revert the latest migration
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/mentorship-hub/config"
	"github.com/alem-hub/mentorship-hub/internal/app"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
)

const healthInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log, err := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    logger.Format(cfg.Log.Format),
		AddCaller: cfg.App.Debug,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting mentorshipd",
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("storage", cfg.Storage.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if args := os.Args[1:]; len(args) > 0 {
		if args[0] != "migrate" {
			return fmt.Errorf("unknown command %q", args[0])
		}
		down := len(args) > 1 && args[1] == "down"
		return app.Migrate(ctx, cfg, log, down)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. WIRING
	// ─────────────────────────────────────────────────────────────────────────
	engine, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. RUN UNTIL SIGNALLED
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := engine.Health(gctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("health check failed", logger.Err(err))
				}
			}
		}
	})

	<-gctx.Done()
	log.Info("shutdown signal received")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	done := make(chan error, 1)
	go func() {
		_ = g.Wait()
		done <- engine.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Error("shutdown finished with errors", logger.Err(err))
			return err
		}
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Error("shutdown timed out", logger.Duration("timeout", cfg.App.ShutdownTimeout))
		return errors.New("shutdown timed out")
	}

	log.Info("mentorshipd stopped")
	return nil
}
