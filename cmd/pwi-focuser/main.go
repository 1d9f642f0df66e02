// Command pwi-focuser initialises a PWI focuser, reports its status,
// optionally drives it to a target position and disconnects.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/michealroberts/pwi/internal/config"
	"github.com/michealroberts/pwi/pkg/pwi"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to configuration file")
		position   = flag.Int("position", -1, "target position in steps (-1 leaves the focuser in place)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *position, logger); err != nil {
		logger.Fatal("Focuser session failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, position int, logger *zap.Logger) error {
	client, err := pwi.NewClient(cfg.ClientConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	focuser := pwi.NewFocuser(cfg.Focuser.ID, cfg.FocuserParameters(), client, logger)

	if err := focuser.Initialise(ctx, pwi.DefaultInitialiseTimeout, pwi.DefaultInitialiseRetries); err != nil {
		return fmt.Errorf("failed to initialise focuser: %w", err)
	}
	defer func() {
		if err := focuser.Disconnect(context.Background()); err != nil {
			logger.Warn("Failed to disconnect focuser", zap.Error(err))
		}
	}()

	logger.Info("Focuser initialised",
		zap.String("name", focuser.Name()),
		zap.String("base_url", client.BaseURL()))

	ready, err := focuser.IsReady(ctx)
	if err != nil {
		return fmt.Errorf("failed to query readiness: %w", err)
	}
	logger.Info("Focuser readiness", zap.Bool("ready", ready))

	current, err := focuser.GetPosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to read position: %w", err)
	}
	logger.Info("Focuser position", zap.Int("position", current))

	version, err := focuser.GetDriverVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read driver version: %w", err)
	}
	logger.Info("Driver version", zap.String("version", version.String()))

	if position >= 0 {
		logger.Info("Moving focuser", zap.Int("target", position))
		if err := focuser.SetPosition(ctx, position); err != nil {
			return fmt.Errorf("failed to command move: %w", err)
		}

		moving, err := focuser.IsMoving(ctx)
		if err != nil {
			return fmt.Errorf("failed to query motion: %w", err)
		}
		logger.Info("Move commanded", zap.Bool("moving", moving))
	}

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
