// Command pwi-mount initialises a PWI mount and commands it to follow a
// two-line element set, polling the topocentric pointing until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/michealroberts/pwi/internal/config"
	"github.com/michealroberts/pwi/pkg/pwi"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to configuration file")
		tlePath    = flag.String("tle", "", "path to a two-line element set file")
		interval   = flag.Duration("interval", time.Second, "pointing poll interval")
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

	if *tlePath == "" {
		logger.Fatal("No element set given, use -tle")
	}

	raw, err := os.ReadFile(*tlePath)
	if err != nil {
		logger.Fatal("Failed to read element set", zap.Error(err))
	}

	tle, err := pwi.ParseTLE(string(raw))
	if err != nil {
		logger.Fatal("Failed to parse element set", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, tle, *interval, logger); err != nil {
		logger.Fatal("Mount session failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, tle pwi.TLE, interval time.Duration, logger *zap.Logger) error {
	client, err := pwi.NewClient(cfg.ClientConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	mount := pwi.NewMount(cfg.Mount.ID, cfg.MountParameters(), client, logger)

	if err := mount.Initialise(ctx, pwi.DefaultInitialiseTimeout, pwi.DefaultInitialiseRetries); err != nil {
		return fmt.Errorf("failed to initialise mount: %w", err)
	}
	defer func() {
		if err := mount.AbortSlew(context.Background()); err != nil {
			logger.Warn("Failed to stop mount", zap.Error(err))
		}
		if err := mount.Disconnect(context.Background()); err != nil {
			logger.Warn("Failed to disconnect mount", zap.Error(err))
		}
	}()

	logger.Info("Mount initialised",
		zap.String("name", mount.Name()),
		zap.String("target", tle.Name()))

	if err := mount.FollowTLE(ctx, tle); err != nil {
		return fmt.Errorf("failed to follow element set: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping")
			return nil
		case <-ticker.C:
			coordinate, err := mount.GetTopocentricCoordinate(ctx)
			if err != nil {
				var unavailable *pwi.StatusUnavailableError
				if errors.As(err, &unavailable) {
					logger.Warn("Pointing unavailable", zap.Error(err))
					continue
				}
				return fmt.Errorf("failed to read pointing: %w", err)
			}

			logger.Info("Pointing",
				zap.Float64("alt_degs", coordinate.Altitude),
				zap.Float64("az_degs", coordinate.Azimuth))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
