// Command pwi-telemetry initialises the observatory devices and
// publishes their status to the MQTT telemetry bus until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/michealroberts/pwi/internal/config"
	"github.com/michealroberts/pwi/internal/telemetry"
	"github.com/michealroberts/pwi/pkg/mqtt"
	"github.com/michealroberts/pwi/pkg/pwi"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
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

	if !cfg.Telemetry.Enabled {
		logger.Fatal("Telemetry is disabled in configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Telemetry session failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	bus, err := mqtt.NewClient(&mqtt.Config{
		BrokerURL:     cfg.Telemetry.BrokerURL,
		ClientID:      cfg.Telemetry.ClientID,
		Username:      cfg.Telemetry.Username,
		Password:      cfg.Telemetry.Password,
		AutoReconnect: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create MQTT client: %w", err)
	}

	if err := bus.Connect(); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer bus.Disconnect()

	client, err := pwi.NewClient(cfg.ClientConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create controller client: %w", err)
	}

	publish := func(topic string, message *mqtt.Message) error {
		return bus.PublishJSON(topic, 0, false, message)
	}

	var publishers []*telemetry.Publisher

	focuser := pwi.NewFocuser(cfg.Focuser.ID, cfg.FocuserParameters(), client, logger)
	if err := focuser.Initialise(ctx, pwi.DefaultInitialiseTimeout, pwi.DefaultInitialiseRetries); err != nil {
		logger.Warn("Focuser unavailable, publishing local state only", zap.Error(err))
	}
	defer func() {
		if err := focuser.Disconnect(context.Background()); err != nil {
			logger.Warn("Failed to disconnect focuser", zap.Error(err))
		}
	}()

	focuserPublisher, err := telemetry.ForFocuser(focuser, cfg.Telemetry.Interval, publish, logger)
	if err != nil {
		return fmt.Errorf("failed to create focuser publisher: %w", err)
	}
	publishers = append(publishers, focuserPublisher)

	mount := pwi.NewMount(cfg.Mount.ID, cfg.MountParameters(), client, logger)
	if err := mount.Initialise(ctx, pwi.DefaultInitialiseTimeout, pwi.DefaultInitialiseRetries); err != nil {
		logger.Warn("Mount unavailable, publishing local state only", zap.Error(err))
	}
	defer func() {
		if err := mount.Disconnect(context.Background()); err != nil {
			logger.Warn("Failed to disconnect mount", zap.Error(err))
		}
	}()

	mountPublisher, err := telemetry.ForMount(mount, cfg.Telemetry.Interval, publish, logger)
	if err != nil {
		return fmt.Errorf("failed to create mount publisher: %w", err)
	}
	publishers = append(publishers, mountPublisher)

	logger.Info("Telemetry running",
		zap.String("broker", cfg.Telemetry.BrokerURL),
		zap.String("client_id", bus.ClientID()),
		zap.Duration("interval", cfg.Telemetry.Interval))

	var wg sync.WaitGroup
	for _, publisher := range publishers {
		publisher := publisher
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
