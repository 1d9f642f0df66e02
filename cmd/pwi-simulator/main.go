// Command pwi-simulator runs an in-process PWI controller simulator for
// development and integration testing without hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/michealroberts/pwi/pkg/simulator"
)

func main() {
	var (
		kind  = flag.String("kind", "focuser", "device kind to simulate (focuser or mount)")
		addr  = flag.String("addr", ":8220", "listen address")
		debug = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var simKind simulator.Kind
	switch *kind {
	case "focuser":
		simKind = simulator.KindFocuser
	case "mount":
		simKind = simulator.KindMount
	default:
		logger.Fatal("Unknown device kind", zap.String("kind", *kind))
	}

	sim := simulator.New(simKind, logger)

	server := &http.Server{
		Addr:              *addr,
		Handler:           sim.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Simulator listening",
			zap.String("addr", *addr),
			zap.String("kind", *kind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
