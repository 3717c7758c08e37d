// Command wheelhouse performs one trading run: collect account state,
// evaluate the wheel-strategy rules, submit the resulting orders, record
// the outcome, and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pdswan/wheelhouse/internal/broker"
	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/runner"
	"github.com/pdswan/wheelhouse/internal/storage"
)

func main() {
	var (
		configPath     string
		dryRun         bool
		validateConfig bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.BoolVar(&dryRun, "dry-run", false, "evaluate and sequence without submitting orders")
	flag.BoolVar(&validateConfig, "validate-config", false, "validate the configuration and exit")
	flag.Parse()

	// Credentials and env-substituted config values may live in a .env
	// alongside the process.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if validateConfig {
		fmt.Println("configuration ok")
		return
	}

	logger := newLogger(cfg.Environment.LogLevel)

	store, err := openStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open datastore")
	}
	defer store.Close()

	client, err := buildClient(logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize broker client")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := runner.RunOnce(ctx, cfg, client, store, logger, dryRun)
	if err != nil {
		logger.WithError(err).WithField("run_id", report.RunID).Error("run failed")
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"proposed":  len(report.Proposed),
		"dropped":   len(report.Dropped),
		"submitted": len(report.Submitted),
		"errors":    len(report.Errors),
	}).Info("run complete")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func openStore(cfg *config.Config) (storage.Interface, error) {
	if !*cfg.Database.Enabled {
		return storage.NewMockStore(), nil
	}
	return storage.OpenSQLite(cfg.Database.Path)
}

// buildClient selects the broker backend from WHEELHOUSE_BROKER and wraps
// it in the circuit breaker. The gateway binding is deployment-specific;
// "mock" exists for dry-run smoke tests.
func buildClient(logger *logrus.Logger) (broker.Client, error) {
	backend := os.Getenv("WHEELHOUSE_BROKER")
	switch backend {
	case "mock":
		return broker.NewCircuitBreakerClient(broker.NewMockClient(), logger), nil
	case "":
		return nil, fmt.Errorf("WHEELHOUSE_BROKER is not set")
	default:
		return nil, fmt.Errorf("unsupported broker backend %q", backend)
	}
}
