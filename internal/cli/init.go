// Package cli provides common CLI initialization utilities shared by
// cmd/khata, cmd/khata-worker and cmd/khatactl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"khata/internal/backend"
	"khata/internal/backup"
	"khata/internal/config"
	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/services"
	"khata/internal/storage"
)

// SetupLogger builds a text logger at level on out and installs it as the
// process default.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and the optional overlay file, validates
// the result and applies the configured time zone to calendar dates.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOverlay()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	core.SetLocation(loc)
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig for daemons: it exits the process on
// failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured key-value backend.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// Ledger bundles the service with the storage it was opened on.
type Ledger struct {
	*services.LedgerService
	Docs    *storage.Documents
	backend *backend.BackendResult
}

// Close stops the service and releases the backend.
func (l *Ledger) Close() error {
	err := l.LedgerService.Close()
	if cerr := l.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// OpenLedger opens the backend and loads the ledger service on top of it.
func OpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config, opts ...services.Option) (*Ledger, error) {
	res, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	docs := storage.NewDocuments(res.Backend)
	backups := backup.NewManager(res.Backend, docs, backup.WithLogger(logger))
	opts = append([]services.Option{services.WithLogger(logger)}, opts...)
	return &Ledger{
		LedgerService: services.NewLedgerService(ctx, docs, backups, opts...),
		Docs:          docs,
		backend:       res,
	}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
