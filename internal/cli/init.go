// Package cli provides common CLI initialization utilities shared by
// cmd/milkledger and cmd/ledgerctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"milkledger/internal/backend"
	"milkledger/internal/config"
	"milkledger/internal/log"
	"milkledger/internal/persistence"
	"milkledger/internal/services"
)

// SetupLogger initializes structured logging for component at the given
// level and sets it as the default logger.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// Runtime bundles the store and the ledger service built from config.
type Runtime struct {
	Service *services.LedgerService
	Cleanup backend.CleanupFunc
}

// OpenLedger opens the configured store and loads the ledger service.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.Open(ctx, backendCfg, logger.WithComponent(log.ComponentStorage).Logger)
	if err != nil {
		return nil, err
	}

	adapter := persistence.NewAdapter(res.Store, logger)
	svc, err := services.NewLedgerService(ctx, adapter, services.Options{
		Logger:   logger,
		Location: cfg.Location(),
	})
	if err != nil {
		res.Cleanup()
		return nil, err
	}
	return &Runtime{Service: svc, Cleanup: res.Cleanup}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, cancel
}
