// Command milkledger serves the delivery ledger JSON API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"milkledger/internal/cli"
	apphttp "milkledger/internal/http"
	"milkledger/internal/log"
	"milkledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	rt, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.LogError(ctx, "Failed to open ledger", err, log.ErrorTypeStorage, log.OpStartup, nil)
		os.Exit(1)
	}
	defer rt.Cleanup()

	var backups *services.BackupJob
	if cfg.BackupSchedule != "" {
		backups = services.NewBackupJob(rt.Service, cfg.BackupDir, cfg.BackupKeep, logger)
		if err := backups.Start(cfg.BackupSchedule); err != nil {
			logger.LogError(ctx, "Failed to schedule backups", err, log.ErrorTypeConfiguration, log.OpStartup, nil)
			os.Exit(1)
		}
		defer backups.Stop()
	} else {
		logger.Info("Automatic backups disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, rt.Service, apphttp.Options{Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting milkledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.LogError(context.Background(), "Server error", err, log.ErrorTypeInternal, log.OpShutdown, nil)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
