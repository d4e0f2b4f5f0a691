package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"milkledger/internal/log"
	"milkledger/internal/metrics"
)

const (
	backupPrefix = "milk-ledger-"
	backupSuffix = ".json"
)

// BackupFileName returns the export file name for the given day.
func BackupFileName(t time.Time) string {
	return backupPrefix + t.Format("2006-01-02") + backupSuffix
}

// BackupJob writes export documents to a directory on a cron schedule and
// keeps the newest Keep files.
type BackupJob struct {
	service *LedgerService
	dir     string
	keep    int
	logger  *log.Logger
	cron    *cron.Cron
}

func NewBackupJob(service *LedgerService, dir string, keep int, logger *log.Logger) *BackupJob {
	if logger == nil {
		logger = log.Discard()
	}
	return &BackupJob{
		service: service,
		dir:     dir,
		keep:    keep,
		logger:  logger.WithComponent(log.ComponentBackup),
		cron:    cron.New(cron.WithLocation(service.location)),
	}
}

// Run writes one backup file and prunes old ones. It returns the written path.
func (j *BackupJob) Run(ctx context.Context) (path string, err error) {
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		metrics.Backups.WithLabelValues(result).Inc()
	}()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := j.service.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	path = filepath.Join(j.dir, BackupFileName(j.service.LocalNow()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write backup: %w", err)
	}

	removed, err := j.prune()
	if err != nil {
		j.logger.WarnContext(ctx, "Failed to prune old backups", log.FieldError, err.Error())
	}
	j.logger.InfoContext(ctx, "Backup written",
		log.FieldBackupFile, path,
		"bytes", len(data),
		"pruned", removed)
	return path, nil
}

// prune removes backup files beyond the newest keep. Names sort by date.
func (j *BackupJob) prune() (int, error) {
	if j.keep <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}
	if len(names) <= j.keep {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	removed := 0
	for _, name := range names[j.keep:] {
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Start schedules Run with a standard five field cron expression.
func (j *BackupJob) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.logger.LogError(ctx, "Scheduled backup failed", err, log.ErrorTypeStorage, log.OpBackup, nil)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	j.logger.Info("Starting backup scheduler", "schedule", schedule, "dir", j.dir, "keep", j.keep)
	j.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running backup to finish.
func (j *BackupJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Backup scheduler stopped")
}
