package backend

import (
	"context"
	"fmt"
	"log/slog"

	"milkledger/internal/storage"
)

// Open creates the store selected by config.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*BackendResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case MemoryBackend:
		store := storage.NewMemoryStore()
		logger.WarnContext(ctx, "Initialized memory backend, data is lost on exit")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
