package backend

import (
	"context"
	"path/filepath"
	"testing"

	"milkledger/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	if err != nil || cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" {
		t.Fatalf("unexpected config %+v (err=%v)", cfg, err)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	res, err := Open(ctx, Config{Type: MemoryBackend}, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := res.Store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("memory set: %v", err)
	}
	res.Cleanup()

	res, err = Open(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "ledger.db")}, nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer res.Cleanup()
	if v, ok, err := func() (string, bool, error) {
		if err := res.Store.Set(ctx, "k", "v"); err != nil {
			return "", false, err
		}
		return res.Store.Get(ctx, "k")
	}(); err != nil || !ok || v != "v" {
		t.Fatalf("sqlite round trip: %q %v %v", v, ok, err)
	}

	if _, err := Open(ctx, Config{Type: SQLiteBackend}, nil); err == nil {
		t.Fatalf("expected error for missing sqlite path")
	}
}
