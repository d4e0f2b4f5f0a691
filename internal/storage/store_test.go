package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
				t.Fatalf("missing key: ok=%v err=%v", ok, err)
			}

			if err := s.Set(ctx, "customers", `[]`); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Set(ctx, "customers", `[{"id":"a"}]`); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if v, ok, err := s.Get(ctx, "customers"); err != nil || !ok || v != `[{"id":"a"}]` {
				t.Fatalf("get after overwrite: %q %v %v", v, ok, err)
			}

			err := s.SetMany(ctx, map[string]string{"delivery_data": `{}`, "settings": `{"defaultMilkPrice":60}`})
			if err != nil {
				t.Fatalf("set many: %v", err)
			}
			for _, k := range []string{"delivery_data", "settings"} {
				if _, ok, _ := s.Get(ctx, k); !ok {
					t.Fatalf("key %s missing after SetMany", k)
				}
			}

			if err := s.Delete(ctx, "settings", "nope"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "settings"); ok {
				t.Fatalf("settings still present after delete")
			}
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, "last_backup", "2024-06-01T00:00:00.000Z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, err := s.Get(ctx, "last_backup"); err != nil || !ok || v != "2024-06-01T00:00:00.000Z" {
		t.Fatalf("value lost across reopen: %q %v %v", v, ok, err)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStoreFrom(map[string]string{"a": "1"})
	s.Close()
	if _, _, err := s.Get(context.Background(), "a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.SetMany(context.Background(), map[string]string{"a": "2"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
