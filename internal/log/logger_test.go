package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})
	l.Info("day saved", FieldDate, "2024-06-01")
	l.WithComponent(ComponentBackup).Debug("tick")

	out := buf.String()
	for _, want := range []string{"component=ledger", "date=2024-06-01", "component=backup", "msg=tick"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %s", want, out)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentStorage, Output: &buf})
	l.LogError(context.Background(), "write failed", errors.New("disk full"), ErrorTypeStorage, OpSaveDay, NewFields().WithCustomer("customer_1"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "error=\"disk full\"", "error_type=storage_error", "operation=save_day", "customer_id=customer_1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "x": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", l.Component())
	}
	want := Discard().WithComponent(ComponentHTTP)
	if got := FromContext(IntoContext(context.Background(), want)); got != want {
		t.Fatalf("expected stored logger")
	}
}
