package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValueFields(t *testing.T) {
	core, logs := observer.New(LevelDebug)
	logger := FromZap(zap.New(core))

	logger.Warn("quote skipped", "platform", "kalshi", "error", errors.New("no team match"), "dangling")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["platform"] != "kalshi" {
		t.Fatalf("unexpected platform field: %v", fields["platform"])
	}
	if fields["error"] != "no team match" {
		t.Fatalf("unexpected error field: %v", fields["error"])
	}
	if _, ok := fields["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected non-nil logger from nil receiver")
	}
}

func TestContextWith_FieldsReachEveryCall(t *testing.T) {
	core, logs := observer.New(LevelDebug)
	logger := FromZap(zap.New(core))

	ctx := ContextWith(context.Background(), "request_id", "req-1")
	ctx = ContextWith(ctx, "platform", "kalshi")
	logger.InfoContext(ctx, "quote stored", "game_id", int64(7))
	logger.Info("no context")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" || fields["platform"] != "kalshi" || fields["game_id"] != int64(7) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Fatalf("background call must not carry request fields")
	}
}

func TestNewJSONTo_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONTo(&buf, LevelInfo)

	logger.Debug("dropped")
	logger.Info("game created", "game_id", 42)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"game created"`) || !strings.Contains(out, `"game_id":42`) {
		t.Fatalf("unexpected output: %s", out)
	}
}
