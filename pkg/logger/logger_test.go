package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInitAndGet(t *testing.T) {
	if err := Init("debug"); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("sync: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("global logger is nil after Init")
	}

	// Re-init with a different level; last call wins.
	if err := Init(""); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if levelVar.Level() != slog.LevelInfo {
		t.Fatalf("expected info level after empty init, got %v", levelVar.Level())
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelString(t *testing.T) {
	if err := Init("info"); err != nil {
		t.Fatalf("init: %v", err)
	}

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q): %v", in, err)
		}
		if levelVar.Level() != want {
			t.Fatalf("SetLevelString(%q): got %v, want %v", in, levelVar.Level(), want)
		}
	}
	if err := SetLevelString("nope"); err == nil {
		t.Fatal("expected error for unknown level string")
	}
}

func TestFieldsAndNamed(t *testing.T) {
	if err := Init("debug"); err != nil {
		t.Fatalf("init: %v", err)
	}

	ctx := context.Background()
	lg := Named("test")
	if lg == nil {
		t.Fatal("named logger is nil")
	}

	lg.Debug(ctx, "capture",
		String("ref", "r1"),
		Int("spans", 2),
		Int64("dwell_ms", 1500),
		Float64("ratio", 0.5),
		Bool("enabled", true),
		Any("extra", []int{1, 2}),
	)
	lg.Info(ctx, "scored")
	lg.Warn(ctx, "queue nearly full")
	lg.Error(ctx, "ignored event", Error(context.Canceled))
}
