package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger()
	if logger == nil || logger.Logger == nil {
		t.Fatal("NewLogger() returned an unusable logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected slog.Level
	}{
		{"debug level", "DEBUG", slog.LevelDebug},
		{"info level", "INFO", slog.LevelInfo},
		{"warn level", "WARN", slog.LevelWarn},
		{"warning level", "WARNING", slog.LevelWarn},
		{"error level", "ERROR", slog.LevelError},
		{"lowercase debug", "debug", slog.LevelDebug},
		{"padded value", "  error ", slog.LevelError},
		{"invalid level", "LOUD", slog.LevelInfo},
		{"empty value", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if level := ParseLevel(tt.value); level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.value, level, tt.expected)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(LevelEnvVar, "warn")
	if level := levelFromEnv(); level != slog.LevelWarn {
		t.Errorf("levelFromEnv() = %v, want WARN", level)
	}
}

func TestRunID(t *testing.T) {
	t.Run("generated IDs are unique hex", func(t *testing.T) {
		id1 := GenerateRunID()
		id2 := GenerateRunID()
		if id1 == id2 {
			t.Error("GenerateRunID() returned duplicate IDs")
		}
		if len(id1) != 16 {
			t.Errorf("GenerateRunID() returned %d characters, want 16", len(id1))
		}
	})

	t.Run("context round trip", func(t *testing.T) {
		ctx := WithRunID(context.Background(), "run-42")
		if id := GetRunID(ctx); id != "run-42" {
			t.Errorf("GetRunID() = %q, want %q", id, "run-42")
		}
	})

	t.Run("missing ID", func(t *testing.T) {
		if id := GetRunID(context.Background()); id != "" {
			t.Errorf("GetRunID() = %q, want empty string", id)
		}
	})

	t.Run("empty ID is generated", func(t *testing.T) {
		id := GetRunID(WithRunID(context.Background(), ""))
		if len(id) != 16 {
			t.Errorf("auto-generated run ID %q has wrong length", id)
		}
	})
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)
	ctx := WithRunID(context.Background(), "run-1")

	tests := []struct {
		name  string
		log   func()
		level string
	}{
		{"info", func() { logger.Info(ctx, "stepped", "step", 3) }, "INFO"},
		{"warn", func() { logger.Warn(ctx, "stepped", "step", 3) }, "WARN"},
		{"debug", func() { logger.Debug(ctx, "stepped", "step", 3) }, "DEBUG"},
		{"error", func() { logger.Error(ctx, "stepped", errors.New("boom"), "step", 3) }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			entry := decode(t, &buf)

			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %v", entry["level"], tt.level)
			}
			if entry["msg"] != "stepped" {
				t.Errorf("msg = %v, want stepped", entry["msg"])
			}
			if entry["run_id"] != "run-1" {
				t.Errorf("run_id = %v, want run-1", entry["run_id"])
			}
			if entry["step"] != float64(3) {
				t.Errorf("step = %v, want 3", entry["step"])
			}
			if tt.level == "ERROR" && entry["error"] != "boom" {
				t.Errorf("error = %v, want boom", entry["error"])
			}
		})
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelWarn)

	logger.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("INFO entry written by a WARN logger: %s", buf.String())
	}
}

func TestNonFiniteFloatsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	logger.Info(context.Background(), "diverged", "x", math.NaN(), "vy", math.Inf(1), "y", 2.5)
	entry := decode(t, &buf)

	if entry["x"] != "NaN" {
		t.Errorf("x = %v, want NaN", entry["x"])
	}
	if entry["vy"] != "+Inf" {
		t.Errorf("vy = %v, want +Inf", entry["vy"])
	}
	if entry["y"] != 2.5 {
		t.Errorf("y = %v, want 2.5", entry["y"])
	}
}

func TestLogWithoutRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	logger.Info(context.Background(), "test message")
	if strings.Contains(buf.String(), "run_id") {
		t.Error("entry should not contain run_id when none is set in context")
	}
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if result := WrapError(nil, "context"); result != nil {
			t.Errorf("WrapError(nil) = %v, want nil", result)
		}
	})

	t.Run("formatted context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := WrapError(original, "loading %s at step %d", "scene.json", 42)

		want := "loading scene.json at step 42: original error"
		if wrapped.Error() != want {
			t.Errorf("WrapError() = %q, want %q", wrapped.Error(), want)
		}
		if !errors.Is(wrapped, original) {
			t.Error("WrapError() should preserve the original error")
		}
	})
}
