package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "operation completed",
		F("dependency", "document-generation"),
		F("attempt", 2),
	)

	entry := decodeLine(t, &buf)
	if entry["message"] != "operation completed" {
		t.Errorf("message = %v, want operation completed", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["dependency"] != "document-generation" {
		t.Errorf("dependency = %v", entry["dependency"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("time field missing")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "noise")
	logger.Info(context.Background(), "noise")
	if buf.Len() != 0 {
		t.Fatalf("buffer = %q, want empty below warn", buf.String())
	}

	logger.Warn(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Error("warn entry was dropped")
	}
}

func TestLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("loud", &buf)

	logger.Debug(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Error("debug should be filtered at the info default")
	}

	logger.Info(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Error("info entry was dropped")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("component", "prober"))

	logger.Info(context.Background(), "started")

	entry := decodeLine(t, &buf)
	if entry["component"] != "prober" {
		t.Errorf("component = %v, want prober", entry["component"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	// Must be safe and silent.
	logger.Error(context.Background(), "ignored", F("k", "v"))
	logger.With(F("k", "v")).Info(context.Background(), "ignored")
}
