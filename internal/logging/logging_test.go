package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Writer: &buf})

	log.With(String("scene", "curves.json")).Info(context.Background(), "curve computed",
		Int("points", 19),
		Float64("granularity_rad", 0.0872),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "curve computed" || rec["scene"] != "curves.json" {
		t.Fatalf("record = %v", rec)
	}
	if rec["points"] != float64(19) || rec["error"] != "boom" {
		t.Fatalf("record fields = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Writer: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("GLOBE_LOG_LEVEL", "error")
	t.Setenv("GLOBE_LOG_FORMAT", "json")
	if NewFromEnv() == nil {
		t.Fatalf("NewFromEnv returned nil")
	}
}

func TestRunLoggerAndContext(t *testing.T) {
	ctx, log := WithRunLogger(context.Background(), nil)
	id := RunIDFromContext(ctx)
	if id == "" || log == nil {
		t.Fatalf("WithRunLogger returned id=%q logger=%v", id, log)
	}

	again, sameID := EnsureRunID(ctx)
	if sameID != id || again != ctx {
		t.Fatalf("EnsureRunID replaced existing id %q with %q", id, sameID)
	}

	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on empty context")
	}
	ctx = ContextWithLogger(ctx, nil)
	if _, ok := LoggerFromContext(ctx).(noopLogger); !ok {
		t.Fatalf("nil logger should be stored as Noop")
	}
}
