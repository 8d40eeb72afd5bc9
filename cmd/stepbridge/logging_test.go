// cmd/stepbridge/logging_test.go
package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/soya0924/shoe0522/internal/config"
)

func TestBuildLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := buildLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("frame discarded", "endpoint", "COM5")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "frame discarded" || rec["endpoint"] != "COM5" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestBuildLogger_Rejects(t *testing.T) {
	if _, err := buildLogger(&bytes.Buffer{}, config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := buildLogger(&bytes.Buffer{}, config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}
