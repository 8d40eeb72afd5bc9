// cmd/stepbridge/logging.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/soya0924/shoe0522/internal/config"
)

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	return buildLogger(os.Stderr, cfg)
}

func buildLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("logging format %q not supported", cfg.Format)
}
