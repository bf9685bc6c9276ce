// Package logging builds the service logger from LoggingConfig.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gochat/internal/config"
)

// New returns a zerolog.Logger and a close func for any file it opened.
func New(cfg config.LoggingConfig) (zerolog.Logger, func() error, error) {
	out, closeFn, err := openOutput(cfg.OutputPath)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(path) {
	case "", "stdout":
		return os.Stdout, noop, nil
	case "stderr":
		return os.Stderr, noop, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f.Close, nil
}

// Component tags a logger with the emitting component.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
