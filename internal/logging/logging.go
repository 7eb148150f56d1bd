// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "15:04:05.000"

// Config selects the level and sink. With File set, JSON lines are appended
// to it; otherwise a console writer prints to stderr.
type Config struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the root logger and a closer for its sink.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, console io.Writer) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.Level, zerolog.InfoLevel)
	zerolog.ErrorFieldName = "err"

	if cfg.File == "" {
		cw := zerolog.ConsoleWriter{Out: console, TimeFormat: consoleTimeFormat}
		return zerolog.New(cw).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger(), f, nil
}

// ParseLevel parses s, falling back to def on empty or unknown input.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return def
	}
	return lvl
}
