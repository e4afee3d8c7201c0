// Package logger builds the zerolog loggers used across the program.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a logger writing to w at level. format "json" writes one JSON
// object per line; anything else writes human-readable console lines.
func Setup(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: w != os.Stderr && w != os.Stdout}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// OpenSession opens (appending) the session log file for the TUI, whose
// terminal cannot carry log output.
func OpenSession(path, level string) (zerolog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	return Setup(level, "json", f), f, nil
}
