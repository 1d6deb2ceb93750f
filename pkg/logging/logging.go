// Package logging builds the structured logger handed to every component.
//
// Nothing in this module reads a package-level logger: callers construct one
// with New and pass it down explicitly.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LevelEnvVar selects the log level when no explicit level is given
const LevelEnvVar = "LOG_LEVEL"

// Options configures New
type Options struct {
	// Level is one of debug, info, warn, error. Empty falls back to LOG_LEVEL, then info.
	Level string
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// NoColor disables tint colors even on a terminal.
	NoColor bool
}

// New creates a logger writing colored output on a terminal and logfmt text otherwise
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv(LevelEnvVar)
	}
	level := ParseLevel(levelName)

	if isTerminal(w) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			NoColor:    opts.NoColor,
			AddSource:  level <= slog.LevelDebug,
			TimeFormat: "15:04:05",
		}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}))
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
