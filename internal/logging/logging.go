package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format values accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level to emit (trace, debug, info, warn, error).
	// An empty or unparsable level falls back to info.
	Level string

	// Format selects the output encoding: "console" (human-readable) or "json".
	Format string

	// File, when set, appends log output to the given path instead of stderr.
	File string

	// Caller adds the calling file:line to each event.
	Caller bool
}

// SetupResult is the outcome of NewLogger: the constructed logger plus
// whether file output is active or a fallback to stderr occurred.
type SetupResult struct {
	Logger         zerolog.Logger
	UsingFile      bool
	FilePath       string
	FallbackUsed   bool
	FallbackReason string

	file *os.File
}

// Close releases the log file handle, if any. Safe to call more than once.
func (r *SetupResult) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewLogger builds a zerolog.Logger from cfg. When cfg.File cannot be opened
// the logger writes to stderr instead and the result records the reason.
func NewLogger(cfg Config) SetupResult {
	var result SetupResult

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			result.FallbackUsed = true
			result.FallbackReason = err.Error()
		} else {
			result.UsingFile = true
			result.FilePath = cfg.File
			result.file = f
			out = f
		}
	}

	result.Logger = build(cfg, out, result.UsingFile)
	return result
}

// NewWriterLogger builds a logger that writes to w. Used by tests and by the
// mock gallery server, which logs to the terminal it was started from.
func NewWriterLogger(cfg Config, w io.Writer) zerolog.Logger {
	return build(cfg, w, false)
}

func build(cfg Config, out io.Writer, toFile bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: toFile}
	}

	logCtx := zerolog.New(out).Level(lvl).With().Timestamp()
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	return logCtx.Logger()
}

// ComponentLogger returns a child logger tagged with a component field.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithContext stores logger in ctx for retrieval via FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx. When none is set it returns
// a disabled logger, so callers can log unconditionally.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// PrintLogPathMessage tells the user where log output is going.
func PrintLogPathMessage(w io.Writer, path string) {
	_, _ = fmt.Fprintf(w, "Logs are being written to %s\n", path)
}

// PrintFallbackWarning warns that file logging was requested but unavailable.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: could not open log file, logging to stderr: %s\n", reason)
}
