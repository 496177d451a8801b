package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/danieljhkim/scaffold/internal/config"
)

// logger is the command logger set up by the root command before any
// subcommand runs.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NewCommandLogger creates the structured logger for command operations.
// With format "auto" (or empty), stderr gets a text handler when it is a
// terminal and a JSON handler when it is piped or redirected.
func NewCommandLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	options := &slog.HandlerOptions{Level: level}

	switch format {
	case "", config.LogFormatAuto:
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, options)), nil
		}
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case config.LogFormatText:
		return slog.New(slog.NewTextHandler(w, options)), nil
	case config.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s, %s or %s)", format, config.LogFormatAuto, config.LogFormatText, config.LogFormatJSON)
	}
}

// logLevel maps --verbose and --quiet to a level.
func logLevel(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// setupLogging builds the command logger from the global flags, falling
// back to defaults.log_format from config.yaml.
func setupLogging() error {
	format := logFormat
	if format == "" {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		format = settings.Defaults.LogFormat
	}

	l, err := NewCommandLogger(os.Stderr, logLevel(verbose, quiet), format)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
