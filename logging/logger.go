// Package logging builds the slog logger used across flowedit and carries
// edit correlation IDs through contexts.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options configures New.
type Options struct {
	Level  string    // debug, info, warn or error
	JSON   bool      // JSON records instead of text
	Color  string    // auto, on or off; ignored for JSON
	Writer io.Writer // defaults to os.Stderr
}

// ParseLevel converts a level name to a slog.Level. The empty string is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// New builds a logger from opts. Records pass through a CorrelationHandler
// so edit IDs on the context are logged.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	switch {
	case opts.JSON:
		inner = slog.NewJSONHandler(w, handlerOpts)
	case ColorEnabled(opts.Color, w):
		inner = newConsoleHandler(w, level)
	default:
		inner = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewCorrelationHandler(inner)), nil
}

// ColorEnabled resolves a color mode against the writer. In auto mode color
// is used only when w is a terminal and NO_COLOR is unset.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "on", "always":
		return true
	case "off", "never":
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
