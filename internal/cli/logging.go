package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseLogLevel maps a flag value to a slog level.
func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", value)
	}
}

// newLogger builds a text logger writing to logFile, or to fallback when
// no file is given. A nil fallback discards output. The returned func
// closes the log file.
func newLogger(level, logFile string, fallback io.Writer) (*slog.Logger, func() error, error) {
	parsed, err := parseLogLevel(level)
	if err != nil {
		return nil, nil, err
	}
	out := fallback
	closeFn := func() error { return nil }
	if path := strings.TrimSpace(logFile); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeFn = file.Close
	}
	if out == nil {
		out = io.Discard
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: parsed})
	return slog.New(handler), closeFn, nil
}
