package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

const (
	// FormatText - colored console output
	FormatText = "text"
	// FormatJSON - one JSON object per line
	FormatJSON = "json"
)

// New - builds a slog.Logger writing to w in the requested format
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	switch format {
	case "", FormatText:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// NewFile - same as New but appends to a file, returns the file so the caller can close it.
// Colors are disabled since the output is not a terminal.
func NewFile(path string, format string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f, nil
	}
	return slog.New(tint.NewHandler(f, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    true,
	})), f, nil
}
