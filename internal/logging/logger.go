// Package logging configures the run logger used by the conversion pipeline.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Options selects where and how a run logs.
type Options struct {
	Level  slog.Level
	Format string // "json" (default) or "text"
	File   string // empty logs to the fallback writer
}

// Logger is a run logger plus the file it owns, if any.
type Logger struct {
	*slog.Logger
	RunID string

	file *os.File
}

// New builds a logger tagged with a fresh run_id. When opts.File is set the
// file is opened for append and its directory created; otherwise records go
// to fallback.
func New(opts Options, fallback io.Writer) (*Logger, error) {
	w := fallback
	var f *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		var err error
		f, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		w = f
	}
	if w == nil {
		w = io.Discard
	}

	runID := uuid.NewString()
	return &Logger{
		Logger: slog.New(NewHandler(w, opts)).With(slog.String("run_id", runID)),
		RunID:  runID,
		file:   f,
	}, nil
}

// NewHandler returns a JSON or text handler for w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(w, hopts)
	}
	return slog.NewJSONHandler(w, hopts)
}

// Close closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
