// Package logger emits one JSON line per action, the shape the rest of the
// system greps for: timestamp, level, service, action, free-form fields.
package logger

import (
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	s       *slog.Logger
	service string
	w       io.Writer
}

// New builds a logger for one service or component, writing JSON to stdout.
func New(service string) *Logger { return NewWithWriter(service, os.Stdout, slog.LevelDebug) }

// NewWithWriter is New with an explicit sink and level; tests use it to
// capture output.
func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	s := slog.New(h).With("service", service, "hostname", hostname())
	return &Logger{s: s, service: service, w: w}
}

// With returns a child logger carrying extra fields on every line.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{s: l.s.With(attrs(fields)...), service: l.service, w: l.w}
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.s.Debug(action, attrs(fields)...)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.s.Info(action, attrs(fields)...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.s.Warn(action, attrs(fields)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	args := attrs(fields)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.s.Error(action, args...)
}

func attrs(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func hostname() string { h, _ := os.Hostname(); return h }
