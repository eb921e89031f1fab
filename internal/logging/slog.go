package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type SlogLogger struct {
	l *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// Options selects the output of New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// File enables rotated file output instead of stderr.
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// New builds a redacting slog logger. The returned closer releases the log
// file, if any.
func New(opts Options) (*SlogLogger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		w, err := NewRotatingWriter(RotationConfig{File: opts.File, MaxSizeMB: opts.MaxSizeMB, MaxFiles: opts.MaxFiles})
		if err != nil {
			return nil, nil, err
		}
		out, closer = w, w
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		h = slog.NewJSONHandler(out, hopts)
	case "", "text":
		h = slog.NewTextHandler(out, hopts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return NewSlogLogger(slog.New(NewRedactingHandler(h))), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}
	return l, nil
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
