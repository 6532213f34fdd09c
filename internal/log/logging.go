// Package log sets up the daemon's slog.Logger and the raw datagram logger.
//
// Without a log file, records below error go to stdout and errors to stderr,
// so stderr can be redirected on its own. With a log file, everything goes to
// stderr and the file.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below Debug and also turns on raw datagram dumps to stdout.
const LevelTrace slog.Level = -8

// Config is the logging section of the command line.
type Config struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" enum:"trace,debug,info,warn,error" env:"DS4DSU_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"DS4DSU_LOG_FILE"`
	RawFile string `help:"Write a hex dump of every DSU datagram to this file" env:"DS4DSU_LOG_RAW_FILE"`
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
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

// MultiHandler fans out records to multiple handlers.
type MultiHandler struct{ hs []slog.Handler }

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		_ = h.Handle(ctx, r.Clone())
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// LevelFilter passes only the levels accepted by pass to h.
type LevelFilter struct {
	pass func(slog.Level) bool
	h    slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.pass(level) && f.h.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.pass(r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithGroup(name)}
}

// NewHandler builds the console handler pair writing to stdout and stderr.
func NewHandler(stdout, stderr io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevelName}
	return MultiHandler{hs: []slog.Handler{
		LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: slog.NewTextHandler(stdout, opts)},
		LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: slog.NewTextHandler(stderr, opts)},
	}}
}

// Setup builds the logger and raw logger described by cfg. The returned
// closers must be closed on exit.
func Setup(cfg Config) (*slog.Logger, RawLogger, []io.Closer, error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevelName}

	var (
		handler slog.Handler
		closers []io.Closer
	)
	if cfg.File == "" {
		handler = NewHandler(os.Stdout, os.Stderr, level)
	} else {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closers = append(closers, f)
		handler = MultiHandler{hs: []slog.Handler{
			slog.NewTextHandler(os.Stderr, opts),
			slog.NewTextHandler(f, opts),
		}}
	}
	logger := slog.New(handler)

	raw := NewRaw(nil)
	switch {
	case cfg.RawFile != "":
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cfg.RawFile, "error", err)
			break
		}
		closers = append(closers, f)
		raw = NewRaw(f)
	case level <= LevelTrace:
		raw = NewRaw(os.Stdout)
	}
	return logger, raw, closers, nil
}

func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
