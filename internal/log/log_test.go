package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewHandlerSplitsByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(NewHandler(&stdout, &stderr, LevelTrace))

	logger.Log(t.Context(), LevelTrace, "raw")
	logger.Info("client connected", "remote", "127.0.0.1:5000")
	logger.Error("send failed")

	assert.Contains(t, stdout.String(), "level=TRACE msg=raw")
	assert.Contains(t, stdout.String(), "client connected")
	assert.NotContains(t, stdout.String(), "send failed")
	assert.Contains(t, stderr.String(), "send failed")
	assert.NotContains(t, stderr.String(), "client connected")
}

func TestNewHandlerHonoursLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(NewHandler(&stdout, &stderr, slog.LevelWarn)).With("slot", 1)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "slot=1")
	assert.Empty(t, stderr.String())
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := &rawLogger{w: &buf, now: func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }}

	r.Log(true, "127.0.0.1:5000", []byte{0x44, 0x53, 0x0a})
	r.Log(false, "127.0.0.1:5000", []byte{0xff})
	r.Log(false, "127.0.0.1:5000", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"2024/05/06 07:08:09.000 C->S 127.0.0.1:5000 3 bytes: 44 53 0a",
		"2024/05/06 07:08:09.000 S->C 127.0.0.1:5000 1 bytes: ff",
	}, lines)
}

func TestRawLoggerNilWriter(t *testing.T) {
	assert.NotPanics(t, func() { NewRaw(nil).Log(true, "peer", []byte{1}) })
}
