package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNoopWhenUninitialised(t *testing.T) {
	Sync()
	Log = nil
	assert.NotPanics(t, func() {
		Debug("x")
		Info("x", "k", "v")
		Warn("x")
		Error("x")
	})
}

func TestInitWithWriter(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")
	defer func() { Log = nil }()

	Info("hidden_event")
	Warn("accept_failed", "error", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden_event")
	assert.Contains(t, out, "msg=accept_failed")
	assert.Contains(t, out, "error=boom")
}

func TestInitFileSinkFlushesOnSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.log")
	Init("info", "file:"+path)
	Info("request_received", "path", "/")
	Sync()
	Log = nil

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "path=/")
}

func TestLogAfterSyncGoesToStderr(t *testing.T) {
	var buf bytes.Buffer
	orig := stderr
	stderr = &buf
	t.Cleanup(func() {
		stderr = orig
		Log = nil
	})

	Init("warn", "file:"+filepath.Join(t.TempDir(), "todo.log"))
	Sync()
	Info("below_level")
	Warn("write_failed", "remote", "127.0.0.1:1")
	Sync()

	assert.NotContains(t, buf.String(), "below_level")
	assert.Contains(t, buf.String(), "msg=write_failed")
}

func TestLogConfigSummary(t *testing.T) {
	var buf bytes.Buffer
	LogConfigSummary(&buf, "config_summary", []string{"listen: 0.0.0.0:8080"})
	out := buf.String()
	assert.Regexp(t, `^== config summary =+\n`, out)
	assert.Contains(t, out, "- listen: 0.0.0.0:8080\n")

	buf.Reset()
	LogConfigSummary(&buf, "empty", nil)
	assert.Zero(t, buf.Len())
}
