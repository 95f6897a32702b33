package logger

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var Log *slog.Logger

// stderr receives lines logged after Sync.
var stderr io.Writer = os.Stderr

type asyncWriter struct {
	ch chan []byte
}

func (a *asyncWriter) Write(p []byte) (n int, err error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case a.ch <- cp:
		return len(p), nil
	default:
		// drop if queue full to avoid blocking
		return len(p), nil
	}
}

var (
	logCh     chan []byte
	logStopCh chan struct{}
	logWG     sync.WaitGroup
	logLevel  slog.Level
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Init installs the global logger with an async buffered text handler.
// level falls back to TODO_LOG_LEVEL when empty. sink is "stderr",
// "stdout" or "file:/path"; when empty TODO_LOG_SINK is consulted.
func Init(level, sink string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("TODO_LOG_LEVEL")
	}
	if strings.TrimSpace(sink) == "" {
		sink = os.Getenv("TODO_LOG_SINK")
	}
	Sync()

	logCh = make(chan []byte, 10000)
	logStopCh = make(chan struct{})
	logLevel = ParseLevel(level)
	aw := &asyncWriter{ch: logCh}
	Log = slog.New(slog.NewTextHandler(aw, &slog.HandlerOptions{Level: logLevel}))

	logWG.Add(1)
	go func(ch chan []byte, stop chan struct{}) {
		defer logWG.Done()
		out, closer := openSink(sink)
		buf := bufio.NewWriterSize(out, 8192)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case b := <-ch:
				buf.Write(b)
			case <-ticker.C:
				buf.Flush()
			case <-stop:
				// drain what is already queued
				for {
					select {
					case b := <-ch:
						buf.Write(b)
						continue
					default:
					}
					break
				}
				buf.Flush()
				if closer != nil {
					closer.Close()
				}
				return
			}
		}
	}(logCh, logStopCh)
}

// InitWithWriter installs a synchronous logger writing to w. Used by tests
// and by callers that manage their own sink.
func InitWithWriter(w io.Writer, level string) {
	Sync()
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func openSink(sink string) (io.Writer, io.Closer) {
	switch {
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
			return os.Stderr, nil
		}
		return f, f
	case sink == "stdout":
		return os.Stdout, nil
	default:
		return os.Stderr, nil
	}
}

// Sync flushes any buffered logs and stops the async writer. Lines logged
// afterwards go straight to stderr at the same level.
func Sync() {
	if logStopCh != nil {
		close(logStopCh)
		logWG.Wait()
		logStopCh = nil
		Log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))
	}
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}

// LogConfigSummary prints a human readable block of configuration results
// to w. It is written regardless of the configured logger so startup dumps
// stay visible.
func LogConfigSummary(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	header := "== " + strings.ReplaceAll(title, "_", " ") + " "
	const width = 60
	if len(header) < width {
		header = header + strings.Repeat("=", width-len(header))
	}
	fmt.Fprintln(w, header)
	for _, it := range items {
		fmt.Fprintln(w, "- "+it)
	}
	fmt.Fprintln(w)
}
