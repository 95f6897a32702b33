package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"todo/internal/reminder"
	"todo/pkg/banner"
	"todo/pkg/config"
	"todo/pkg/logger"
	"todo/pkg/server"
	"todo/pkg/tasks"
)

// App groups the task page server and its background components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	store   *tasks.Store
	srv     *server.Server
	monitor *reminder.Monitor
	// Notifier overrides the configured reminder command when set before Run.
	Notifier reminder.Notifier
	// Out receives the startup banner; nil means stdout.
	Out io.Writer

	srvFast     *fasthttp.Server
	metricsAddr atomic.Value
	cancel      context.CancelFunc
}

// OpenStore opens the task store selected by cfg.
func OpenStore(cfg *config.Config) (*tasks.Store, error) {
	var b tasks.Backend
	switch cfg.Storage.Backend {
	case config.BackendPebble:
		pb, err := tasks.OpenPebbleBackend(cfg.PebblePath())
		if err != nil {
			return nil, err
		}
		b = pb
	default:
		b = tasks.NewFileBackend(cfg.TasksFile())
	}
	s, err := tasks.Open(b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return s, nil
}

// New opens the store and binds the task page listener. Extra server
// options are applied after the configured ones.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string, opts ...server.Option) (*App, error) {
	cfg := eff.Config
	if cfg == nil {
		return nil, fmt.Errorf("effective config is nil")
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	srvOpts := append([]server.Option{server.WithReadBufferSize(cfg.Server.ReadBuffer.Int())}, opts...)
	srv, err := server.New(eff.Addr, srvOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		store:     store,
		srv:       srv,
	}
	a.registerRoutes()

	logger.LogConfigSummary(os.Stderr, "config_summary", []string{
		fmt.Sprintf("listen: %s", srv.Addr()),
		fmt.Sprintf("read_buffer: %s", humanize.IBytes(uint64(cfg.Server.ReadBuffer))),
		fmt.Sprintf("storage: %s", cfg.Storage.Backend),
		fmt.Sprintf("tasks: %s", humanize.Comma(int64(store.Len()))),
	})
	return a, nil
}

// Addr returns the task page listener address.
func (a *App) Addr() string { return a.srv.Addr().String() }

// Store returns the task store the app serves.
func (a *App) Store() *tasks.Store { return a.store }

func (a *App) versionString() string {
	v := a.version
	if v == "" {
		v = "dev"
	}
	if a.commit != "" && a.commit != "none" {
		v += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		v += " @ " + a.buildDate
	}
	return v
}

// Run starts the reminder monitor and metrics listener, serves the task page
// and blocks until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	cfg := a.eff.Config

	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	banner.Print(out, a.eff, a.versionString(), a.store.Len())

	errCh := make(chan error, 2)

	if cfg.Metrics.Enabled {
		if err := a.startMetrics(cfg.Metrics.Address, errCh); err != nil {
			return err
		}
	}

	if cfg.Reminders.IsEnabled() {
		n := a.Notifier
		if n == nil {
			n = reminder.ExecNotifier{Command: cfg.Reminders.Command}
		}
		opts := reminder.Options{
			Cron:   cfg.Reminders.Cron,
			Window: cfg.Reminders.Window.Duration(),
			Title:  cfg.Reminders.Title,
			Rate:   cfg.Reminders.Rate,
			Burst:  cfg.Reminders.Burst,
		}
		if cfg.Reminders.Watching() {
			opts.WatchDir = a.watchDir()
		}
		a.monitor = reminder.New(a.store, n, opts)
		a.monitor.Start(ctx)
	} else {
		logger.Info("reminders_disabled")
	}

	go func() { errCh <- a.srv.Run(ctx) }()
	logger.Info("server_started", "addr", a.Addr(), "version", a.versionString())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) watchDir() string {
	cfg := a.eff.Config
	if cfg.Storage.Backend == config.BackendPebble {
		return cfg.PebblePath()
	}
	return filepath.Dir(cfg.TasksFile())
}

// Shutdown stops every component and closes the store. Components still
// running when ctx expires are abandoned.
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutdown_requested")
	if a.cancel != nil {
		a.cancel()
	}
	if a.srvFast != nil {
		if err := a.srvFast.Shutdown(); err != nil {
			logger.Error("metrics_shutdown_failed", "error", err)
		}
	}
	if err := a.srv.Close(); err != nil {
		logger.Debug("server_close", "error", err)
	}

	if a.monitor != nil {
		done := make(chan struct{})
		go func() { a.monitor.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("reminder_monitor_stop_timeout")
		}
	}

	start := time.Now()
	err := a.store.Close()
	if err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete", "took", time.Since(start))
	return err
}
