package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/time/rate"

	"todo/pkg/format"
	"todo/pkg/logger"
	"todo/pkg/tasks"
	"todo/pkg/telemetry"
)

// Reminder outcomes recorded in telemetry.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeLimited = "limited"
)

// Options configures a Monitor.
type Options struct {
	Cron   string
	Window time.Duration
	Title  string
	// WatchDir, when set, triggers a check whenever a file in it is written.
	WatchDir string
	Rate     float64
	Burst    int
	Now      func() time.Time
}

// Monitor notifies about due tasks on a cron schedule and on writes to the
// watched directory. Each task is notified at most once per process.
type Monitor struct {
	store    *tasks.Store
	notifier Notifier
	opts     Options
	limiter  *rate.Limiter

	mu      sync.Mutex
	sent    map[string]struct{}
	checkMu sync.Mutex
	wg      sync.WaitGroup
}

// New returns a monitor over store. Zero options get defaults.
func New(store *tasks.Store, n Notifier, opts Options) *Monitor {
	if opts.Cron == "" {
		opts.Cron = "* * * * *"
	}
	if opts.Window <= 0 {
		opts.Window = 5 * time.Minute
	}
	if opts.Title == "" {
		opts.Title = "Todo Reminder"
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		store:    store,
		notifier: n,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		sent:     make(map[string]struct{}),
	}
}

// Start runs an initial check and the background loops until ctx is done.
// Wait blocks until they have exited.
func (m *Monitor) Start(ctx context.Context) {
	logger.Info("reminders_enabled", "cron", m.opts.Cron, "window", m.opts.Window, "watch_dir", m.opts.WatchDir)
	m.runCheck(ctx, "startup")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.scheduleLoop(ctx)
	}()

	if m.opts.WatchDir != "" {
		events := make(chan struct{}, 1)
		m.wg.Add(2)
		go func() {
			defer m.wg.Done()
			if err := watch(ctx, m.opts.WatchDir, events); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reminder_watch_stopped", "dir", m.opts.WatchDir, "error", err)
			}
		}()
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-events:
					m.runCheck(ctx, "watch")
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Wait blocks until every loop started by Start has returned.
func (m *Monitor) Wait() { m.wg.Wait() }

func (m *Monitor) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(m.opts.Cron, m.opts.Now(), false)
		if err != nil {
			logger.Error("reminder_nexttick_failed", "cron", m.opts.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			m.runCheck(ctx, "cron")
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) runCheck(ctx context.Context, trigger string) {
	n, err := m.Check(ctx)
	if err != nil {
		logger.Error("reminder_check_failed", "trigger", trigger, "error", err)
		return
	}
	logger.Debug("reminder_check", "trigger", trigger, "sent", n)
}

// Check reloads the store and notifies every due task not yet notified.
// It returns the number of notifications sent.
func (m *Monitor) Check(ctx context.Context) (int, error) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	if err := m.store.Reload(); err != nil {
		return 0, err
	}
	sent := 0
	for _, t := range m.store.Due(m.opts.Now(), m.opts.Window) {
		key := dedupeKey(t)
		m.mu.Lock()
		_, done := m.sent[key]
		m.mu.Unlock()
		if done {
			continue
		}

		if !m.limiter.Allow() {
			// left unmarked so the next check retries it
			telemetry.ObserveReminder(OutcomeLimited)
			logger.Warn("reminder_rate_limited", "task", t.Description)
			continue
		}
		if err := m.notifier.Notify(ctx, m.opts.Title, format.Plain(t.Description)); err != nil {
			telemetry.ObserveReminder(OutcomeFailed)
			logger.Error("reminder_notify_failed", "task", t.Description, "error", err)
			continue
		}
		m.mu.Lock()
		m.sent[key] = struct{}{}
		m.mu.Unlock()
		telemetry.ObserveReminder(OutcomeSent)
		logger.Info("reminder_sent", "task", t.Description, "at", t.Reminder)
		sent++
	}
	return sent, nil
}

func dedupeKey(t tasks.Task) string {
	return t.Description + "\x00" + t.Reminder.UTC().Format(time.RFC3339)
}
