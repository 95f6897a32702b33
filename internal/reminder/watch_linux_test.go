//go:build linux

package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"todo/pkg/tasks"
)

func TestWatchTriggersCheckOnWrite(t *testing.T) {
	s, dir := newStore(t)
	rec := &recorder{}
	now := time.Now()
	m := New(s, rec, Options{
		Cron:     "0 0 1 1 *",
		WatchDir: dir,
		Rate:     100,
		Burst:    10,
		Now:      func() time.Time { return now },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx)
	// let the watch register before writing
	time.Sleep(100 * time.Millisecond)

	writer, err := tasks.Open(tasks.NewFileBackend(filepath.Join(dir, "tasks.csv")))
	require.NoError(t, err)
	require.NoError(t, writer.Add("stretch", now.Add(-time.Minute)))

	require.Eventually(t, func() bool {
		return len(rec.got()) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchMissingDir(t *testing.T) {
	err := watch(context.Background(), filepath.Join(t.TempDir(), "missing"), make(chan struct{}, 1))
	require.Error(t, err)
}
