//go:build linux

package reminder

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// watch sends on events (without blocking) whenever a file in dir is closed
// after writing or renamed into it. It returns when ctx is done.
func watch(ctx context.Context, dir string, events chan<- struct{}) error {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return fmt.Errorf("inotify init: %w", err)
	}
	// non-blocking, so reads go through the runtime poller and Close wakes them
	f := os.NewFile(uintptr(fd), "inotify")
	defer f.Close()

	if _, err := unix.InotifyAddWatch(fd, dir, unix.IN_CLOSE_WRITE|unix.IN_MOVED_TO); err != nil {
		return fmt.Errorf("inotify watch %s: %w", dir, err)
	}
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		n, err := f.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("inotify read: %w", err)
		}
		if n < unix.SizeofInotifyEvent {
			continue
		}
		select {
		case events <- struct{}{}:
		default:
		}
	}
}
