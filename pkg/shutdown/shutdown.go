package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"todo/pkg/logger"
)

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. Use
// the cancel function to stop watching and to release resources.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Abort logs the failure, prints it to stderr, flushes the logger and exits
// with status 1.
func Abort(msg string, err error) {
	logger.Error("fatal", "msg", msg, "error", err)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(stderr, msg)
	}
	logger.Sync()
	exit(1)
}
