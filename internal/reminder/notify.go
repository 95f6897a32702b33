package reminder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Notifier delivers one reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// ExecNotifier runs Command with the title and message as its two
// arguments. No shell is involved, so the message is passed verbatim.
type ExecNotifier struct {
	Command string
}

func (n ExecNotifier) Notify(ctx context.Context, title, message string) error {
	cmd := exec.CommandContext(ctx, n.Command, title, message)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", n.Command, err, msg)
		}
		return fmt.Errorf("%s: %w", n.Command, err)
	}
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, title, message string) error

func (f NotifierFunc) Notify(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}
