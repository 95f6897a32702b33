package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"todo/internal/app"
	"todo/pkg/format"
	"todo/pkg/logger"
	"todo/pkg/tasks"
)

func (rt *rootState) displayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Display all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.OpenStore(rt.eff.Config)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			writeTasks(out, store.List(), isTerminal(out), time.Now())
			return nil
		},
	}
}

func (rt *rootState) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <description> [reminder]",
		Aliases: []string{"a"},
		Short:   "Add a new task",
		Long: `Add a new task. The optional reminder is a local time written as
"YYYY-MM-DD HH:MM", either quoted or as two arguments.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reminder, err := tasks.ParseReminder(strings.Join(args[1:], " "), time.Local)
			if err != nil {
				return err
			}
			store, err := app.OpenStore(rt.eff.Config)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Add(args[0], reminder); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), "Task added successfully.\n\n")
			return nil
		},
	}
}

func (rt *rootState) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"r"},
		Short:   "Remove the task at the specified index",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			n, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				fmt.Fprint(out, "Invalid task number.\n\n")
				return errReported
			}
			store, err := app.OpenStore(rt.eff.Config)
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Remove(n - 1)
			if errors.Is(err, tasks.ErrInvalidIndex) {
				fmt.Fprint(out, "Invalid task number.\n\n")
				return errReported
			}
			if err != nil {
				return err
			}
			logger.Debug("task_removed", "description", removed.Description)
			fmt.Fprint(out, "Task removed successfully.\n\n")
			return nil
		},
	}
}

// writeTasks prints the numbered list. Markup becomes ANSI codes on a
// terminal and is stripped otherwise.
func writeTasks(w io.Writer, list []tasks.Task, ansi bool, now time.Time) {
	fmt.Fprintln(w, "Tasks:")
	for i, t := range list {
		desc := format.Plain(t.Description)
		if ansi {
			desc = format.ANSI(t.Description)
		}
		line := fmt.Sprintf("%d. %s", i+1, desc)
		if t.HasReminder() {
			line += fmt.Sprintf("  (reminder %s, %s)", t.Reminder.Local().Format(tasks.ReminderLayout), humanize.RelTime(t.Reminder, now, "ago", "from now"))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
