package tasks

import (
	"fmt"
	"strings"
	"time"
)

// ReminderLayout is the format accepted for reminders on the command line.
const ReminderLayout = "2006-01-02 15:04"

// Task is one entry of the task list. A zero Reminder means none is set.
type Task struct {
	Description string    `json:"description"`
	Reminder    time.Time `json:"reminder,omitempty"`
}

// HasReminder reports whether a reminder is set.
func (t Task) HasReminder() bool { return !t.Reminder.IsZero() }

// ParseReminder parses s in ReminderLayout in loc. An empty string means no
// reminder.
func ParseReminder(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ReminderLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reminder %q, want %s: %w", s, ReminderLayout, err)
	}
	return t, nil
}
