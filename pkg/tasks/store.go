package tasks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"todo/pkg/logger"
	"todo/pkg/telemetry"
)

// ErrInvalidIndex is returned by Remove for an index outside the list.
var ErrInvalidIndex = errors.New("invalid task index")

// Backend persists the full task list.
type Backend interface {
	Load() ([]Task, error)
	Save([]Task) error
	Path() string
	Close() error
}

// Store is the in-memory task list backed by a Backend. It is safe for
// concurrent use; every mutation is written through before it returns.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	tasks   []Task
}

// Open loads the current list from b.
func Open(b Backend) (*Store, error) {
	s := &Store{backend: b}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory list with the backend contents.
func (s *Store) Reload() error {
	loaded, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("load tasks from %s: %w", s.backend.Path(), err)
	}
	s.mu.Lock()
	s.tasks = loaded
	n := len(s.tasks)
	s.mu.Unlock()
	telemetry.SetTasks(n)
	return nil
}

// List returns a copy of the tasks in order.
func (s *Store) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Descriptions returns the task descriptions in order.
func (s *Store) Descriptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Description
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Add appends a task and saves the list.
func (s *Store) Add(desc string, reminder time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]Task(nil), s.tasks...), Task{Description: desc, Reminder: reminder})
	if err := s.backend.Save(next); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	telemetry.SetTasks(len(next))
	logger.Debug("task_added", "index", len(next)-1, "reminder", !reminder.IsZero())
	return nil
}

// Remove deletes the task at the zero-based index and saves the list.
func (s *Store) Remove(index int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return Task{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidIndex, index+1, len(s.tasks))
	}
	removed := s.tasks[index]
	next := make([]Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:index]...)
	next = append(next, s.tasks[index+1:]...)
	if err := s.backend.Save(next); err != nil {
		return Task{}, fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	telemetry.SetTasks(len(next))
	logger.Debug("task_removed", "index", index)
	return removed, nil
}

// Due returns tasks with a reminder no later than now+window. Overdue
// reminders are included.
func (s *Store) Due(now time.Time, window time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	limit := now.Add(window)
	for _, t := range s.tasks {
		if t.HasReminder() && !t.Reminder.After(limit) {
			out = append(out, t)
		}
	}
	return out
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
