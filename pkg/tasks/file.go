package tasks

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"todo/pkg/logger"
)

// FileBackend keeps tasks in a flat file, one per line, as
// "description|unixSeconds". A line without '|' is a description with no
// reminder; a reminder of 0 means none.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend reading and writing path. The file need
// not exist yet.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Path() string { return b.path }

// Load reads every task. A missing file is an empty list.
func (b *FileBackend) Load() ([]Task, error) {
	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open tasks file: %w", err)
	}
	defer f.Close()

	var out []Task
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		out = append(out, parseLine(sc.Text(), lineNo))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}
	return out, nil
}

func parseLine(line string, lineNo int) Task {
	// descriptions may contain '|', the reminder field never does
	i := strings.LastIndex(line, "|")
	if i < 0 {
		return Task{Description: line}
	}
	rem := line[i+1:]
	t := Task{Description: line[:i]}
	secs, err := strconv.ParseInt(strings.TrimSpace(rem), 10, 64)
	if err != nil {
		logger.Warn("task_reminder_invalid", "line", lineNo, "value", rem, "error", err)
		return t
	}
	if secs != 0 {
		t.Reminder = time.Unix(secs, 0)
	}
	return t
}

// Save replaces the file contents with tasks. The write goes to a temporary
// file in the same directory which is then renamed over the target.
func (b *FileBackend) Save(tasks []Task) error {
	var buf bytes.Buffer
	for _, t := range tasks {
		var secs int64
		if t.HasReminder() {
			secs = t.Reminder.Unix()
		}
		buf.WriteString(t.Description)
		buf.WriteByte('|')
		buf.WriteString(strconv.FormatInt(secs, 10))
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".tasks-*")
	if err != nil {
		return fmt.Errorf("create temp tasks file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync tasks file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tasks file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace tasks file: %w", err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
