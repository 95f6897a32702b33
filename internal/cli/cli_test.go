package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/pkg/tasks"
)

func run(t *testing.T, dir string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--dir", dir}, args...)
	code := Execute(BuildInfo{Version: "test", Commit: "none"}, full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestAddDisplayRemove(t *testing.T) {
	t.Setenv("TODO_CONFIG", "")
	dir := filepath.Join(t.TempDir(), "todo")

	code, out, _ := run(t, dir, "add", "[b]buy milk[/b]")
	require.Equal(t, 0, code)
	assert.Equal(t, "Task added successfully.\n\n", out)

	code, _, _ = run(t, dir, "a", "call bob", "2030-01-02", "09:30")
	require.Equal(t, 0, code)

	raw, err := os.ReadFile(filepath.Join(dir, "tasks.csv"))
	require.NoError(t, err)
	want, err := tasks.ParseReminder("2030-01-02 09:30", time.Local)
	require.NoError(t, err)
	assert.Equal(t, "[b]buy milk[/b]|0\ncall bob|"+strconv.FormatInt(want.Unix(), 10)+"\n", string(raw))

	code, out, _ = run(t, dir, "display")
	require.Equal(t, 0, code)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Tasks:", lines[0])
	// not a terminal, so markup is stripped
	assert.Equal(t, "1. buy milk", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2. call bob  (reminder 2030-01-02 09:30, "), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "from now)"), lines[2])
	assert.Equal(t, "", lines[3])

	code, out, _ = run(t, dir, "remove", "1")
	require.Equal(t, 0, code)
	assert.Equal(t, "Task removed successfully.\n\n", out)

	code, out, _ = run(t, dir, "display")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "Tasks:\n1. call bob"), out)
}

func TestRemoveInvalidIndex(t *testing.T) {
	t.Setenv("TODO_CONFIG", "")
	dir := t.TempDir()
	run(t, dir, "add", "only")

	for _, idx := range []string{"0", "2", "abc"} {
		code, out, errOut := run(t, dir, "r", idx)
		assert.Equal(t, 1, code, idx)
		assert.Equal(t, "Invalid task number.\n\n", out, idx)
		assert.Empty(t, errOut, idx)
	}

	code, out, _ := run(t, dir, "display")
	require.Equal(t, 0, code)
	assert.Equal(t, "Tasks:\n1. only\n\n", out)
}

func TestAddBadReminder(t *testing.T) {
	t.Setenv("TODO_CONFIG", "")
	dir := t.TempDir()
	code, _, errOut := run(t, dir, "add", "x", "next tuesday")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid reminder")

	code, out, _ := run(t, dir, "display")
	require.Equal(t, 0, code)
	assert.Equal(t, "Tasks:\n\n", out)
}

func TestPebbleBackendFlag(t *testing.T) {
	t.Setenv("TODO_CONFIG", "")
	dir := t.TempDir()
	code, _, errOut := run(t, dir, "--backend", "pebble", "add", "stored in pebble")
	require.Equal(t, 0, code, errOut)

	_, err := os.Stat(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tasks.csv"))
	assert.True(t, os.IsNotExist(err))

	code, out, _ := run(t, dir, "--backend", "pebble", "display")
	require.Equal(t, 0, code)
	assert.Equal(t, "Tasks:\n1. stored in pebble\n\n", out)
}

func TestUsageErrors(t *testing.T) {
	t.Setenv("TODO_CONFIG", "")
	dir := t.TempDir()
	code, _, errOut := run(t, dir, "launch")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = run(t, dir, "remove")
	assert.Equal(t, 1, code)

	code, _, errOut = run(t, dir, "--backend", "sqlite", "display")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "storage.backend")
}

func TestWriteTasksANSI(t *testing.T) {
	var buf bytes.Buffer
	writeTasks(&buf, []tasks.Task{{Description: "[color=red]urgent[/color]"}}, true, time.Now())
	assert.Equal(t, "Tasks:\n1. \033[31murgent\033[0m\n\n", buf.String())
}
