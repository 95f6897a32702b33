package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir if needed and checks that it is a real, writable
// directory. Symlinks are rejected.
func EnsureDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("directory path is empty")
	}
	dir = filepath.Clean(dir)

	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return fmt.Errorf("cannot create parent for %s: %w", dir, err)
	}

	if fi, err := os.Lstat(dir); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("path is a symlink: %s", dir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("path exists and is not a directory: %s", dir)
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create path %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".validate-*")
	if err != nil {
		return fmt.Errorf("path not writable: %s: %w", dir, err)
	}
	tmp.Close()
	_ = os.Remove(tmp.Name())
	return nil
}
