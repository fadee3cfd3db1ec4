package fileutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWaitTimeout is returned by WaitForFile when the file does not appear in time.
var ErrWaitTimeout = errors.New("timed out waiting for file")

// EnsureDir creates path and missing parents. Existing directories are left untouched.
func EnsureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("directory path is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WithTrailingSeparator returns dir ending in exactly one path separator.
func WithTrailingSeparator(dir string) string {
	if dir == "" {
		return dir
	}
	return strings.TrimRight(dir, string(filepath.Separator)) + string(filepath.Separator)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WaitForFile blocks until path exists as a non-empty regular file, the
// timeout elapses, or ctx is canceled. A zero timeout waits until ctx ends.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	if ready(path) {
		return nil
	}
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// The file may have landed between the first check and Add.
	if ready(path) {
		return nil
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrWaitTimeout, path)
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				if ready(path) {
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}

func ready(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
