package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file created inside the locked directory.
const FileName = "LOCK"

// LockHeldError is returned when another process holds the lock, e.g. a
// second client for the same identity.
type LockHeldError struct {
	PID   int
	Since time.Time
	Path  string
}

func (e *LockHeldError) Error() string {
	if e.Since.IsZero() {
		return fmt.Sprintf("lock held by PID %d (%s)", e.PID, e.Path)
	}
	return fmt.Sprintf("lock held by PID %d since %s (%s)", e.PID, e.Since.Format(time.RFC3339), e.Path)
}

// Lock is an acquired directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock on dir, creating it if needed.
// Returns LockHeldError if another process already holds it.
func Acquire(dir string) (*Lock, error) {
	lockPath := filepath.Join(dir, FileName)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		held := &LockHeldError{Path: lockPath}
		held.PID, held.Since = parseHolder(string(data))
		return nil, held
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. Safe to call on nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func parseHolder(content string) (pid int, since time.Time) {
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ = strconv.Atoi(after)
		}
		if after, ok := strings.CutPrefix(line, "time="); ok {
			since, _ = time.Parse(time.RFC3339, after)
		}
	}
	return pid, since
}
