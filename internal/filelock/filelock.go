// Package filelock provides an advisory PID lockfile guarding the task store
// against concurrent taskguard invocations. Hooks can fire close together, so
// every mutating command takes the lock before touching store state.
package filelock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
)

// ErrLocked indicates that another process holds the lock.
var ErrLocked = errors.New("store is locked by another process")

// staleAfter bounds how long a lockfile from a dead or wedged process is
// honored before being broken.
const staleAfter = 10 * time.Minute

// Lock is a held lockfile. Release it when the operation finishes.
type Lock struct {
	path string
}

// Acquire takes the lockfile at path, creating parent state as needed.
// A lockfile left by a dead process, or older than the staleness bound,
// is broken and re-acquired. Returns ErrLocked while a live process holds it.
func Acquire(path string) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, ok := holderPID(path)
		if ok && processAlive(holder) && !isStale(path) {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
		}

		// Holder is gone or the lock outlived the staleness bound.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to break stale lockfile: %w", err)
		}
	}
	return nil, ErrLocked
}

// Release removes the lockfile. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// holderPID reads the pid recorded in the lockfile.
func holderPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether the pid names a running process.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// isStale reports whether the lockfile is older than the staleness bound.
func isStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > staleAfter
}
