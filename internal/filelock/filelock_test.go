package filelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/taskguard/taskguard/internal/errors"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "LOCK")
}

func TestAcquireAndRelease(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lockfile not created: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lockfile not removed on release")
	}
}

func TestAcquireContendedByLiveProcess(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	// This test process holds the lock and is alive.
	if _, err := Acquire(path); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire = %v, want ErrLocked", err)
	}
}

func TestAcquireBreaksDeadHolderLock(t *testing.T) {
	path := lockPath(t)

	// Large pids are outside the default pid range on test systems.
	if err := os.WriteFile(path, []byte("999999999 2026-01-01T00:00:00Z\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should break a dead holder's lock: %v", err)
	}
	lock.Release()
}

func TestAcquireBreaksCorruptLock(t *testing.T) {
	path := lockPath(t)

	if err := os.WriteFile(path, []byte("garbage\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should break an unreadable lock: %v", err)
	}
	lock.Release()
}

func TestReleaseTwiceIsNoOp(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release = %v, want nil", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	lock.Release()

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}
	again.Release()
}
