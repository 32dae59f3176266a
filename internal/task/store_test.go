package task

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/filelock"
)

func TestNextID(t *testing.T) {
	store := NewStore(t.TempDir())

	if got := store.NextID(); got != 1 {
		t.Errorf("NextID() on empty store = %d, want 1", got)
	}

	for _, id := range []int{1, 2, 5} {
		r := &Record{ID: id, Title: "t", Status: StatusPlanning}
		if err := store.Save(r); err != nil {
			t.Fatalf("Save(%d) failed: %v", id, err)
		}
	}

	// Gaps are never reused.
	if got := store.NextID(); got != 6 {
		t.Errorf("NextID() = %d, want 6", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	r := sampleRecord()

	if err := store.Save(r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(7)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Title != r.Title || loaded.Status != r.Status {
		t.Errorf("loaded record = %q/%s", loaded.Title, loaded.Status)
	}
}

func TestLoadMissingTask(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load(99)
	if !errors.Is(err, errors.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestActivePointerLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.ActiveID(); !errors.Is(err, errors.ErrNoActiveTask) {
		t.Errorf("expected ErrNoActiveTask on fresh store, got %v", err)
	}

	r := sampleRecord()
	if err := store.Save(r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.SetActive(r.ID); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := store.ActiveRecord()
	if err != nil {
		t.Fatalf("ActiveRecord failed: %v", err)
	}
	if active.ID != r.ID {
		t.Errorf("active record id = %d, want %d", active.ID, r.ID)
	}

	if err := store.ClearActive(); err != nil {
		t.Fatalf("ClearActive failed: %v", err)
	}
	if _, err := store.ActiveID(); !errors.Is(err, errors.ErrNoActiveTask) {
		t.Errorf("expected ErrNoActiveTask after clear, got %v", err)
	}

	// Clearing again is a no-op.
	if err := store.ClearActive(); err != nil {
		t.Errorf("second ClearActive failed: %v", err)
	}
}

func TestCorruptActivePointer(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	if err := os.WriteFile(filepath.Join(root, "ACTIVE"), []byte("garbage\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.ActiveID()
	if !errors.Is(err, errors.ErrTaskCorrupted) {
		t.Errorf("expected ErrTaskCorrupted, got %v", err)
	}
}

func TestAppendJournal(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	r := sampleRecord()
	r.Status = StatusCompleted
	r.CompletedAt = time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)

	if err := store.AppendJournal(r); err != nil {
		t.Fatalf("AppendJournal failed: %v", err)
	}
	if err := store.AppendJournal(r); err != nil {
		t.Fatalf("second AppendJournal failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "NO_ACTIVE_TASK.md"))
	if err != nil {
		t.Fatalf("journal missing: %v", err)
	}
	content := string(data)

	if strings.Count(content, "# No Active Task") != 1 {
		t.Error("journal header should be written exactly once")
	}
	if strings.Count(content, "TASK-007: Add request tracing") != 2 {
		t.Errorf("journal entries missing:\n%s", content)
	}
}

func TestList(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, id := range []int{3, 1, 2} {
		if err := store.Save(&Record{ID: id, Title: "t", Status: StatusPlanning}); err != nil {
			t.Fatalf("Save(%d) failed: %v", id, err)
		}
	}

	ids := store.List()
	want := []int{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("List() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("List() = %v, want %v", ids, want)
		}
	}
}

func TestStoreLock(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ".taskguard"))

	lock, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(filepath.Join(store.Root(), "LOCK")); err != nil {
		t.Errorf("lockfile not created under the store root: %v", err)
	}

	if _, err := store.Lock(); !errors.Is(err, filelock.ErrLocked) {
		t.Errorf("second Lock = %v, want ErrLocked", err)
	}
}
