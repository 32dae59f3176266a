package task

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/filelock"
)

const (
	tasksDirName      = "tasks"
	activePointerName = "ACTIVE"
	journalName       = "NO_ACTIVE_TASK.md"
	lockName          = "LOCK"
)

// taskFileRegex matches task document filenames and captures the numeric id.
var taskFileRegex = regexp.MustCompile(`^TASK-(\d+)\.md$`)

// Store reads and writes task documents under the taskguard directory.
//
// Layout:
//
//	<root>/tasks/TASK-<id>.md   one document per task
//	<root>/ACTIVE               the active-task pointer (external id)
//	<root>/NO_ACTIVE_TASK.md    journal appended when a task completes
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given taskguard directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Lock acquires the store-wide lockfile. Commands that mutate store state
// hold it for the duration of the operation.
func (s *Store) Lock() (*filelock.Lock, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, errors.NewTaskError("failed to create store directory", err)
	}
	return filelock.Acquire(filepath.Join(s.root, lockName))
}

// tasksDir returns the directory holding task documents.
func (s *Store) tasksDir() string {
	return filepath.Join(s.root, tasksDirName)
}

// taskPath returns the document path for a task id.
func (s *Store) taskPath(id int) string {
	return filepath.Join(s.tasksDir(), FormatID(id)+".md")
}

// NextID returns the next unassigned task id. IDs are monotonic: one greater
// than the highest id ever written, never a reused gap.
func (s *Store) NextID() int {
	entries, err := os.ReadDir(s.tasksDir())
	if err != nil {
		return 1
	}

	maxID := 0
	for _, entry := range entries {
		m := taskFileRegex.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Save writes a task document, creating the store directories as needed.
func (s *Store) Save(r *Record) error {
	if r.ID <= 0 {
		return errors.NewTaskError("record has no id", errors.ErrInvalidInput)
	}

	data, err := MarshalDocument(r)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.tasksDir(), 0755); err != nil {
		return errors.NewTaskError("failed to create tasks directory", err).WithTaskID(r.ExternalID())
	}

	if err := os.WriteFile(s.taskPath(r.ID), data, 0644); err != nil {
		return errors.NewTaskError("failed to write task document", err).WithTaskID(r.ExternalID())
	}
	return nil
}

// Load reads the task document for the given id.
func (s *Store) Load(id int) (*Record, error) {
	data, err := os.ReadFile(s.taskPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewTaskError("task document missing", errors.ErrTaskNotFound).
				WithTaskID(FormatID(id))
		}
		return nil, errors.NewTaskError("failed to read task document", err).WithTaskID(FormatID(id))
	}
	return UnmarshalDocument(data)
}

// ActiveID returns the id named by the active-task pointer.
// Returns errors.ErrNoActiveTask when the pointer is absent.
func (s *Store) ActiveID() (int, error) {
	data, err := os.ReadFile(filepath.Join(s.root, activePointerName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.ErrNoActiveTask
		}
		return 0, errors.NewTaskError("failed to read active pointer", err)
	}

	ref := strings.TrimSpace(string(data))
	if ref == "" {
		return 0, errors.ErrNoActiveTask
	}

	m := taskFileRegex.FindStringSubmatch(ref + ".md")
	if m == nil {
		return 0, errors.NewTaskError(
			fmt.Sprintf("active pointer holds unrecognized reference %q", ref), errors.ErrTaskCorrupted)
	}

	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.NewTaskError("active pointer holds invalid id", errors.ErrTaskCorrupted)
	}
	return id, nil
}

// ActiveRecord resolves and loads the active task.
func (s *Store) ActiveRecord() (*Record, error) {
	id, err := s.ActiveID()
	if err != nil {
		return nil, err
	}
	return s.Load(id)
}

// SetActive points the active-task pointer at the given id.
func (s *Store) SetActive(id int) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return errors.NewTaskError("failed to create store directory", err)
	}
	if err := os.WriteFile(filepath.Join(s.root, activePointerName), []byte(FormatID(id)+"\n"), 0644); err != nil {
		return errors.NewTaskError("failed to write active pointer", err).WithTaskID(FormatID(id))
	}
	return nil
}

// ClearActive removes the active-task pointer. Clearing an absent pointer
// is a no-op.
func (s *Store) ClearActive() error {
	err := os.Remove(filepath.Join(s.root, activePointerName))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewTaskError("failed to clear active pointer", err)
	}
	return nil
}

// AppendJournal appends a completion entry to the no-active-task document.
func (s *Store) AppendJournal(r *Record) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return errors.NewTaskError("failed to create store directory", err)
	}

	path := filepath.Join(s.root, journalName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewTaskError("failed to open journal", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewTaskError("failed to stat journal", err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString("# No Active Task\n\nCompleted tasks, most recent last.\n"); err != nil {
			return errors.NewTaskError("failed to write journal header", err)
		}
	}

	completed := r.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	entry := fmt.Sprintf("\n- %s: %s (completed %s)\n",
		r.ExternalID(), r.Title, completed.Format(time.RFC3339))
	if _, err := f.WriteString(entry); err != nil {
		return errors.NewTaskError("failed to append journal entry", err).WithTaskID(r.ExternalID())
	}
	return nil
}

// List returns all stored task ids in ascending order.
func (s *Store) List() []int {
	entries, err := os.ReadDir(s.tasksDir())
	if err != nil {
		return nil
	}

	var ids []int
	for _, entry := range entries {
		m := taskFileRegex.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if id, err := strconv.Atoi(m[1]); err == nil {
			ids = append(ids, id)
		}
	}

	sort.Ints(ids)
	return ids
}
