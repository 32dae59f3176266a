package cmd

import (
	"testing"

	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/task"
)

func seedActiveTask(t *testing.T, status task.Status) (*task.Store, *task.Record) {
	t.Helper()

	store := task.NewStore(t.TempDir())
	record := &task.Record{ID: 7, Title: "Add request tracing", Status: status}
	if err := store.Save(record); err != nil {
		t.Fatal(err)
	}
	if err := store.SetActive(record.ID); err != nil {
		t.Fatal(err)
	}
	return store, record
}

func TestApplyManualStatusPair(t *testing.T) {
	store, record := seedActiveTask(t, task.StatusInProgress)

	if err := applyManualStatus(store, record, task.StatusBlocked); err != nil {
		t.Fatalf("in_progress -> blocked failed: %v", err)
	}
	if err := applyManualStatus(store, record, task.StatusInProgress); err != nil {
		t.Fatalf("blocked -> in_progress failed: %v", err)
	}

	loaded, err := store.Load(record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != task.StatusInProgress {
		t.Errorf("persisted status = %s, want in_progress", loaded.Status)
	}
}

func TestApplyManualStatusRejectsCompleted(t *testing.T) {
	store, record := seedActiveTask(t, task.StatusInProgress)

	err := applyManualStatus(store, record, task.StatusCompleted)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// Neither the record nor the active pointer may change: completion is
	// the only path that may flip a task to completed.
	loaded, err := store.Load(record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != task.StatusInProgress {
		t.Errorf("persisted status = %s, want in_progress", loaded.Status)
	}
	id, err := store.ActiveID()
	if err != nil || id != record.ID {
		t.Errorf("active pointer disturbed: id=%d err=%v", id, err)
	}
}

func TestApplyManualStatusRejectsPlanning(t *testing.T) {
	store, record := seedActiveTask(t, task.StatusInProgress)

	if err := applyManualStatus(store, record, task.StatusPlanning); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApplyManualStatusRespectsStateMachine(t *testing.T) {
	store, record := seedActiveTask(t, task.StatusCompleted)

	// Allowlisted target, but the record's own transition rules still apply.
	if err := applyManualStatus(store, record, task.StatusBlocked); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}
