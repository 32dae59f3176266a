package task

import (
	"testing"

	"github.com/taskguard/taskguard/internal/errors"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPlanning, StatusInProgress, true},
		{StatusPlanning, StatusCompleted, false},
		{StatusPlanning, StatusBlocked, false},
		{StatusInProgress, StatusBlocked, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusPlanning, false},
		{StatusBlocked, StatusInProgress, true},
		{StatusBlocked, StatusCompleted, true},
		{StatusBlocked, StatusPlanning, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusBlocked, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTransitionToCompletedSetsTimestamp(t *testing.T) {
	r := &Record{ID: 1, Status: StatusInProgress}

	if err := r.TransitionTo(StatusCompleted); err != nil {
		t.Fatalf("TransitionTo(completed) failed: %v", err)
	}
	if r.CompletedAt.IsZero() {
		t.Error("CompletedAt not set on completion")
	}
}

func TestRecompleteIsDetectable(t *testing.T) {
	r := &Record{ID: 2, Status: StatusCompleted}

	err := r.TransitionTo(StatusCompleted)
	if !errors.Is(err, errors.ErrTaskAlreadyCompleted) {
		t.Errorf("expected ErrTaskAlreadyCompleted, got %v", err)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	r := &Record{ID: 3, Status: StatusPlanning}

	err := r.TransitionTo(StatusCompleted)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if r.Status != StatusPlanning {
		t.Errorf("status changed on rejected transition: %s", r.Status)
	}
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{1, "TASK-001"},
		{42, "TASK-042"},
		{1234, "TASK-1234"},
	}
	for _, tt := range tests {
		if got := FormatID(tt.id); got != tt.want {
			t.Errorf("FormatID(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
