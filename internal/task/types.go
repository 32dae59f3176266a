// Package task owns the durable task record: its document format, its
// status state machine, and the store that reads and writes task documents
// and the active-task pointer. No other component touches these files
// directly; every read-modify-write goes through the Store.
package task

import (
	"fmt"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
)

// Status is the lifecycle state of a task record.
type Status string

const (
	// StatusPlanning is the initial state after plan capture.
	StatusPlanning Status = "planning"
	// StatusInProgress means work on the task has started.
	StatusInProgress Status = "in_progress"
	// StatusBlocked means work is paused on an external dependency.
	StatusBlocked Status = "blocked"
	// StatusCompleted is terminal.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> target is allowed.
//
// The machine is planning -> in_progress -> completed, with blocked reachable
// from in_progress and returning to in_progress. Completion is only valid
// from in_progress or blocked.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPlanning:
		return target == StatusInProgress
	case StatusInProgress:
		return target == StatusBlocked || target == StatusCompleted
	case StatusBlocked:
		return target == StatusInProgress || target == StatusCompleted
	case StatusCompleted:
		return false
	}
	return false
}

// Requirement is a single checklist item on a task.
type Requirement struct {
	Text string
	Done bool
}

// IssueRef is an opaque reference to an external tracker issue.
type IssueRef struct {
	Number int    `yaml:"number,omitempty"`
	URL    string `yaml:"url,omitempty"`
}

// Record is the durable unit of work.
type Record struct {
	ID              int
	Title           string
	Purpose         string
	Status          Status
	Requirements    []Requirement
	SuccessCriteria []string
	CurrentFocus    string
	OpenQuestions   []string
	BranchName      string
	StartedAt       time.Time
	CompletedAt     time.Time
	Issue           IssueRef
	// CompletionSummary is the body of the Completion Summary section,
	// written once the task completes.
	CompletionSummary string
}

// ExternalID returns the zero-padded external representation, e.g. "TASK-007".
func (r *Record) ExternalID() string {
	return FormatID(r.ID)
}

// FormatID formats a numeric task id in its external zero-padded form.
func FormatID(id int) string {
	return fmt.Sprintf("TASK-%03d", id)
}

// TransitionTo applies a status transition, enforcing the state machine.
// Transitioning a completed task to completed again returns
// errors.ErrTaskAlreadyCompleted so callers can treat it as a no-op.
func (r *Record) TransitionTo(target Status) error {
	if !target.Valid() {
		return errors.NewTaskError(fmt.Sprintf("unknown status %q", target), errors.ErrInvalidTransition).
			WithTaskID(r.ExternalID())
	}

	if r.Status == StatusCompleted && target == StatusCompleted {
		return errors.NewTaskError("task already completed", errors.ErrTaskAlreadyCompleted).
			WithTaskID(r.ExternalID())
	}

	if !r.Status.CanTransitionTo(target) {
		return errors.NewTaskError(
			fmt.Sprintf("cannot transition from %s to %s", r.Status, target),
			errors.ErrInvalidTransition).
			WithTaskID(r.ExternalID())
	}

	r.Status = target
	if target == StatusCompleted {
		r.CompletedAt = time.Now().UTC()
	}
	return nil
}

// Completable reports whether completion is valid from the current status.
func (r *Record) Completable() bool {
	return r.Status == StatusInProgress || r.Status == StatusBlocked
}

// RequirementsText renders the requirements as a plain checklist, used when
// building classification prompts.
func (r *Record) RequirementsText() string {
	if len(r.Requirements) == 0 {
		return "(no requirements recorded)"
	}

	out := ""
	for _, req := range r.Requirements {
		mark := " "
		if req.Done {
			mark = "x"
		}
		out += fmt.Sprintf("- [%s] %s\n", mark, req.Text)
	}
	return out
}
