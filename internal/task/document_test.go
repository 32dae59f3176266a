package task

import (
	"strings"
	"testing"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
)

func sampleRecord() *Record {
	return &Record{
		ID:      7,
		Title:   "Add request tracing",
		Purpose: "Trace requests across service boundaries.",
		Status:  StatusInProgress,
		Requirements: []Requirement{
			{Text: "propagate trace ids", Done: true},
			{Text: "emit span events", Done: false},
		},
		SuccessCriteria: []string{"traces visible end to end"},
		CurrentFocus:    "span event emission",
		OpenQuestions:   []string{"sampling rate?"},
		BranchName:      "feature/add-request-tracing-007",
		StartedAt:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Issue:           IssueRef{Number: 42, URL: "https://github.com/acme/svc/issues/42"},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	original := sampleRecord()

	data, err := MarshalDocument(original)
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}

	parsed, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument failed: %v", err)
	}

	if parsed.ID != original.ID || parsed.Title != original.Title {
		t.Errorf("identity fields lost: got %d %q", parsed.ID, parsed.Title)
	}
	if parsed.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", parsed.Status)
	}
	if parsed.BranchName != original.BranchName {
		t.Errorf("branch = %q, want %q", parsed.BranchName, original.BranchName)
	}
	if parsed.Purpose != original.Purpose {
		t.Errorf("purpose = %q", parsed.Purpose)
	}
	if len(parsed.Requirements) != 2 {
		t.Fatalf("requirements = %d, want 2", len(parsed.Requirements))
	}
	if !parsed.Requirements[0].Done || parsed.Requirements[1].Done {
		t.Errorf("requirement done flags lost: %+v", parsed.Requirements)
	}
	if parsed.CurrentFocus != original.CurrentFocus {
		t.Errorf("current focus = %q", parsed.CurrentFocus)
	}
	if len(parsed.OpenQuestions) != 1 || parsed.OpenQuestions[0] != "sampling rate?" {
		t.Errorf("open questions = %v", parsed.OpenQuestions)
	}
	if parsed.Issue.Number != 42 || parsed.Issue.URL != original.Issue.URL {
		t.Errorf("issue ref = %+v", parsed.Issue)
	}
	if !parsed.StartedAt.Equal(original.StartedAt) {
		t.Errorf("started_at = %v, want %v", parsed.StartedAt, original.StartedAt)
	}
}

func TestDocumentSectionOrder(t *testing.T) {
	data, err := MarshalDocument(sampleRecord())
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}

	doc := string(data)
	sections := []string{
		"# TASK-007: Add request tracing",
		"## Purpose",
		"## Status",
		"## Requirements",
		"## Success Criteria",
		"## Current Focus",
		"## Open Questions",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(doc, section)
		if idx == -1 {
			t.Fatalf("document missing %q", section)
		}
		if idx < last {
			t.Errorf("%q out of order", section)
		}
		last = idx
	}

	// Completion Summary only appears once completed.
	if strings.Contains(doc, "## Completion Summary") {
		t.Error("in-progress document should not carry a Completion Summary section")
	}
}

func TestDocumentCompletionSummary(t *testing.T) {
	r := sampleRecord()
	r.Status = StatusCompleted
	r.CompletedAt = time.Date(2026, 8, 2, 18, 30, 0, 0, time.UTC)
	r.CompletionSummary = "Tracing propagates across all three services."

	data, err := MarshalDocument(r)
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}
	if !strings.Contains(string(data), "## Completion Summary") {
		t.Fatal("completed document missing Completion Summary section")
	}

	parsed, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument failed: %v", err)
	}
	if parsed.CompletionSummary != r.CompletionSummary {
		t.Errorf("completion summary = %q", parsed.CompletionSummary)
	}
	if !parsed.CompletedAt.Equal(r.CompletedAt) {
		t.Errorf("completed_at = %v", parsed.CompletedAt)
	}
}

func TestDocumentEmptyCollections(t *testing.T) {
	r := &Record{ID: 9, Title: "Bare task", Status: StatusPlanning}

	data, err := MarshalDocument(r)
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}

	parsed, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument failed: %v", err)
	}
	if len(parsed.Requirements) != 0 {
		t.Errorf("placeholder parsed as requirements: %+v", parsed.Requirements)
	}
	if parsed.CurrentFocus != "" {
		t.Errorf("placeholder parsed as focus: %q", parsed.CurrentFocus)
	}
}

func TestUnmarshalCorruptDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no frontmatter", "# TASK-001: title\n\n## Purpose\n\nx\n"},
		{"unterminated frontmatter", "---\nid: 1\ntitle: x\n"},
		{"missing id", "---\ntitle: x\nstatus: planning\n---\n\n# x\n"},
		{"invalid status", "---\nid: 1\ntitle: x\nstatus: bogus\n---\n\n# x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDocument([]byte(tt.data))
			if !errors.Is(err, errors.ErrTaskCorrupted) {
				t.Errorf("expected ErrTaskCorrupted, got %v", err)
			}
		})
	}
}
