package gitx

import (
	"fmt"
	"testing"

	"github.com/taskguard/taskguard/internal/testutil"
)

func wipSubject(id int, msg string) string {
	return fmt.Sprintf("%s TASK-%03d: %s", WIPMarker, id, msg)
}

func TestIsWipSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"[tg-wip] TASK-001: add parser", true},
		{"[tg-wip] session checkpoint", true},
		{"fix: resolve parser panic", false},
		{"", false},
		{"mentions tg-wip without brackets", false},
	}

	for _, tt := range tests {
		if got := IsWipSubject(tt.subject); got != tt.want {
			t.Errorf("IsWipSubject(%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}

func TestDefaultBranchOverride(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	inspector := NewInspector(repo)

	if got := inspector.DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch() = %q, want main", got)
	}

	inspector.SetDefaultBranchOverride("trunk")
	if got := inspector.DefaultBranch(); got != "trunk" {
		t.Errorf("DefaultBranch() with override = %q, want trunk", got)
	}
}

func TestCurrentBranch(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	testutil.CreateBranch(t, repo, "feature/thing-001")

	inspector := NewInspector(repo)
	if got := inspector.CurrentBranch(); got != "feature/thing-001" {
		t.Errorf("CurrentBranch() = %q, want feature/thing-001", got)
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	inspector := NewInspector(repo)

	if inspector.HasUncommittedChanges() {
		t.Error("fresh repo should have a clean tree")
	}

	testutil.WriteFile(t, repo, "dirty.txt", "uncommitted")
	if !inspector.HasUncommittedChanges() {
		t.Error("expected dirty tree after writing a file")
	}
}

func TestBaselineAndWipCommits(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	inspector := NewInspector(repo)

	baseline := testutil.Head(t, repo)

	// No WIP history: the tip itself is the baseline.
	if got := inspector.BaselineCommit(); got != baseline {
		t.Errorf("BaselineCommit() = %q, want %q", got, baseline)
	}
	if wip := inspector.WipCommits(); len(wip) != 0 {
		t.Errorf("WipCommits() = %d commits, want 0", len(wip))
	}

	testutil.CommitFile(t, repo, "a.txt", "a", wipSubject(1, "first checkpoint"))
	testutil.CommitFile(t, repo, "b.txt", "b", wipSubject(1, "second checkpoint"))

	if got := inspector.BaselineCommit(); got != baseline {
		t.Errorf("BaselineCommit() after WIP commits = %q, want %q", got, baseline)
	}

	wip := inspector.WipCommits()
	if len(wip) != 2 {
		t.Fatalf("WipCommits() = %d commits, want 2", len(wip))
	}
	// Oldest first.
	if wip[0].Subject != wipSubject(1, "first checkpoint") {
		t.Errorf("oldest WIP commit = %q", wip[0].Subject)
	}
	if wip[1].Subject != wipSubject(1, "second checkpoint") {
		t.Errorf("newest WIP commit = %q", wip[1].Subject)
	}
	for _, c := range wip {
		if !c.IsWip() {
			t.Errorf("commit %q in WIP range without marker", c.Subject)
		}
	}
}

func TestManualCommitResetsBaseline(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	inspector := NewInspector(repo)

	testutil.CommitFile(t, repo, "a.txt", "a", wipSubject(2, "checkpoint"))
	testutil.CommitFile(t, repo, "b.txt", "b", "manual: hand-authored commit")

	manual := testutil.Head(t, repo)
	if got := inspector.BaselineCommit(); got != manual {
		t.Errorf("BaselineCommit() = %q, want the manual tip %q", got, manual)
	}
	if wip := inspector.WipCommits(); len(wip) != 0 {
		t.Errorf("WipCommits() = %d commits, want 0 when tip is manual", len(wip))
	}
}

func TestSessionState(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	testutil.CreateBranch(t, repo, "feature/work-003")
	testutil.CommitFile(t, repo, "a.txt", "a", wipSubject(3, "checkpoint"))
	testutil.WriteFile(t, repo, "dirty.txt", "pending")

	inspector := NewInspector(repo)
	state := inspector.SessionState()

	if state.DefaultBranch != "main" {
		t.Errorf("DefaultBranch = %q, want main", state.DefaultBranch)
	}
	if state.CurrentBranch != "feature/work-003" {
		t.Errorf("CurrentBranch = %q", state.CurrentBranch)
	}
	if len(state.WipCommits) != 1 {
		t.Errorf("WipCommits = %d, want 1", len(state.WipCommits))
	}
	if !state.HasUncommittedChanges {
		t.Error("expected uncommitted changes")
	}
}

func TestDiffSince(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	inspector := NewInspector(repo)
	baseline := testutil.Head(t, repo)

	testutil.CommitFile(t, repo, "pkg/a.go", "package a\n", wipSubject(4, "add pkg a"))

	diff := inspector.DiffSince(baseline)
	if diff == "" {
		t.Fatal("DiffSince returned empty diff for a real change")
	}
	files := inspector.ChangedFilesSince(baseline)
	if len(files) != 1 || files[0] != "pkg/a.go" {
		t.Errorf("ChangedFilesSince = %v, want [pkg/a.go]", files)
	}
	if stat := inspector.DiffStatSince(baseline); stat == "" {
		t.Error("DiffStatSince returned empty stat")
	}
}

func TestInspectorAbsorbsFailures(t *testing.T) {
	// Not a repository at all: every accessor degrades to a zero value.
	inspector := NewInspector(t.TempDir())

	if got := inspector.BaselineCommit(); got != "" {
		t.Errorf("BaselineCommit() outside a repo = %q, want empty", got)
	}
	if wip := inspector.WipCommits(); len(wip) != 0 {
		t.Errorf("WipCommits() outside a repo = %v, want none", wip)
	}
	if inspector.HasUncommittedChanges() {
		t.Error("HasUncommittedChanges() outside a repo should be false")
	}
	if got := inspector.DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch() outside a repo = %q, want the main fallback", got)
	}
}
