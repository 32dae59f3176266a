package completion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/gitx"
	"github.com/taskguard/taskguard/internal/task"
	"github.com/taskguard/taskguard/internal/testutil"
	"github.com/taskguard/taskguard/internal/validate"
)

type fakeClient struct {
	response string
	err      error
}

func (c *fakeClient) Prompt(_ context.Context, _ string, _ gen.Tier) (gen.Result, error) {
	if c.err != nil {
		return gen.Result{}, c.err
	}
	return gen.Result{Text: c.response, Success: true}, nil
}

const summaryResponse = `{"summary": "Added the login endpoint and password hashing as required."}`

type fixture struct {
	repo       string
	store      *task.Store
	inspector  *gitx.Inspector
	controller *Controller
	cfg        *config.Config
}

func newFixture(t *testing.T, repo string, validation config.ValidationConfig) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Validation = validation

	store := task.NewStore(t.TempDir())
	inspector := gitx.NewInspector(repo)
	branches := gitx.NewBranchManager(repo)
	validator := validate.NewRunner(repo, cfg.Validation, nil)
	client := &fakeClient{response: summaryResponse}

	return &fixture{
		repo:       repo,
		store:      store,
		inspector:  inspector,
		cfg:        cfg,
		controller: NewController(client, inspector, branches, store, validator, nil, nil, cfg, nil),
	}
}

func (f *fixture) activateTask(t *testing.T, status task.Status) *task.Record {
	t.Helper()

	record := &task.Record{
		ID:     1,
		Title:  "Add authentication",
		Status: status,
		Requirements: []task.Requirement{
			{Text: "add login endpoint", Done: true},
		},
		BranchName: "feature/add-auth-001",
	}
	if err := f.store.Save(record); err != nil {
		t.Fatal(err)
	}
	if err := f.store.SetActive(record.ID); err != nil {
		t.Fatal(err)
	}
	return record
}

func wipSubject(msg string) string {
	return fmt.Sprintf("%s TASK-001: %s", gitx.WIPMarker, msg)
}

// setupSession puts the repo on a task branch with two WIP checkpoints.
func setupSession(t *testing.T, repo string) (baseline string) {
	t.Helper()

	baseline = testutil.Head(t, repo)
	testutil.CreateBranch(t, repo, "feature/add-auth-001")
	testutil.CommitFile(t, repo, "auth/login.go", "package auth\n", wipSubject("add login endpoint"))
	testutil.CommitFile(t, repo, "auth/hash.go", "package auth\n", wipSubject("hash passwords"))
	return baseline
}

func TestCompleteHappyPath(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	baseline := setupSession(t, repo)
	f := newFixture(t, repo, config.ValidationConfig{Test: "true", TimeoutSeconds: 10})
	f.activateTask(t, task.StatusInProgress)

	preSquashTree := testutil.TreeHash(t, repo, "HEAD")

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if report.Outcome != OutcomeDone {
		t.Errorf("outcome = %s, want done (warnings: %v)", report.Outcome, report.Warnings)
	}
	if !report.Git.SquashPerformed {
		t.Fatalf("squash not performed: %s", report.Git.SkipReason)
	}
	// Squash preserves the tree bit for bit.
	if got := testutil.TreeHash(t, repo, report.Git.CommitRef); got != preSquashTree {
		t.Errorf("squash changed the tree: %s != %s", got, preSquashTree)
	}
	if got := f.inspector.TreeHash(baseline); got == preSquashTree {
		t.Fatal("test setup broken: baseline tree equals tip tree")
	}

	// Direct merge landed on main.
	if report.Git.Integration != DirectMerge || report.Git.MergedInto != "main" {
		t.Errorf("integration = %s into %q", report.Git.Integration, report.Git.MergedInto)
	}
	if got := testutil.CurrentBranch(t, repo); got != "main" {
		t.Errorf("current branch = %q, want main", got)
	}

	// Record flipped, pointer cleared, journal appended.
	record, err := f.store.Load(1)
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != task.StatusCompleted || record.CompletedAt.IsZero() {
		t.Errorf("record = %s completed_at=%v", record.Status, record.CompletedAt)
	}
	if record.CompletionSummary == "" {
		t.Error("completion summary not written")
	}
	if _, err := f.store.ActiveID(); !errors.Is(err, errors.ErrNoActiveTask) {
		t.Error("active pointer not cleared")
	}
	journal, err := os.ReadFile(filepath.Join(f.store.Root(), "NO_ACTIVE_TASK.md"))
	if err != nil || !strings.Contains(string(journal), "TASK-001") {
		t.Errorf("journal entry missing: %v", err)
	}
}

func TestCompleteValidationFailureBlocksEverything(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	setupSession(t, repo)
	f := newFixture(t, repo, config.ValidationConfig{
		Lint:           "echo unused variable; exit 1",
		TimeoutSeconds: 10,
	})
	f.activateTask(t, task.StatusInProgress)

	commitsBefore := testutil.CommitCount(t, repo)
	tipBefore := testutil.Head(t, repo)

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("a failing check is a content failure, not an error: %v", err)
	}

	if report.Outcome != OutcomeBlocked {
		t.Errorf("outcome = %s, want blocked", report.Outcome)
	}
	if report.Validation.AllPassed() {
		t.Error("report should carry the failing check")
	}

	// No git mutation of any kind.
	if testutil.CommitCount(t, repo) != commitsBefore || testutil.Head(t, repo) != tipBefore {
		t.Error("validation failure was followed by a git mutation")
	}
	if got := testutil.CurrentBranch(t, repo); got != "feature/add-auth-001" {
		t.Errorf("branch changed to %q", got)
	}

	// No status flip, pointer intact: completion can be retried.
	record, err := f.store.ActiveRecord()
	if err != nil {
		t.Fatalf("active pointer lost: %v", err)
	}
	if record.Status != task.StatusInProgress {
		t.Errorf("status flipped to %s", record.Status)
	}
}

func TestCompleteSkipsSquashOnManualCommit(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	setupSession(t, repo)
	testutil.CommitFile(t, repo, "manual.go", "package manual\n", "hand-authored fix")
	f := newFixture(t, repo, config.ValidationConfig{})
	f.activateTask(t, task.StatusInProgress)

	commitsBefore := testutil.CommitCount(t, repo)

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if report.Git.SquashPerformed {
		t.Error("squash must not fire across hand-authored commits")
	}
	if report.Git.SkipReason == "" {
		t.Error("skip reason missing from report")
	}
	if report.Outcome != OutcomeDoneWithWarnings {
		t.Errorf("outcome = %s, want done_with_warnings", report.Outcome)
	}

	// History preserved: merge adds commits but rewrites nothing.
	testutil.CheckoutBranch(t, repo, "feature/add-auth-001")
	if testutil.CommitCount(t, repo) != commitsBefore {
		t.Error("task branch history was rewritten")
	}
}

func TestCompleteSkipsSquashOnDirtyTree(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	setupSession(t, repo)
	testutil.WriteFile(t, repo, "pending.go", "package pending\n")
	f := newFixture(t, repo, config.ValidationConfig{})
	f.activateTask(t, task.StatusInProgress)

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if report.Git.SquashPerformed {
		t.Error("squash must not fire with a dirty tree")
	}
	if !strings.Contains(report.Git.SkipReason, "uncommitted") {
		t.Errorf("skip reason = %q", report.Git.SkipReason)
	}
}

func TestCompleteSquashWithNetZeroDiff(t *testing.T) {
	repo := testutil.SetupTestRepo(t)

	// Two checkpoints that cancel out: the session tree equals the
	// baseline tree, so the reset leaves nothing to commit.
	baseline := testutil.Head(t, repo)
	testutil.CreateBranch(t, repo, "feature/add-auth-001")
	testutil.CommitFile(t, repo, "README.md", "# Reworked\n", wipSubject("rework readme"))
	testutil.CommitFile(t, repo, "README.md", "# Test Repository\n", wipSubject("restore readme"))

	f := newFixture(t, repo, config.ValidationConfig{})
	f.activateTask(t, task.StatusInProgress)

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if !report.Git.SquashPerformed {
		t.Fatalf("empty squash not reported as performed: %s", report.Git.SkipReason)
	}
	if report.Git.CommitRef != baseline {
		t.Errorf("commit ref = %s, want baseline %s", report.Git.CommitRef, baseline)
	}
	// The checkpoint commits are gone and the branch sits on the baseline.
	if got := testutil.CommitCount(t, repo); got != 1 {
		t.Errorf("commit count = %d, want 1", got)
	}
}

func TestCompleteFromPlanningBlocks(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	f := newFixture(t, repo, config.ValidationConfig{})
	record := f.activateTask(t, task.StatusPlanning)

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if report.Outcome != OutcomeBlocked {
		t.Errorf("outcome = %s, want blocked", report.Outcome)
	}
	if len(report.Warnings) == 0 || !strings.Contains(report.Warnings[0], "planning") {
		t.Errorf("warnings = %v, want a reason naming the status", report.Warnings)
	}

	// Nothing was mutated: status and pointer untouched.
	loaded, err := f.store.Load(record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != task.StatusPlanning {
		t.Errorf("status = %s, want planning", loaded.Status)
	}
	if id, err := f.store.ActiveID(); err != nil || id != record.ID {
		t.Errorf("active pointer disturbed: id=%d err=%v", id, err)
	}
}

func TestCompleteAlreadyCompletedIsNoOp(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	f := newFixture(t, repo, config.ValidationConfig{})
	record := f.activateTask(t, task.StatusInProgress)

	record.Status = task.StatusCompleted
	record.CompletionSummary = "done earlier"
	if err := f.store.Save(record); err != nil {
		t.Fatal(err)
	}

	commitsBefore := testutil.CommitCount(t, repo)
	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("re-complete must be a no-op, got %v", err)
	}

	if !report.AlreadyCompleted {
		t.Error("AlreadyCompleted not set")
	}
	if testutil.CommitCount(t, repo) != commitsBefore {
		t.Error("re-complete mutated the repository")
	}
}

func TestCompleteNoActiveTask(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	f := newFixture(t, repo, config.ValidationConfig{})

	_, err := f.controller.Complete(context.Background())
	if !errors.Is(err, errors.ErrNoActiveTask) {
		t.Errorf("expected ErrNoActiveTask, got %v", err)
	}
}

func TestCompletePullRequestPath(t *testing.T) {
	repo, _ := testutil.SetupTestRepoWithRemote(t)
	setupSession(t, repo)
	f := newFixture(t, repo, config.ValidationConfig{})
	f.cfg.Integration.Mode = config.IntegrationPR
	record := f.activateTask(t, task.StatusInProgress)
	record.Issue = task.IssueRef{Number: 42, URL: "https://github.com/acme/svc/issues/42"}
	if err := f.store.Save(record); err != nil {
		t.Fatal(err)
	}

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if report.Git.Integration != PullRequestPush {
		t.Fatalf("integration = %s, want pull_request_push", report.Git.Integration)
	}
	if !report.Git.Pushed {
		t.Errorf("branch not pushed (warnings: %v)", report.Warnings)
	}
	// The branch stays unmerged on the PR path.
	if got := testutil.CurrentBranch(t, repo); got != "feature/add-auth-001" {
		t.Errorf("current branch = %q, want the task branch", got)
	}

	opts := report.Git.PullRequest
	if opts == nil {
		t.Fatal("PR metadata missing from report")
	}
	if opts.Title != "TASK-001: Add authentication" {
		t.Errorf("PR title = %q", opts.Title)
	}
	if opts.Base != "main" || opts.Branch != "feature/add-auth-001" {
		t.Errorf("PR refs = %q onto %q", opts.Branch, opts.Base)
	}
	if !strings.Contains(opts.Body, "Closes #42") {
		t.Errorf("PR body missing closes-line:\n%s", opts.Body)
	}
}

func TestCompleteSummaryFallback(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	setupSession(t, repo)
	f := newFixture(t, repo, config.ValidationConfig{})
	f.activateTask(t, task.StatusInProgress)

	f.controller.client = &fakeClient{err: errors.NewGenerationError("down", errors.ErrGenerationUnavailable)}

	report, err := f.controller.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if report.Summary == "" {
		t.Error("deterministic summary fallback missing")
	}
	if !strings.Contains(report.Summary, "Add authentication") {
		t.Errorf("fallback summary = %q", report.Summary)
	}
}
