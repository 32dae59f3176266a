// Package completion closes out the active task: it validates the work,
// collapses the session's WIP history into a single commit, flips the task
// record to completed, and integrates the branch by direct merge or by
// pushing for a pull request.
//
// Content failures (a lint error, a failed test) are carried in the report
// so the invoking surface can present them. Structural failures (the
// repository becoming unwritable, a merge conflict) propagate as errors.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/gitx"
	"github.com/taskguard/taskguard/internal/issue"
	"github.com/taskguard/taskguard/internal/logging"
	"github.com/taskguard/taskguard/internal/pr"
	"github.com/taskguard/taskguard/internal/task"
	"github.com/taskguard/taskguard/internal/validate"
)

// Outcome summarizes how a completion attempt ended.
type Outcome string

const (
	// OutcomeDone means the task completed cleanly.
	OutcomeDone Outcome = "done"
	// OutcomeDoneWithWarnings means the task completed but some
	// non-essential step was skipped or degraded.
	OutcomeDoneWithWarnings Outcome = "done_with_warnings"
	// OutcomeBlocked means a precondition or validation check failed and
	// nothing was mutated.
	OutcomeBlocked Outcome = "blocked"
)

// IntegrationKind identifies how the completed branch was integrated.
type IntegrationKind string

const (
	// DirectMerge merges the task branch into the default branch locally.
	DirectMerge IntegrationKind = "direct_merge"
	// PullRequestPush pushes the branch and prepares pull request metadata.
	PullRequestPush IntegrationKind = "pull_request_push"
)

// GitReport describes the git side of a completion.
type GitReport struct {
	// SquashPerformed is true when the WIP history was collapsed into a
	// single commit; SkipReason says why when it was not.
	SquashPerformed bool
	SkipReason      string
	CommitRef       string

	Integration IntegrationKind
	// MergedInto is set on the direct-merge path.
	MergedInto string
	// Pushed, PullRequest, and PullRequestURL are set on the PR path.
	Pushed         bool
	PullRequest    *pr.Options
	PullRequestURL string
}

// Report is the result of one completion attempt.
type Report struct {
	TaskID  string
	Title   string
	Outcome Outcome
	// AlreadyCompleted is true when the task had been completed before
	// this invocation; nothing was changed.
	AlreadyCompleted bool
	Validation       validate.Results
	Git              GitReport
	Summary          string
	Warnings         []string
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

const summaryPrompt = `Summarize this completed engineering task for its final commit.

Task: %s

Requirements:
%s

Change stat:
%s

Respond ONLY with valid JSON in this exact format:
{"summary": "two to four sentences describing what was done and how it satisfies the requirements"}

Do not include any text outside the JSON object.`

// Controller drives task completion.
type Controller struct {
	client    gen.Client
	inspector *gitx.Inspector
	branches  *gitx.BranchManager
	store     *task.Store
	validator *validate.Runner
	issues    *issue.Service
	prs       *pr.Creator
	cfg       *config.Config
	logger    *logging.Logger
}

// NewController creates a Controller. The issue service and PR creator may
// be nil when the corresponding integrations are disabled.
func NewController(client gen.Client, inspector *gitx.Inspector, branches *gitx.BranchManager, store *task.Store, validator *validate.Runner, issues *issue.Service, prs *pr.Creator, cfg *config.Config, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller{
		client:    client,
		inspector: inspector,
		branches:  branches,
		store:     store,
		validator: validator,
		issues:    issues,
		prs:       prs,
		cfg:       cfg,
		logger:    logger.WithOperation("completion"),
	}
}

// Complete runs the completion sequence for the active task.
//
// Validation runs first and a failure stops everything before any git
// mutation. The squash only fires when the whole commit range since the
// baseline was produced by review passes and the tree is clean; otherwise
// the history is left untouched and the report says why.
func (c *Controller) Complete(ctx context.Context) (*Report, error) {
	record, err := c.store.ActiveRecord()
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithTask(record.ExternalID())
	report := &Report{
		TaskID: record.ExternalID(),
		Title:  record.Title,
	}

	if record.Status == task.StatusCompleted {
		report.AlreadyCompleted = true
		report.Outcome = OutcomeDone
		report.Summary = record.CompletionSummary
		return report, nil
	}
	if !record.Completable() {
		report.Outcome = OutcomeBlocked
		report.warn("cannot complete task in status %q, no work has started", record.Status)
		logger.Warn("completion blocked", "status", string(record.Status))
		return report, nil
	}

	results := c.validator.Run(ctx)
	report.Validation = results
	if !results.AllPassed() {
		report.Outcome = OutcomeBlocked
		for _, failed := range results.Failed() {
			logger.Warn("validation check failed", "check", failed.Name)
		}
		return report, nil
	}

	state := c.inspector.SessionState()
	summary := c.generateSummary(ctx, record, state.BaselineCommit)
	report.Summary = summary

	c.squash(record, state, summary, report, logger)

	record.CompletionSummary = summary
	if err := record.TransitionTo(task.StatusCompleted); err != nil {
		return report, err
	}
	if err := c.store.Save(record); err != nil {
		return report, err
	}
	if err := c.store.ClearActive(); err != nil {
		return report, err
	}
	if err := c.store.AppendJournal(record); err != nil {
		report.warn("failed to append journal entry: %v", err)
	}

	if err := c.integrate(ctx, record, state, report, logger); err != nil {
		return report, err
	}

	if c.issues != nil && record.Issue.URL != "" {
		if err := c.issues.Close(ctx, record.Issue.URL); err != nil {
			report.warn("failed to close linked issue: %v", err)
		}
	}

	if len(report.Warnings) > 0 || (!report.Git.SquashPerformed && report.Git.SkipReason != "") {
		report.Outcome = OutcomeDoneWithWarnings
	} else {
		report.Outcome = OutcomeDone
	}

	logger.Info("task completed",
		"outcome", string(report.Outcome),
		"squashed", report.Git.SquashPerformed,
		"integration", string(report.Git.Integration))
	return report, nil
}

// squash collapses the WIP range into one commit when the precondition
// holds. This is the only point in the system that rewrites history, and it
// only rewrites commits the review passes created.
func (c *Controller) squash(record *task.Record, state gitx.SessionState, summary string, report *Report, logger *logging.Logger) {
	switch {
	case state.HasUncommittedChanges:
		report.Git.SkipReason = "working tree has uncommitted changes"
	case len(state.WipCommits) == 0 && c.inspector.Tip() != state.BaselineCommit:
		report.Git.SkipReason = "commit range contains commits not created by review passes"
	case len(state.WipCommits) == 0:
		report.Git.SkipReason = "no session commits to squash"
	}
	if report.Git.SkipReason != "" {
		logger.Info("squash skipped", "reason", report.Git.SkipReason)
		return
	}

	message := fmt.Sprintf("%s: %s\n\n%s", record.ExternalID(), record.Title, summary)
	if err := c.branches.SoftReset(state.BaselineCommit); err != nil {
		report.warn("squash failed during reset: %v", err)
		report.Git.SkipReason = "soft reset failed"
		return
	}
	if err := c.branches.Commit(message); err != nil {
		if errors.Is(err, errors.ErrNothingToCommit) {
			// The WIP chain netted out to no change against the baseline.
			// The reset alone collapsed it; the branch now sits on the
			// baseline and there is nothing left to commit.
			report.Git.SquashPerformed = true
			report.Git.CommitRef = state.BaselineCommit
			logger.Info("squashed session history to empty",
				"commits", len(state.WipCommits),
				"ref", state.BaselineCommit)
			return
		}
		report.warn("squash failed during commit: %v", err)
		report.Git.SkipReason = "squash commit failed"
		return
	}

	report.Git.SquashPerformed = true
	report.Git.CommitRef = c.inspector.Tip()
	logger.Info("squashed session history",
		"commits", len(state.WipCommits),
		"ref", report.Git.CommitRef)
}

// integrate lands the completed branch. The path is chosen once from
// configuration: direct merge into the default branch, or push plus pull
// request metadata.
func (c *Controller) integrate(ctx context.Context, record *task.Record, state gitx.SessionState, report *Report, logger *logging.Logger) error {
	defaultBranch := c.inspector.DefaultBranch()
	branch := state.CurrentBranch
	changedFiles := c.inspector.ChangedFilesSince(state.BaselineCommit)

	if c.cfg.Integration.Mode == config.IntegrationPR {
		report.Git.Integration = PullRequestPush
		if err := c.branches.Push(branch); err != nil {
			report.warn("failed to push branch %s: %v", branch, err)
			return nil
		}
		report.Git.Pushed = true

		opts := pr.Build(record, branch, defaultBranch, changedFiles, c.cfg)
		report.Git.PullRequest = &opts

		if c.cfg.Integration.AutoCreatePR && c.prs != nil {
			url, err := c.prs.Create(ctx, opts)
			if err != nil {
				report.warn("failed to create pull request: %v", err)
				return nil
			}
			report.Git.PullRequestURL = url
		}
		return nil
	}

	report.Git.Integration = DirectMerge
	if branch == "" || branch == defaultBranch {
		report.warn("already on %s, nothing to merge", defaultBranch)
		return nil
	}
	if err := c.branches.MergeTaskBranch(branch, defaultBranch); err != nil {
		return err
	}
	report.Git.MergedInto = defaultBranch
	logger.Info("merged task branch", "branch", branch, "into", defaultBranch)
	return nil
}

// generateSummary asks the generation backend for a completion summary.
// Failures fall back to a deterministic sentence built from the record.
func (c *Controller) generateSummary(ctx context.Context, record *task.Record, baseline string) string {
	genCtx, cancel := context.WithTimeout(ctx, c.cfg.Generation.GenerationTimeout())
	defer cancel()

	prompt := fmt.Sprintf(summaryPrompt, record.Title, record.RequirementsText(), c.inspector.DiffStatSince(baseline))
	result, err := c.client.Prompt(genCtx, prompt, gen.TierQuality)
	if err != nil || !result.Success {
		return fallbackSummary(record)
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(gen.ExtractJSON(result.Text)), &resp); err != nil {
		return fallbackSummary(record)
	}
	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return fallbackSummary(record)
	}
	return summary
}

func fallbackSummary(record *task.Record) string {
	return fmt.Sprintf("Completed %s covering %d requirement(s).", record.Title, len(record.Requirements))
}
