// Package review evaluates a paused work session against the active task.
// Each pass commits accumulated changes as a marker-tagged WIP commit and
// classifies the session as on track or drifting. The reviewer is strictly
// additive: it never reverts, discards, or rewrites work.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/gitx"
	"github.com/taskguard/taskguard/internal/logging"
	"github.com/taskguard/taskguard/internal/task"
)

// Classification is the reviewer's judgement of one session pass.
type Classification string

const (
	// ClassOnTrack means the session's changes serve the task requirements.
	ClassOnTrack Classification = "on_track"
	// ClassDeviation means the changes drifted from the task's scope.
	ClassDeviation Classification = "deviation"
	// ClassNeedsVerification means the reviewer could not reach a
	// judgement (including every generation or parse failure).
	ClassNeedsVerification Classification = "needs_verification"
	// ClassStuck means the session is circling without progress.
	ClassStuck Classification = "stuck"
)

// Valid reports whether c is a recognized classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassOnTrack, ClassDeviation, ClassNeedsVerification, ClassStuck:
		return true
	}
	return false
}

// diffBudget bounds how much raw diff text is sent for classification.
// Diffs above the budget are summarized as a stat plus file list instead.
const diffBudget = 24 * 1024

const fallbackCommitMessage = "session checkpoint"

const classifyPrompt = `You are reviewing one work session against its task.

Task requirements:
%s

Session changes:
%s

Classify the session. Respond ONLY with valid JSON in this exact format:
{
  "classification": "on_track|deviation|needs_verification|stuck",
  "summary": "one or two sentences on what the session did and how it relates to the requirements",
  "commit_message": "imperative description of the changes, max 60 chars"
}

Rules:
- "on_track": the changes serve the stated requirements.
- "deviation": the changes work on something other than the requirements.
- "stuck": the changes circle or undo earlier work without progress.
- "needs_verification": you cannot tell from the diff alone.
- Do not include any text outside the JSON object.`

// Verdict is the result of one review pass.
type Verdict struct {
	TaskID         string
	Classification Classification
	Summary        string
	CommitMessage  string
	// Committed is true when the pass produced a WIP commit.
	Committed bool
	CommitRef string
	// NoOp is true when there was nothing to review; Reason says why.
	NoOp   bool
	Reason string
}

// Options tune a single review pass.
type Options struct {
	// Force classifies even when the change guard would make the pass a
	// no-op. It never forces an empty commit.
	Force bool
}

// Reviewer runs session review passes.
type Reviewer struct {
	client    gen.Client
	inspector *gitx.Inspector
	branches  *gitx.BranchManager
	store     *task.Store
	cfg       *config.Config
	logger    *logging.Logger
}

// NewReviewer creates a Reviewer.
func NewReviewer(client gen.Client, inspector *gitx.Inspector, branches *gitx.BranchManager, store *task.Store, cfg *config.Config, logger *logging.Logger) *Reviewer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reviewer{
		client:    client,
		inspector: inspector,
		branches:  branches,
		store:     store,
		cfg:       cfg,
		logger:    logger.WithOperation("session_review"),
	}
}

// Review runs one review pass against the active task.
//
// Without an active task, or without any new work since the last pass, the
// verdict is a no-op and nothing is committed. Otherwise the pass commits
// the working tree as a single WIP commit and returns a classification. A
// failing commit degrades the pass to a verdict-only result, it never fails
// the invocation.
func (r *Reviewer) Review(ctx context.Context, opts Options) (*Verdict, error) {
	record, err := r.store.ActiveRecord()
	if err != nil {
		if errors.Is(err, errors.ErrNoActiveTask) {
			return &Verdict{NoOp: true, Reason: "no active task"}, nil
		}
		return nil, err
	}

	logger := r.logger.WithTask(record.ExternalID())
	state := r.inspector.SessionState()

	if !opts.Force && !r.hasNewWork(state) {
		logger.Debug("review pass skipped, no new work")
		return &Verdict{
			TaskID: record.ExternalID(),
			NoOp:   true,
			Reason: "no changes since last review",
		}, nil
	}

	summary := r.diffSummary(state.BaselineCommit)
	classification, sessionSummary, commitMessage := r.classify(ctx, record, summary)

	verdict := &Verdict{
		TaskID:         record.ExternalID(),
		Classification: classification,
		Summary:        sessionSummary,
		CommitMessage:  commitMessage,
	}

	// First pass with real work moves the task out of planning.
	if record.Status == task.StatusPlanning {
		if err := record.TransitionTo(task.StatusInProgress); err == nil {
			if err := r.store.Save(record); err != nil {
				logger.Warn("failed to persist status transition", "error", err.Error())
			}
		}
	}

	if state.HasUncommittedChanges {
		subject := fmt.Sprintf("%s %s: %s", gitx.WIPMarker, record.ExternalID(), commitMessage)
		if err := r.branches.CommitAll(subject); err != nil {
			logger.Warn("wip commit failed, reporting verdict without commit", "error", err.Error())
		} else {
			verdict.Committed = true
			verdict.CommitRef = r.inspector.Tip()
		}
	}

	logger.Info("review pass complete",
		"classification", string(classification),
		"committed", verdict.Committed)
	return verdict, nil
}

// hasNewWork reports whether anything happened since the last review pass.
// Uncommitted changes always count. Committed work counts only when the tip
// has moved past the baseline by commits the reviewer did not itself create.
func (r *Reviewer) hasNewWork(state gitx.SessionState) bool {
	if state.HasUncommittedChanges {
		return true
	}
	if len(state.WipCommits) > 0 {
		// Tip is a WIP commit, so the last pass already saw everything.
		return false
	}
	tip := r.inspector.Tip()
	return tip != "" && tip != state.BaselineCommit
}

// diffSummary returns the diff since ref, or a stat plus changed-file list
// when the raw diff exceeds the budget.
func (r *Reviewer) diffSummary(ref string) string {
	diff := r.inspector.DiffSince(ref)
	if diff == "" {
		diff = r.inspector.DiffStatSince(ref)
	}
	if len(diff) <= diffBudget {
		return diff
	}

	var b strings.Builder
	b.WriteString("Diff too large to include verbatim. Stat:\n")
	b.WriteString(r.inspector.DiffStatSince(ref))
	b.WriteString("\nChanged files:\n")
	for _, f := range r.inspector.ChangedFilesSince(ref) {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

// classify asks the generation backend for a verdict. Every failure mode
// (timeout, refusal, malformed output) yields needs_verification with the
// fallback commit message, never an error.
func (r *Reviewer) classify(ctx context.Context, record *task.Record, diffSummary string) (Classification, string, string) {
	genCtx, cancel := context.WithTimeout(ctx, r.cfg.Generation.GenerationTimeout())
	defer cancel()

	prompt := fmt.Sprintf(classifyPrompt, record.RequirementsText(), diffSummary)
	result, err := r.client.Prompt(genCtx, prompt, gen.TierQuality)
	if err != nil || !result.Success {
		if err != nil {
			r.logger.Warn("classification failed", "error", err.Error())
		}
		return ClassNeedsVerification, "classification unavailable", fallbackCommitMessage
	}

	return parseVerdict(result.Text)
}

// verdictResponse mirrors the JSON shape requested from the backend.
type verdictResponse struct {
	Classification string `json:"classification"`
	Summary        string `json:"summary"`
	CommitMessage  string `json:"commit_message"`
}

// parseVerdict parses a classification response defensively. Unparseable or
// unrecognized responses degrade to needs_verification.
func parseVerdict(text string) (Classification, string, string) {
	var resp verdictResponse
	if err := json.Unmarshal([]byte(gen.ExtractJSON(text)), &resp); err != nil {
		return ClassNeedsVerification, "classification response unparseable", fallbackCommitMessage
	}

	classification := Classification(strings.ToLower(strings.TrimSpace(resp.Classification)))
	if !classification.Valid() {
		classification = ClassNeedsVerification
	}

	message := strings.TrimSpace(resp.CommitMessage)
	if message == "" {
		message = fallbackCommitMessage
	}
	message = strings.ReplaceAll(message, "\n", " ")

	return classification, strings.TrimSpace(resp.Summary), message
}
