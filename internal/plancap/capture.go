// Package plancap turns an approved free-text plan into a durable task
// record and, when branching is enabled, opens a branch for it. Generation
// is best-effort: a timeout or malformed response falls back to a
// deterministic template built directly from the raw plan text, and never
// blocks the capture.
package plancap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/errors"
	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/gitx"
	"github.com/taskguard/taskguard/internal/issue"
	"github.com/taskguard/taskguard/internal/logging"
	"github.com/taskguard/taskguard/internal/task"
)

// expandPrompt asks the generation backend to expand an approved plan into
// the structured task document fields.
const expandPrompt = `You are capturing an approved engineering plan as a structured task record.

Expand the plan below into task fields.

Plan:
%s

Respond ONLY with valid JSON in this exact format:
{
  "title": "short imperative title, max 72 chars",
  "purpose": "one or two sentences on why this work matters",
  "requirements": ["concrete requirement", "..."],
  "success_criteria": ["observable criterion", "..."],
  "open_questions": ["unresolved question", "..."]
}

Rules:
- Derive everything from the plan; do not invent scope.
- At least one requirement is mandatory.
- Do not include any text outside the JSON object.`

// CaptureResult reports what one plan capture did.
type CaptureResult struct {
	Task          *task.Record
	BranchName    string
	BranchCreated bool
	// UsedFallback is true when the structured document came from the
	// deterministic template rather than the generation backend.
	UsedFallback bool
	IssueCreated bool
	Warnings     []string
}

// Capturer turns approved plans into task records.
type Capturer struct {
	client   gen.Client
	store    *task.Store
	branches *gitx.BranchManager
	issues   *issue.Service
	cfg      *config.Config
	logger   *logging.Logger
}

// NewCapturer creates a Capturer. The issue service may be nil when
// issue-tracker integration is disabled.
func NewCapturer(client gen.Client, store *task.Store, branches *gitx.BranchManager, issues *issue.Service, cfg *config.Config, logger *logging.Logger) *Capturer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Capturer{
		client:   client,
		store:    store,
		branches: branches,
		issues:   issues,
		cfg:      cfg,
		logger:   logger.WithOperation("plan_capture"),
	}
}

// Capture turns an approved plan into the active task record.
//
// Capture is idempotent per task id: when id names an existing,
// not-yet-completed record, the draft is overwritten in place rather than a
// duplicate id being assigned. Pass id 0 to resolve the target id
// automatically (the active in-progress draft if one exists, else the next
// unassigned id).
func (c *Capturer) Capture(ctx context.Context, planText string, id int) (*CaptureResult, error) {
	planText = strings.TrimSpace(planText)
	if planText == "" {
		return nil, errors.NewTaskError("plan text is empty", errors.ErrInvalidInput)
	}

	id, existing, err := c.resolveTargetID(id)
	if err != nil {
		return nil, err
	}

	result := &CaptureResult{}

	record, usedFallback := c.expandPlan(ctx, planText, id)
	result.UsedFallback = usedFallback

	// Recapture keeps the original start time and any branch already opened.
	if existing != nil {
		record.StartedAt = existing.StartedAt
		record.BranchName = existing.BranchName
		record.Status = existing.Status
		record.Issue = existing.Issue
	}

	if err := c.store.Save(record); err != nil {
		return nil, err
	}
	if err := c.store.SetActive(record.ID); err != nil {
		return nil, err
	}
	result.Task = record

	c.logger.Info("captured plan as task",
		"task_id", record.ExternalID(),
		"title", record.Title,
		"used_fallback", usedFallback)

	if c.cfg.Integration.AutoCreateIssue && c.issues != nil && record.Issue.URL == "" {
		ref, err := c.issues.Create(ctx, c.cfg.Integration.Repository, record.Title, record.Purpose)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("issue creation failed: %v", err))
			c.logger.Warn("issue creation failed", "error", err.Error())
		} else {
			record.Issue = ref
			result.IssueCreated = true
			if err := c.store.Save(record); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("failed to record issue reference: %v", err))
			}
		}
	}

	if c.cfg.Git.BranchingEnabled && c.branches != nil && record.BranchName == "" {
		branchName := c.GenerateBranchName(ctx, record.Title, record.ID)
		if err := c.branches.CreateTaskBranch(branchName); err != nil {
			// Branch failure is reported but never fatal to capture: the
			// task record is already persisted.
			result.Warnings = append(result.Warnings, fmt.Sprintf("branch creation failed: %v", err))
			c.logger.Warn("branch creation failed", "branch", branchName, "error", err.Error())
		} else {
			record.BranchName = branchName
			result.BranchName = branchName
			result.BranchCreated = true
			if err := c.store.Save(record); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("failed to record branch name: %v", err))
			}
		}
	}

	return result, nil
}

// resolveTargetID picks the task id to write. Returns the existing record
// when the capture is an overwrite of an in-progress draft.
func (c *Capturer) resolveTargetID(id int) (int, *task.Record, error) {
	if id > 0 {
		existing, err := c.store.Load(id)
		if err != nil {
			if errors.Is(err, errors.ErrTaskNotFound) {
				return id, nil, nil
			}
			return 0, nil, err
		}
		if existing.Status == task.StatusCompleted {
			return 0, nil, errors.NewTaskError("cannot recapture a completed task", errors.ErrTaskAlreadyCompleted).
				WithTaskID(task.FormatID(id))
		}
		return id, existing, nil
	}

	active, err := c.store.ActiveRecord()
	if err == nil && active.Status != task.StatusCompleted {
		return active.ID, active, nil
	}
	return c.store.NextID(), nil, nil
}

// expandPlan asks the generation backend for a structured document and
// falls back to the deterministic template on any failure.
func (c *Capturer) expandPlan(ctx context.Context, planText string, id int) (record *task.Record, usedFallback bool) {
	genCtx, cancel := context.WithTimeout(ctx, c.cfg.Generation.GenerationTimeout())
	defer cancel()

	result, err := c.client.Prompt(genCtx, fmt.Sprintf(expandPrompt, planText), gen.TierQuality)
	if err != nil || !result.Success {
		if err != nil {
			c.logger.Warn("plan expansion failed, using template fallback", "error", err.Error())
		}
		return fallbackRecord(planText, id), true
	}

	record, err = parseExpansion(result.Text, id)
	if err != nil {
		c.logger.Warn("plan expansion unparseable, using template fallback", "error", err.Error())
		return fallbackRecord(planText, id), true
	}
	return record, false
}

// expansion mirrors the JSON shape requested from the backend.
type expansion struct {
	Title           string   `json:"title"`
	Purpose         string   `json:"purpose"`
	Requirements    []string `json:"requirements"`
	SuccessCriteria []string `json:"success_criteria"`
	OpenQuestions   []string `json:"open_questions"`
}

// parseExpansion parses the backend response defensively: the JSON may be
// wrapped in fences or prose, and any field may be missing. A response
// without at least a title and one requirement is rejected.
func parseExpansion(text string, id int) (*task.Record, error) {
	jsonStr := gen.ExtractJSON(text)

	var exp expansion
	if err := json.Unmarshal([]byte(jsonStr), &exp); err != nil {
		return nil, errors.NewGenerationError("failed to parse expansion", errors.ErrMalformedResponse)
	}

	exp.Title = strings.Trim(strings.TrimSpace(exp.Title), "\"'`")
	if exp.Title == "" {
		return nil, errors.NewGenerationError("expansion has no title", errors.ErrMalformedResponse)
	}

	var reqs []task.Requirement
	for _, r := range exp.Requirements {
		r = strings.TrimSpace(r)
		if r != "" {
			reqs = append(reqs, task.Requirement{Text: r})
		}
	}
	if len(reqs) == 0 {
		return nil, errors.NewGenerationError("expansion has no requirements", errors.ErrMalformedResponse)
	}

	return &task.Record{
		ID:              id,
		Title:           truncate(exp.Title, 72),
		Purpose:         strings.TrimSpace(exp.Purpose),
		Status:          task.StatusPlanning,
		Requirements:    reqs,
		SuccessCriteria: trimAll(exp.SuccessCriteria),
		OpenQuestions:   trimAll(exp.OpenQuestions),
		StartedAt:       time.Now().UTC(),
	}, nil
}

// fallbackRecord builds a minimal task record directly from the raw plan
// text, with no generation involved.
func fallbackRecord(planText string, id int) *task.Record {
	lines := strings.Split(planText, "\n")
	title := strings.TrimSpace(strings.TrimLeft(lines[0], "# "))
	if title == "" {
		title = "Captured plan"
	}

	var reqs []task.Requirement
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if item, ok := strings.CutPrefix(line, "- "); ok {
			reqs = append(reqs, task.Requirement{Text: item})
		}
	}
	if len(reqs) == 0 {
		reqs = []task.Requirement{{Text: "Implement the approved plan"}}
	}

	return &task.Record{
		ID:           id,
		Title:        truncate(title, 72),
		Purpose:      planText,
		Status:       task.StatusPlanning,
		Requirements: reqs,
		StartedAt:    time.Now().UTC(),
	}
}

func trimAll(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
