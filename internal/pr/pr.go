// Package pr builds pull request metadata for completed tasks and creates
// the PR via the gh CLI.
package pr

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/task"
)

// Options contains options for PR creation
type Options struct {
	Title     string
	Body      string
	Branch    string
	Base      string
	Draft     bool
	Reviewers []string
	Labels    []string
}

// Build assembles PR options from a completed task record. Reviewers come
// from the default list plus any path rules matching the changed files.
func Build(record *task.Record, branch, base string, changedFiles []string, cfg *config.Config) Options {
	return Options{
		Title:     fmt.Sprintf("%s: %s", record.ExternalID(), record.Title),
		Body:      buildBody(record),
		Branch:    branch,
		Base:      base,
		Draft:     cfg.PR.Draft,
		Reviewers: ResolveReviewers(changedFiles, cfg.PR.Reviewers.Default, cfg.PR.Reviewers.ByPath),
		Labels:    cfg.PR.Labels,
	}
}

// buildBody renders the PR body from the task record: summary, requirement
// checklist, and a closes-line when an issue is linked.
func buildBody(record *task.Record) string {
	var b strings.Builder

	summary := record.CompletionSummary
	if summary == "" {
		summary = record.Purpose
	}
	if summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	if len(record.Requirements) > 0 {
		b.WriteString("\n## Requirements\n\n")
		for _, req := range record.Requirements {
			mark := " "
			if req.Done {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, req.Text)
		}
	}

	if record.Issue.Number > 0 {
		fmt.Fprintf(&b, "\nCloses #%d\n", record.Issue.Number)
	}

	return strings.TrimSpace(b.String()) + "\n"
}

// ResolveReviewers determines reviewers based on changed files and config
func ResolveReviewers(changedFiles []string, defaultReviewers []string, byPath map[string][]string) []string {
	reviewerSet := make(map[string]bool)

	for _, r := range defaultReviewers {
		reviewerSet[normalizeReviewer(r)] = true
	}

	// Check path-based rules
	for pattern, reviewers := range byPath {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}

		for _, file := range changedFiles {
			if g.Match(file) {
				for _, r := range reviewers {
					reviewerSet[normalizeReviewer(r)] = true
				}
				break
			}
		}
	}

	result := make([]string, 0, len(reviewerSet))
	for r := range reviewerSet {
		result = append(result, r)
	}
	sort.Strings(result)

	return result
}

// normalizeReviewer removes @ prefix from reviewer handles
func normalizeReviewer(reviewer string) string {
	return strings.TrimPrefix(reviewer, "@")
}

// runnerFunc executes an external command and returns its combined output.
// Swappable in tests.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Creator shells out to gh to open pull requests.
type Creator struct {
	run runnerFunc
}

// NewCreator creates a Creator backed by the real gh CLI.
func NewCreator() *Creator {
	return &Creator{run: execRunner}
}

// SetRunner replaces the command runner. For testing.
func (c *Creator) SetRunner(run runnerFunc) {
	c.run = run
}

// Create creates a GitHub PR using the gh CLI and returns its URL.
func (c *Creator) Create(ctx context.Context, opts Options) (string, error) {
	args := []string{"pr", "create",
		"--title", opts.Title,
		"--body", opts.Body,
		"--head", opts.Branch,
	}

	if opts.Base != "" {
		args = append(args, "--base", opts.Base)
	}

	if opts.Draft {
		args = append(args, "--draft")
	}

	for _, reviewer := range opts.Reviewers {
		args = append(args, "--reviewer", reviewer)
	}

	for _, label := range opts.Labels {
		args = append(args, "--label", label)
	}

	output, err := c.run(ctx, "gh", args...)
	if err != nil {
		return "", fmt.Errorf("failed to create PR: %w\n%s", err, string(output))
	}

	return strings.TrimSpace(string(output)), nil
}
