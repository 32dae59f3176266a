// Package issue provides a provider-agnostic interface for creating and
// closing issues in external issue trackers (GitHub, Linear, etc.)
package issue

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/taskguard/taskguard/internal/logging"
	"github.com/taskguard/taskguard/internal/task"
)

// Provider represents an issue tracking service
type Provider string

const (
	ProviderGitHub  Provider = "github"
	ProviderLinear  Provider = "linear"
	ProviderUnknown Provider = "unknown"
)

// URL parsing regexes
var (
	gitHubRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/issues/(\d+)$`)
	linearRegex = regexp.MustCompile(`linear\.app/[^/]+/issue/([A-Z]+-\d+)`)
)

// runnerFunc executes an external command and returns its combined output.
// Swappable in tests.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Service handles creating and closing issues across different providers
type Service struct {
	logger *logging.Logger
	run    runnerFunc
}

// NewService creates a new issue service
func NewService(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Service{logger: logger, run: execRunner}
}

// SetRunner replaces the command runner. For testing.
func (s *Service) SetRunner(run runnerFunc) {
	s.run = run
}

// Create opens a GitHub issue for a task via the gh CLI and returns a
// reference to it. repo is "owner/name"; when empty, gh resolves the repo
// from the working directory.
func (s *Service) Create(ctx context.Context, repo, title, body string) (task.IssueRef, error) {
	args := []string{"issue", "create", "--title", title, "--body", body}
	if repo != "" {
		args = append(args, "--repo", repo)
	}

	output, err := s.run(ctx, "gh", args...)
	if err != nil {
		return task.IssueRef{}, fmt.Errorf("failed to create issue: %w\noutput: %s", err, string(output))
	}

	// gh prints the new issue URL as the last non-empty line.
	issueURL := lastLine(string(output))
	ref := task.IssueRef{URL: issueURL}
	if matches := gitHubRegex.FindStringSubmatch(issueURL); len(matches) == 4 {
		ref.Number, _ = strconv.Atoi(matches[3])
	}

	s.logger.Info("created issue", "url", issueURL, "title", title)
	return ref, nil
}

// Close closes an issue given its URL
// Returns nil if the URL is empty or the provider is unsupported
func (s *Service) Close(ctx context.Context, issueURL string) error {
	if issueURL == "" {
		return nil
	}

	provider, err := DetectProvider(issueURL)
	if err != nil {
		s.logger.Warn("failed to detect issue provider", "url", issueURL, "error", err)
		return nil // Don't fail task completion for issue closing errors
	}

	switch provider {
	case ProviderGitHub:
		return s.closeGitHub(ctx, issueURL)
	case ProviderLinear:
		return s.closeLinear(ctx, issueURL)
	default:
		s.logger.Debug("unsupported issue provider", "url", issueURL, "provider", provider)
		return nil
	}
}

// DetectProvider determines the issue provider from a URL
func DetectProvider(issueURL string) (Provider, error) {
	parsed, err := url.Parse(issueURL)
	if err != nil {
		return ProviderUnknown, fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "github.com"):
		return ProviderGitHub, nil
	case strings.Contains(host, "linear.app"):
		return ProviderLinear, nil
	default:
		return ProviderUnknown, nil
	}
}

// closeGitHub closes a GitHub issue using the gh CLI
func (s *Service) closeGitHub(ctx context.Context, issueURL string) error {
	// Format: https://github.com/owner/repo/issues/123
	matches := gitHubRegex.FindStringSubmatch(issueURL)
	if len(matches) != 4 {
		return fmt.Errorf("invalid GitHub issue URL: %s", issueURL)
	}

	owner, repo, number := matches[1], matches[2], matches[3]
	repoPath := fmt.Sprintf("%s/%s", owner, repo)

	s.logger.Info("closing GitHub issue", "repo", repoPath, "issue", number)

	output, err := s.run(ctx, "gh", "issue", "close", number, "--repo", repoPath)
	if err != nil {
		return fmt.Errorf("failed to close GitHub issue #%s: %w\noutput: %s", number, err, string(output))
	}

	s.logger.Info("closed GitHub issue", "repo", repoPath, "issue", number)
	return nil
}

// closeLinear closes a Linear issue using the linear CLI (if available)
func (s *Service) closeLinear(ctx context.Context, issueURL string) error {
	// Linear URL format: https://linear.app/team/issue/TEAM-123/title
	matches := linearRegex.FindStringSubmatch(issueURL)
	if len(matches) != 2 {
		return fmt.Errorf("invalid Linear issue URL: %s", issueURL)
	}

	issueID := matches[1]

	output, err := s.run(ctx, "linear", "issue", "close", issueID)
	if err != nil {
		// Linear CLI might not be installed - log and continue
		s.logger.Warn("failed to close Linear issue (linear CLI may not be installed)",
			"issue", issueID, "error", err, "output", string(output))
		return nil
	}

	s.logger.Info("closed Linear issue", "issue", issueID)
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
