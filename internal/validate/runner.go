// Package validate orchestrates the configured validation checks
// (type-check, lint, test). It does not interpret check output beyond the
// exit status: each result carries the raw output verbatim so the invoking
// surface can present it.
package validate

import (
	"context"
	"os/exec"
	"time"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/logging"
)

// Check names used in configuration and reports.
const (
	CheckTypecheck = "typecheck"
	CheckLint      = "lint"
	CheckTest      = "test"
)

// Check is one configured validation command.
type Check struct {
	Name    string
	Command string
}

// CheckResult is the outcome of running one check.
type CheckResult struct {
	Name     string
	Command  string
	Passed   bool
	Output   string
	Duration time.Duration
	// TimedOut is set when the check was killed by the timeout.
	TimedOut bool
}

// Results is the full set of check outcomes for one validation pass.
type Results []CheckResult

// AllPassed reports whether every check passed. An empty result set passes:
// no configured checks means nothing gates completion.
func (r Results) AllPassed() bool {
	for _, res := range r {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the subset of failed checks.
func (r Results) Failed() Results {
	var failed Results
	for _, res := range r {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// CommandRunner abstracts shell execution for testability.
type CommandRunner interface {
	// Run executes a shell command in dir and returns combined output.
	Run(ctx context.Context, dir, command string) ([]byte, error)
}

// shellRunner executes commands through "sh -c".
type shellRunner struct{}

func (shellRunner) Run(ctx context.Context, dir, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Runner resolves checks from configuration and runs them sequentially.
type Runner struct {
	workDir string
	cfg     config.ValidationConfig
	runner  CommandRunner
	logger  *logging.Logger
}

// NewRunner creates a Runner for the given working directory.
func NewRunner(workDir string, cfg config.ValidationConfig, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Runner{
		workDir: workDir,
		cfg:     cfg,
		runner:  shellRunner{},
		logger:  logger,
	}
}

// SetCommandRunner replaces the shell runner. Primarily useful for testing.
func (r *Runner) SetCommandRunner(runner CommandRunner) {
	r.runner = runner
}

// Checks returns the configured checks in a fixed order, skipping checks
// with no command configured.
func (r *Runner) Checks() []Check {
	var checks []Check
	if r.cfg.Typecheck != "" {
		checks = append(checks, Check{Name: CheckTypecheck, Command: r.cfg.Typecheck})
	}
	if r.cfg.Lint != "" {
		checks = append(checks, Check{Name: CheckLint, Command: r.cfg.Lint})
	}
	if r.cfg.Test != "" {
		checks = append(checks, Check{Name: CheckTest, Command: r.cfg.Test})
	}
	return checks
}

// Run executes every configured check sequentially and returns all results.
// A check failure does not stop later checks: the report should show every
// failing check, not just the first.
func (r *Runner) Run(ctx context.Context) Results {
	checks := r.Checks()
	results := make(Results, 0, len(checks))

	for _, check := range checks {
		results = append(results, r.runCheck(ctx, check))
	}
	return results
}

// runCheck executes one check with the configured timeout.
func (r *Runner) runCheck(ctx context.Context, check Check) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, r.cfg.ValidationTimeout())
	defer cancel()

	r.logger.Debug("running validation check", "check", check.Name, "command", check.Command)

	start := time.Now()
	output, err := r.runner.Run(checkCtx, r.workDir, check.Command)
	duration := time.Since(start)

	result := CheckResult{
		Name:     check.Name,
		Command:  check.Command,
		Passed:   err == nil,
		Output:   string(output),
		Duration: duration,
		TimedOut: checkCtx.Err() == context.DeadlineExceeded,
	}

	if result.Passed {
		r.logger.Debug("validation check passed", "check", check.Name, "duration", duration.String())
	} else {
		r.logger.Warn("validation check failed",
			"check", check.Name,
			"duration", duration.String(),
			"timed_out", result.TimedOut)
	}

	return result
}
