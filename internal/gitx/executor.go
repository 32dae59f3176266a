// Package gitx provides the version-control layer for taskguard: a read-only
// repository inspector and a mutating branch manager, both wrapping the git
// CLI. The inspector never propagates failures (it degrades to safe
// defaults); the branch manager fails loudly, since a silent branch or merge
// failure would leave the caller believing work is isolated when it is not.
package gitx

import (
	"os/exec"
	"strings"
)

// WIPMarker is the literal tag carried in the subject of every
// machine-authored WIP commit. It is the sole mechanism used to distinguish
// machine commits from human commits, and it must be preserved bit-for-bit
// for the baseline scan to work.
const WIPMarker = "[tg-wip]"

// Executor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type Executor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunQuiet executes a command and returns only the error.
	RunQuiet(dir string, name string, args ...string) error
}

// CLIExecutor executes commands using os/exec.
type CLIExecutor struct{}

// NewCLIExecutor creates a new CLI command executor.
func NewCLIExecutor() *CLIExecutor {
	return &CLIExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLIExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunQuiet executes a command and returns only the error.
func (e *CLIExecutor) RunQuiet(dir string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

// Commit identifies a single commit by hash and subject line.
type Commit struct {
	Hash    string
	Subject string
}

// IsWip reports whether the commit subject carries the WIP marker.
func (c Commit) IsWip() bool {
	return IsWipSubject(c.Subject)
}

// IsWipSubject reports whether a commit subject carries the WIP marker.
func IsWipSubject(subject string) bool {
	return strings.Contains(subject, WIPMarker)
}

// SessionState is the derived git state for one invocation. It is recomputed
// on each invocation and never persisted.
type SessionState struct {
	// DefaultBranch is the resolved trunk branch name.
	DefaultBranch string
	// CurrentBranch is the branch checked out at invocation time.
	CurrentBranch string
	// BaselineCommit is the most recent commit that is not a WIP commit.
	BaselineCommit string
	// WipCommits are the commits between BaselineCommit and the tip,
	// oldest first, all carrying the WIP marker.
	WipCommits []Commit
	// HasUncommittedChanges reports whether the working tree is dirty.
	HasUncommittedChanges bool
}
