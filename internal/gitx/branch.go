package gitx

import (
	"fmt"
	"strings"

	"github.com/taskguard/taskguard/internal/errors"
)

// BranchManager performs mutating git operations: branch creation, merges,
// commits, and the squash primitives (soft reset + commit).
//
// Unlike the Inspector, every failure here propagates. Branch creation and
// merge correctness is structural: failing silently would leave the caller
// believing work is isolated or integrated when it is not.
type BranchManager struct {
	repoDir  string
	executor Executor
}

// NewBranchManager creates a BranchManager for the given repository.
func NewBranchManager(repoDir string) *BranchManager {
	return &BranchManager{
		repoDir:  repoDir,
		executor: NewCLIExecutor(),
	}
}

// NewBranchManagerWithExecutor creates a BranchManager with a custom executor.
func NewBranchManagerWithExecutor(repoDir string, executor Executor) *BranchManager {
	return &BranchManager{
		repoDir:  repoDir,
		executor: executor,
	}
}

// RepoDir returns the repository directory this manager operates on.
func (b *BranchManager) RepoDir() string {
	return b.repoDir
}

// CreateTaskBranch creates and switches to a new branch.
func (b *BranchManager) CreateTaskBranch(name string) error {
	output, err := b.executor.Run(b.repoDir, "git", "switch", "-c", name)
	if err != nil {
		if strings.Contains(string(output), "already exists") {
			return errors.NewGitError("branch already exists", errors.ErrBranchExists).
				WithRepository(b.repoDir).
				WithBranch(name).
				WithGitOutput(string(output))
		}
		return errors.NewGitError("failed to create branch", err).
			WithRepository(b.repoDir).
			WithBranch(name).
			WithGitOutput(string(output))
	}
	return nil
}

// MergeTaskBranch switches to the target branch and merges the task branch
// with an explicit no-fast-forward merge commit.
func (b *BranchManager) MergeTaskBranch(name, into string) error {
	output, err := b.executor.Run(b.repoDir, "git", "switch", into)
	if err != nil {
		return errors.NewGitError("failed to switch to "+into, err).
			WithRepository(b.repoDir).
			WithBranch(into).
			WithGitOutput(string(output))
	}

	message := fmt.Sprintf("Merge task branch %s", name)
	output, err = b.executor.Run(b.repoDir, "git", "merge", "--no-ff", name, "-m", message)
	if err != nil {
		outputStr := string(output)
		if strings.Contains(outputStr, "CONFLICT") {
			// Abort so the repository is not left mid-merge
			_, _ = b.executor.Run(b.repoDir, "git", "merge", "--abort")
			return errors.NewGitError("merge conflicts detected - manual resolution required", errors.ErrMergeConflict).
				WithRepository(b.repoDir).
				WithBranch(name).
				WithGitOutput(outputStr)
		}
		return errors.NewGitError("failed to merge branch", err).
			WithRepository(b.repoDir).
			WithBranch(name).
			WithGitOutput(outputStr)
	}

	return nil
}

// CommitAll stages everything and commits with the given message.
// Returns errors.ErrNothingToCommit when the tree is clean.
func (b *BranchManager) CommitAll(message string) error {
	output, err := b.executor.Run(b.repoDir, "git", "add", "-A")
	if err != nil {
		return errors.NewGitError("failed to stage changes", err).
			WithRepository(b.repoDir).
			WithGitOutput(string(output))
	}

	output, err = b.executor.Run(b.repoDir, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(string(output), "nothing to commit") {
			return errors.NewGitError("nothing to commit", errors.ErrNothingToCommit).
				WithRepository(b.repoDir)
		}
		return errors.NewGitError("failed to commit changes", err).
			WithRepository(b.repoDir).
			WithGitOutput(string(output))
	}

	return nil
}

// SoftReset moves HEAD to the given ref while preserving the working tree
// and index. This is one half of the squash primitive.
func (b *BranchManager) SoftReset(ref string) error {
	output, err := b.executor.Run(b.repoDir, "git", "reset", "--soft", ref)
	if err != nil {
		return errors.NewGitError("failed to soft-reset to "+ref, err).
			WithRepository(b.repoDir).
			WithGitOutput(string(output))
	}
	return nil
}

// Commit commits the currently staged changes with the given message.
// This is the other half of the squash primitive: after a soft reset the
// squashed changes are already staged.
func (b *BranchManager) Commit(message string) error {
	output, err := b.executor.Run(b.repoDir, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(string(output), "nothing to commit") {
			return errors.NewGitError("nothing to commit", errors.ErrNothingToCommit).
				WithRepository(b.repoDir)
		}
		return errors.NewGitError("failed to commit", err).
			WithRepository(b.repoDir).
			WithGitOutput(string(output))
	}
	return nil
}

// Push pushes the given branch to origin, setting the upstream.
func (b *BranchManager) Push(branch string) error {
	output, err := b.executor.Run(b.repoDir, "git", "push", "-u", "origin", branch)
	if err != nil {
		return errors.NewGitError("failed to push", err).
			WithRepository(b.repoDir).
			WithBranch(branch).
			WithGitOutput(string(output))
	}
	return nil
}
