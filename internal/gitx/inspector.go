package gitx

import (
	"strconv"
	"strings"
)

// baselineScanWindow bounds how far back the baseline scan looks. If every
// commit in the window carries the WIP marker, the oldest scanned commit is
// the baseline; the scan never fails with "no baseline".
const baselineScanWindow = 200

// Inspector provides read-only queries against the repository history.
//
// Failure semantics: every underlying git failure is absorbed and downgraded
// to an empty or default result. Inspector output is diagnostic input, not a
// correctness-critical write path, so it must never throw into its caller.
type Inspector struct {
	repoDir  string
	executor Executor

	// defaultBranchOverride short-circuits default-branch resolution when
	// the configuration names the trunk explicitly.
	defaultBranchOverride string
}

// NewInspector creates an Inspector for the given repository directory.
func NewInspector(repoDir string) *Inspector {
	return &Inspector{
		repoDir:  repoDir,
		executor: NewCLIExecutor(),
	}
}

// NewInspectorWithExecutor creates an Inspector with a custom executor.
// This is primarily useful for testing.
func NewInspectorWithExecutor(repoDir string, executor Executor) *Inspector {
	return &Inspector{
		repoDir:  repoDir,
		executor: executor,
	}
}

// SetDefaultBranchOverride pins the default branch name, skipping resolution.
func (i *Inspector) SetDefaultBranchOverride(branch string) {
	i.defaultBranchOverride = branch
}

// DefaultBranch resolves the trunk branch name. It prefers the upstream
// remote's symbolic default, then a local "main", then "master". On any
// failure it returns "main".
func (i *Inspector) DefaultBranch() string {
	if i.defaultBranchOverride != "" {
		return i.defaultBranchOverride
	}

	// origin/HEAD names the remote's default branch when set
	output, err := i.executor.Run(i.repoDir, "git", "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
	if err == nil {
		ref := strings.TrimSpace(string(output))
		if name, ok := strings.CutPrefix(ref, "origin/"); ok && name != "" {
			return name
		}
	}

	if i.executor.RunQuiet(i.repoDir, "git", "rev-parse", "--verify", "main") == nil {
		return "main"
	}
	if i.executor.RunQuiet(i.repoDir, "git", "rev-parse", "--verify", "master") == nil {
		return "master"
	}
	return "main"
}

// CurrentBranch returns the branch checked out in the repository.
// Returns "" on failure.
func (i *Inspector) CurrentBranch() string {
	output, err := i.executor.Run(i.repoDir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// HasUncommittedChanges reports whether the working tree is dirty.
// Returns false on failure.
func (i *Inspector) HasUncommittedChanges() bool {
	output, err := i.executor.Run(i.repoDir, "git", "status", "--porcelain")
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// BaselineCommit scans recent history newest-first and returns the first
// commit whose subject does not carry the WIP marker. If every scanned
// commit is a WIP commit, the oldest scanned commit is the baseline.
// Returns "" only when history cannot be read at all.
func (i *Inspector) BaselineCommit() string {
	commits := i.recentCommits(baselineScanWindow)
	if len(commits) == 0 {
		return ""
	}

	for _, c := range commits {
		if !c.IsWip() {
			return c.Hash
		}
	}

	return commits[len(commits)-1].Hash
}

// WipCommits returns the machine-authored commits between the baseline and
// the current tip, oldest first. The scan walks from the tip backward and
// stops at the first non-WIP commit or the start of history.
func (i *Inspector) WipCommits() []Commit {
	commits := i.recentCommits(baselineScanWindow)

	var wip []Commit
	for _, c := range commits {
		if !c.IsWip() {
			break
		}
		wip = append(wip, c)
	}

	// recentCommits is newest-first; callers want oldest-first
	for l, r := 0, len(wip)-1; l < r; l, r = l+1, r-1 {
		wip[l], wip[r] = wip[r], wip[l]
	}
	return wip
}

// SessionState derives the full per-invocation git state.
func (i *Inspector) SessionState() SessionState {
	return SessionState{
		DefaultBranch:         i.DefaultBranch(),
		CurrentBranch:         i.CurrentBranch(),
		BaselineCommit:        i.BaselineCommit(),
		WipCommits:            i.WipCommits(),
		HasUncommittedChanges: i.HasUncommittedChanges(),
	}
}

// DiffSince returns the combined diff (committed and uncommitted) against
// the given ref. Returns "" on failure.
func (i *Inspector) DiffSince(ref string) string {
	if ref == "" {
		return ""
	}
	output, err := i.executor.Run(i.repoDir, "git", "diff", ref)
	if err != nil {
		return ""
	}
	return string(output)
}

// DiffStatSince returns the diffstat summary against the given ref.
// Returns "" on failure.
func (i *Inspector) DiffStatSince(ref string) string {
	if ref == "" {
		return ""
	}
	output, err := i.executor.Run(i.repoDir, "git", "diff", "--stat", ref)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// ChangedFilesSince returns the paths changed against the given ref.
// Returns nil on failure.
func (i *Inspector) ChangedFilesSince(ref string) []string {
	if ref == "" {
		return nil
	}
	output, err := i.executor.Run(i.repoDir, "git", "diff", "--name-only", ref)
	if err != nil {
		return nil
	}

	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// Tip returns the hash of the current HEAD commit. Returns "" on failure.
func (i *Inspector) Tip() string {
	output, err := i.executor.Run(i.repoDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// TreeHash returns the tree object hash for a commit-ish. Returns "" on
// failure. Useful for verifying that a squash preserved the tree.
func (i *Inspector) TreeHash(ref string) string {
	output, err := i.executor.Run(i.repoDir, "git", "rev-parse", ref+"^{tree}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// recentCommits returns up to n commits from the tip, newest first.
// Returns nil on any failure.
func (i *Inspector) recentCommits(n int) []Commit {
	output, err := i.executor.Run(i.repoDir, "git", "log", "-n", strconv.Itoa(n), "--pretty=format:%H%x1f%s")
	if err != nil {
		return nil
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	commits := make([]Commit, 0, len(lines))
	for _, line := range lines {
		hash, subject, ok := strings.Cut(line, "\x1f")
		if !ok || hash == "" {
			continue
		}
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits
}
