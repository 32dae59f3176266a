package plancap

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/task"
)

const branchPrompt = `Generate a git branch name for this task.

Task: %s

Requirements:
1. Use the prefix "feature/" for new functionality or "bug/" for fixes.
2. After the prefix, use lowercase kebab-case (hyphens between words).
3. Keep the part after the prefix under 40 characters.
4. Respond with ONLY the branch name, nothing else.

Examples: feature/add-user-auth, bug/fix-session-leak`

var (
	slugAllowed   = regexp.MustCompile(`[^a-z0-9-]+`)
	slugCollapsed = regexp.MustCompile(`-{2,}`)
)

// GenerateBranchName produces a branch name for a task. The name always
// carries a feature/ or bug/ prefix and ends with the zero-padded task id so
// two tasks with similar titles never collide. Any generation failure yields
// the deterministic fallback feature/task-<id>.
func (c *Capturer) GenerateBranchName(ctx context.Context, title string, id int) string {
	genCtx, cancel := context.WithTimeout(ctx, c.cfg.Generation.GenerationTimeout())
	defer cancel()

	result, err := c.client.Prompt(genCtx, fmt.Sprintf(branchPrompt, title), gen.TierFast)
	if err != nil || !result.Success {
		return fallbackBranchName(id)
	}

	name, ok := parseBranchName(result.Text, id)
	if !ok {
		return fallbackBranchName(id)
	}
	return name
}

// parseBranchName normalizes a generated branch name. Responses without a
// recognized prefix are treated as feature work; an empty slug after
// normalization is rejected.
func parseBranchName(text string, id int) (string, bool) {
	name := strings.TrimSpace(text)
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	name = strings.Trim(name, "\"'`")

	prefix := "feature"
	switch {
	case strings.HasPrefix(name, "feature/"):
		name = strings.TrimPrefix(name, "feature/")
	case strings.HasPrefix(name, "bug/"):
		prefix = "bug"
		name = strings.TrimPrefix(name, "bug/")
	}

	slug := Slugify(name)
	if slug == "" {
		return "", false
	}
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	return fmt.Sprintf("%s/%s-%03d", prefix, slug, id), true
}

func fallbackBranchName(id int) string {
	return fmt.Sprintf("feature/%s", strings.ToLower(task.FormatID(id)))
}

// Slugify converts arbitrary text into a lowercase kebab-case slug safe for
// use in a git ref name.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = slugAllowed.ReplaceAllString(s, "")
	s = slugCollapsed.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
