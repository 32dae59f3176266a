package task

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskguard/taskguard/internal/errors"
)

// frontmatter is the machine-readable header of a task document. The markdown
// body below it carries the human-readable sections in a fixed order:
// Purpose, Status, Requirements, Success Criteria, Current Focus, Open
// Questions, and (once completed) Completion Summary.
type frontmatter struct {
	ID          int       `yaml:"id"`
	Title       string    `yaml:"title"`
	Status      Status    `yaml:"status"`
	Branch      string    `yaml:"branch,omitempty"`
	StartedAt   time.Time `yaml:"started_at,omitempty"`
	CompletedAt time.Time `yaml:"completed_at,omitempty"`
	Issue       *IssueRef `yaml:"issue,omitempty"`
}

const frontmatterDelimiter = "---"

// MarshalDocument renders a Record as a task document: YAML frontmatter
// followed by the fixed-order markdown sections.
func MarshalDocument(r *Record) ([]byte, error) {
	fm := frontmatter{
		ID:          r.ID,
		Title:       r.Title,
		Status:      r.Status,
		Branch:      r.BranchName,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Issue.URL != "" || r.Issue.Number != 0 {
		issue := r.Issue
		fm.Issue = &issue
	}

	fmBytes, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, errors.NewTaskError("failed to marshal frontmatter", err).WithTaskID(r.ExternalID())
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelimiter + "\n")
	sb.Write(fmBytes)
	sb.WriteString(frontmatterDelimiter + "\n\n")

	fmt.Fprintf(&sb, "# %s: %s\n\n", r.ExternalID(), r.Title)

	sb.WriteString("## Purpose\n\n")
	sb.WriteString(strings.TrimSpace(r.Purpose) + "\n\n")

	sb.WriteString("## Status\n\n")
	sb.WriteString(string(r.Status) + "\n\n")

	sb.WriteString("## Requirements\n\n")
	if len(r.Requirements) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, req := range r.Requirements {
		mark := " "
		if req.Done {
			mark = "x"
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", mark, req.Text)
	}
	sb.WriteString("\n")

	sb.WriteString("## Success Criteria\n\n")
	if len(r.SuccessCriteria) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, c := range r.SuccessCriteria {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	sb.WriteString("\n")

	sb.WriteString("## Current Focus\n\n")
	if r.CurrentFocus == "" {
		sb.WriteString("(not set)\n")
	} else {
		sb.WriteString(strings.TrimSpace(r.CurrentFocus) + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Open Questions\n\n")
	if len(r.OpenQuestions) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, q := range r.OpenQuestions {
		fmt.Fprintf(&sb, "- %s\n", q)
	}

	if r.Status == StatusCompleted {
		sb.WriteString("\n## Completion Summary\n\n")
		if r.CompletionSummary == "" {
			sb.WriteString("(none)\n")
		} else {
			sb.WriteString(strings.TrimSpace(r.CompletionSummary) + "\n")
		}
	}

	return []byte(sb.String()), nil
}

// UnmarshalDocument parses a task document back into a Record. The
// frontmatter is authoritative for id, title, status, branch, timestamps,
// and the issue reference; the body sections fill in the rest.
func UnmarshalDocument(data []byte) (*Record, error) {
	content := string(data)

	fmText, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return nil, errors.NewTaskError("failed to parse frontmatter", errors.ErrTaskCorrupted)
	}
	if fm.ID == 0 {
		return nil, errors.NewTaskError("task document has no id", errors.ErrTaskCorrupted)
	}
	if !fm.Status.Valid() {
		return nil, errors.NewTaskError(
			fmt.Sprintf("task document has invalid status %q", fm.Status), errors.ErrTaskCorrupted).
			WithTaskID(FormatID(fm.ID))
	}

	r := &Record{
		ID:          fm.ID,
		Title:       fm.Title,
		Status:      fm.Status,
		BranchName:  fm.Branch,
		StartedAt:   fm.StartedAt,
		CompletedAt: fm.CompletedAt,
	}
	if fm.Issue != nil {
		r.Issue = *fm.Issue
	}

	sections := parseSections(body)

	r.Purpose = sectionText(sections, "Purpose")
	r.CurrentFocus = sectionText(sections, "Current Focus")
	r.CompletionSummary = sectionText(sections, "Completion Summary")
	r.Requirements = parseChecklist(sections["Requirements"])
	r.SuccessCriteria = parseBullets(sections["Success Criteria"])
	r.OpenQuestions = parseBullets(sections["Open Questions"])

	return r, nil
}

// splitFrontmatter separates the YAML header from the markdown body.
func splitFrontmatter(content string) (fmText, body string, err error) {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return "", "", errors.NewTaskError("task document has no frontmatter", errors.ErrTaskCorrupted)
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end == -1 {
		return "", "", errors.NewTaskError("unterminated frontmatter", errors.ErrTaskCorrupted)
	}

	fmText = rest[:end]
	body = rest[end+len(frontmatterDelimiter)+1:]
	if idx := strings.Index(body, "\n"); idx != -1 {
		body = body[idx+1:]
	}
	return fmText, body, nil
}

// parseSections splits the markdown body on "## " headers.
func parseSections(body string) map[string]string {
	sections := make(map[string]string)

	var current string
	var buf strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "## "); ok {
			if current != "" {
				sections[current] = strings.TrimSpace(buf.String())
			}
			current = strings.TrimSpace(name)
			buf.Reset()
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	if current != "" {
		sections[current] = strings.TrimSpace(buf.String())
	}

	return sections
}

// sectionText returns a section body, treating the "(none)" and "(not set)"
// placeholders as empty.
func sectionText(sections map[string]string, name string) string {
	text := sections[name]
	if text == "(none)" || text == "(not set)" {
		return ""
	}
	return text
}

// parseChecklist parses "- [ ]" / "- [x]" requirement lines.
func parseChecklist(text string) []Requirement {
	var reqs []Requirement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- [x] "), strings.HasPrefix(line, "- [X] "):
			reqs = append(reqs, Requirement{Text: line[6:], Done: true})
		case strings.HasPrefix(line, "- [ ] "):
			reqs = append(reqs, Requirement{Text: line[6:], Done: false})
		}
	}
	return reqs
}

// parseBullets parses plain "- " bullet lines.
func parseBullets(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if item, ok := strings.CutPrefix(line, "- "); ok {
			items = append(items, item)
		}
	}
	return items
}
