package gen

import "strings"

// StripFences removes a surrounding markdown code fence from a response,
// tolerating a language tag on the opening fence and trailing commentary
// after the closing fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line (``` or ```lang)
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		return strings.TrimPrefix(s, "```")
	}

	// Cut at the closing fence, discarding anything after it
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// ExtractJSON extracts a JSON object from a response that might be wrapped
// in markdown code blocks or surrounded by prose.
func ExtractJSON(s string) string {
	s = StripFences(s)

	// Find object boundaries; trailing commentary after the closing brace
	// is discarded.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}

	return s
}
