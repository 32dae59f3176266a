package gen

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing commentary", "```json\n{\"a\": 1}\n```\nHope that helps!", `{"a": 1}`},
		{"surrounding whitespace", "  \n```\ntext\n```\n  ", "text"},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"title": "x"}`, `{"title": "x"}`},
		{"leading prose", `Here is the result: {"title": "x"}`, `{"title": "x"}`},
		{"trailing prose", `{"title": "x"} Let me know if that works.`, `{"title": "x"}`},
		{"fenced with prose", "Sure!\n```json\n{\"title\": \"x\"}\n```", `{"title": "x"}`},
		{"nested braces", `{"outer": {"inner": 1}}`, `{"outer": {"inner": 1}}`},
		{"no object at all", "no structured data here", "no structured data here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
