package render

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "# Title\nbody\n", "# Title\nbody\n"},
		{"clean no newline", "# Title", "# Title"},
		{"tagged", "```markdown\n# Title\nbody\n```", "# Title\nbody\n"},
		{"untagged", "```\n# Title\n```\n", "# Title\n"},
		{"trailing only", "# Title\nbody\n```", "# Title\nbody\n"},
		{"leading only", "```md\n# Title\n", "# Title\n"},
		{"leading whitespace", "\n\n```markdown\n# T\n```  \n", "# T\n"},
		{"embedded block kept", "# T\n\n```go\nfmt.Println()\n```\n\nend\n", "# T\n\n```go\nfmt.Println()\n```\n\nend\n"},
	}
	for _, tc := range cases {
		if got := StripFences(tc.in); got != tc.want {
			t.Errorf("%s: StripFences(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestStripFencesIdempotentOnCleanInput(t *testing.T) {
	in := "# Project\n\nSome `inline` text.\n"
	once := StripFences(in)
	if once != in || StripFences(once) != once {
		t.Fatalf("clean input changed: %q", once)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeRendered, "RAW": ModeRaw, "code": ModeCode} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("fancy"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRenderModes(t *testing.T) {
	r := NewRenderer()
	src := "```markdown\n# Title\n\n<script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n```"

	rendered, err := r.Render(src, ModeRendered)
	if err != nil {
		t.Fatalf("rendered: %v", err)
	}
	out := string(rendered)
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<table>") {
		t.Fatalf("markdown not rendered: %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("script tag survived sanitizing: %s", out)
	}

	raw, err := r.Render("<b>x</b>", ModeRaw)
	if err != nil || !strings.Contains(string(raw), "&lt;b&gt;x&lt;/b&gt;") {
		t.Fatalf("raw mode must escape: %s, %v", raw, err)
	}

	code, err := r.Render("# Title", ModeCode)
	if err != nil || !strings.Contains(string(code), "<pre") {
		t.Fatalf("code mode not highlighted: %s, %v", code, err)
	}
}
