package markdown_test

import (
	"bidmaster/internal/markdown"
	"testing"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "hello world", "hello world"},
		{"Punctuation", "8(a) set-aside!", `8\(a\) set\-aside\!`},
		{"Backslash", `a\b`, `a\\b`},
		{"Markup", "*bold* _it_ [x]", `\*bold\* \_it\_ \[x\]`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := markdown.EscapeV2(test.in); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestLink(t *testing.T) {
	got := markdown.Link("r/GovCon", "https://www.reddit.com/r/GovCon/comments/a_b/(x)/")
	want := `[r/GovCon](https://www.reddit.com/r/GovCon/comments/a_b/(x\)/)`

	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestPre(t *testing.T) {
	got := markdown.Pre("use `code` here")
	want := "```\nuse \\`code\\` here\n```"

	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBold(t *testing.T) {
	if got := markdown.Bold("New lead."); got != `*New lead\.*` {
		t.Errorf("unexpected bold: %q", got)
	}
}
