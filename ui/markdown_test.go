package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestRenderMarkdownPlainText(t *testing.T) {
	out := RenderMarkdown("hello world", 80)
	if !strings.Contains(out, "hello world") {
		t.Errorf("rendered output %q does not contain source text", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("rendered output keeps a trailing newline")
	}
}

func TestRenderMarkdownNarrowWidthFallsBack(t *testing.T) {
	// Widths below 10 are treated as unusable and rendered at 80.
	out := RenderMarkdown("some text that is fairly long and would wrap hard", 3)
	for _, line := range strings.Split(out, "\n") {
		if w := runewidth.StringWidth(line); w > 80 {
			t.Errorf("line width %d exceeds fallback width: %q", w, line)
		}
	}
}

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "short", 10, "short"},
		{"exact", "12345", 5, "12345"},
		{"truncated", "abcdefghij", 8, "abcde..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateToWidth(tt.in, tt.width); got != tt.want {
				t.Errorf("truncateToWidth(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestTruncateToWidthWideRunes(t *testing.T) {
	got := truncateToWidth("日本語のテキスト", 8)
	if w := runewidth.StringWidth(got); w > 8 {
		t.Errorf("truncated width = %d, want <= 8 (%q)", w, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string %q lacks ellipsis", got)
	}
}
