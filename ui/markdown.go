package ui

import (
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"
)

// RenderMarkdown renders assistant markdown for terminal display at the
// given width. Autolink is disabled so plain URLs stay plain text and
// the terminal emulator handles link detection itself.
func RenderMarkdown(content string, width int) string {
	if width < 10 {
		width = 80
	}

	customExt := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, r)

	return strings.TrimRight(string(rendered), "\n")
}

// truncateToWidth trims a single line to the given display width,
// accounting for wide runes.
func truncateToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
