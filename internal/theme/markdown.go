package theme

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

func uintPtr(u uint) *uint    { return &u }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// markdownStyle tints glamour's base style with the palette and drops the
// document margins so replies line up with the role labels.
func (t *Theme) markdownStyle(plain bool) ansi.StyleConfig {
	var s ansi.StyleConfig
	switch {
	case plain:
		return styles.NoTTYStyleConfig
	case t.Dark:
		s = styles.DarkStyleConfig
	default:
		s = styles.LightStyleConfig
	}

	s.Document.Margin = uintPtr(0)
	s.Document.Indent = uintPtr(0)
	s.Paragraph.Margin = uintPtr(0)

	s.H1.Bold = boolPtr(true)
	s.H1.Color = strPtr(string(t.Primary))
	s.H1.BackgroundColor = nil
	s.H2.Bold = boolPtr(true)
	s.H2.Color = strPtr(string(t.User))
	s.Link.Color = strPtr(string(t.Primary))
	s.HorizontalRule.Color = strPtr(string(t.Border))
	s.CodeBlock.Margin = uintPtr(0)
	return s
}

// MarkdownRenderer renders assistant replies for the terminal.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer wraps at width. Plain renderers emit no colors, for
// output that is not a terminal.
func (t *Theme) NewMarkdownRenderer(width int, plain bool) (*MarkdownRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(t.markdownStyle(plain)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: r}, nil
}

// Render returns md rendered, or md unchanged when rendering fails.
func (m *MarkdownRenderer) Render(md string) string {
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
