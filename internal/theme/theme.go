// Package theme holds the color palettes used by the command line output.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultName is the palette used when none is configured.
const DefaultName = "catppuccin-mocha"

// Theme is a named color palette.
type Theme struct {
	Name string
	Dark bool

	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Border    lipgloss.Color

	User      lipgloss.Color
	Assistant lipgloss.Color
	System    lipgloss.Color
}

var builtin = map[string]*Theme{
	"catppuccin-mocha": {
		Name:      "catppuccin-mocha",
		Dark:      true,
		Primary:   lipgloss.Color("#CBA6F7"),
		Success:   lipgloss.Color("#A6E3A1"),
		Warning:   lipgloss.Color("#F9E2AF"),
		Error:     lipgloss.Color("#F38BA8"),
		Text:      lipgloss.Color("#CDD6F4"),
		TextMuted: lipgloss.Color("#A6ADC8"),
		Border:    lipgloss.Color("#6C7086"),
		User:      lipgloss.Color("#89B4FA"),
		Assistant: lipgloss.Color("#CDD6F4"),
		System:    lipgloss.Color("#6C7086"),
	},
	"dracula": {
		Name:      "dracula",
		Dark:      true,
		Primary:   lipgloss.Color("#BD93F9"),
		Success:   lipgloss.Color("#50FA7B"),
		Warning:   lipgloss.Color("#F1FA8C"),
		Error:     lipgloss.Color("#FF5555"),
		Text:      lipgloss.Color("#F8F8F2"),
		TextMuted: lipgloss.Color("#6272A4"),
		Border:    lipgloss.Color("#6272A4"),
		User:      lipgloss.Color("#8BE9FD"),
		Assistant: lipgloss.Color("#F8F8F2"),
		System:    lipgloss.Color("#6272A4"),
	},
	"nord": {
		Name:      "nord",
		Dark:      true,
		Primary:   lipgloss.Color("#88C0D0"),
		Success:   lipgloss.Color("#A3BE8C"),
		Warning:   lipgloss.Color("#EBCB8B"),
		Error:     lipgloss.Color("#BF616A"),
		Text:      lipgloss.Color("#ECEFF4"),
		TextMuted: lipgloss.Color("#D8DEE9"),
		Border:    lipgloss.Color("#4C566A"),
		User:      lipgloss.Color("#81A1C1"),
		Assistant: lipgloss.Color("#ECEFF4"),
		System:    lipgloss.Color("#4C566A"),
	},
	"github-light": {
		Name:      "github-light",
		Primary:   lipgloss.Color("#0969DA"),
		Success:   lipgloss.Color("#1A7F37"),
		Warning:   lipgloss.Color("#9A6700"),
		Error:     lipgloss.Color("#CF222E"),
		Text:      lipgloss.Color("#1F2328"),
		TextMuted: lipgloss.Color("#656D76"),
		Border:    lipgloss.Color("#D0D7DE"),
		User:      lipgloss.Color("#0969DA"),
		Assistant: lipgloss.Color("#1F2328"),
		System:    lipgloss.Color("#8C959F"),
	},
}

// Get returns a builtin theme by name.
func Get(name string) (*Theme, error) {
	t, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("theme not found: %s", name)
	}
	return t, nil
}

// Names lists the builtin themes in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default theme.
func Default() *Theme {
	return builtin[DefaultName]
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
	roles   map[string]lipgloss.Style
}

// Styles builds the output styles for t.
func (t *Theme) Styles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		Muted:   lipgloss.NewStyle().Foreground(t.TextMuted),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		roles: map[string]lipgloss.Style{
			"user":      lipgloss.NewStyle().Bold(true).Foreground(t.User),
			"assistant": lipgloss.NewStyle().Bold(true).Foreground(t.Assistant),
			"system":    lipgloss.NewStyle().Italic(true).Foreground(t.System),
		},
	}
}

// Role returns the style for a chat role label.
func (s Styles) Role(role string) lipgloss.Style {
	if st, ok := s.roles[role]; ok {
		return st
	}
	return s.Muted
}
