package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles the colors and renderer used by all controls. Every
// style is created through the theme's renderer so output degrades
// correctly on dumb terminals.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
}

// DefaultTheme returns the standard dark-friendly palette.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56C2", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#4A5578", Dark: "#6272A4"},
		Text:      lipgloss.AdaptiveColor{Light: "#282A36", Dark: "#F8F8F2"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#C8C8D0", Dark: "#44475A"},
		Success:   lipgloss.AdaptiveColor{Light: "#1C8C4E", Dark: "#50FA7B"},
		Warning:   lipgloss.AdaptiveColor{Light: "#B4690E", Dark: "#FFB86C"},
		Danger:    lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5555"},
	}
}

// RenderDivider renders a horizontal divider line.
func RenderDivider(t Theme, width int) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
