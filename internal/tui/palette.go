package tui

import "github.com/charmbracelet/lipgloss"

// Colors shared by the progress view and the tables.
var (
	ColorInk       = lipgloss.Color("#E5E9F0")
	ColorDim       = lipgloss.Color("#7A8291")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorAccentAlt = lipgloss.Color("#81A1C1")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
	ColorDanger    = lipgloss.Color("#BF616A")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle  = lipgloss.NewStyle().Foreground(ColorInk)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorDim)
	barStyle    = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	okStyle     = lipgloss.NewStyle().Foreground(ColorSuccess)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	dangerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(ColorInk).Padding(0, 1)
)

// StatusStyle returns the style of a tool status or verdict.
func StatusStyle(s string) lipgloss.Style {
	switch s {
	case "Success", "Safe", "yes":
		return okStyle
	case "Suspicious", "Error":
		return dangerStyle
	case "Not Installed", "no":
		return warnStyle
	default:
		return labelStyle
	}
}
