// Package ui provides the interactive device-hierarchy session and shared
// styling for the devtree CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary   = lipgloss.Color("39")  // Bright blue
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("86")  // Cyan
	ColorText      = lipgloss.Color("252") // Light gray
	ColorSubtle    = lipgloss.Color("241") // Medium gray
	ColorMuted     = lipgloss.Color("238") // Dark gray
	ColorHighlight = lipgloss.Color("255") // White
)

var (
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Tree rendering
	MasterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	SlaveStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	FloatingStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Background(ColorMuted).
			Bold(true)

	StagedStyle = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorMuted).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)
)

// StateBadge renders a session state with its color.
func StateBadge(state string) string {
	style := lipgloss.NewStyle().Bold(true)
	switch state {
	case "idle":
		style = style.Foreground(ColorSuccess)
	case "staged":
		style = style.Foreground(ColorWarning)
	case "applying":
		style = style.Foreground(ColorInfo)
	case "error":
		style = style.Foreground(ColorError)
	default:
		style = style.Foreground(ColorSubtle)
	}
	return style.Render(state)
}
