// Package tui provides the terminal agenda dashboard for ProjectHub.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI dashboard.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorActive    = lipgloss.Color("#3B82F6") // Blue
	ColorBorder    = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles for the TUI.
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleSection = lipgloss.NewStyle().
			Bold(true)

	StyleProject = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleTask = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleTime = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Box styles for the dashboard sections.
var (
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginBottom(1)

	// StyleNextBox frames the next event once it is about to start.
	StyleNextBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(0, 1).
			MarginBottom(1)
)

// ProgressBar renders percentage as a bar of width cells.
func ProgressBar(percentage float64, width int) string {
	percentage = min(max(percentage, 0), 100)
	filled := int(float64(width) * percentage / 100)

	filledStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

// FormatProjectTask formats "project/id" notation with styles.
func FormatProjectTask(projectSID, taskID string) string {
	if taskID == "" {
		return StyleProject.Render(projectSID)
	}
	return StyleProject.Render(projectSID) + "/" + StyleTask.Render(taskID)
}

// boxWidth is the inner width for a box filling the terminal.
func boxWidth(width int) int {
	return max(width-4, 20)
}
