package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("63")
	colorMuted  = lipgloss.Color("243")
	colorDanger = lipgloss.Color("196")
	colorOK     = lipgloss.Color("42")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorMuted)

	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("230")).
			Background(colorAccent).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Strikethrough(true)

	descStyle     = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	deadlineStyle = lipgloss.NewStyle().Foreground(colorMuted)
	overdueStyle  = lipgloss.NewStyle().Foreground(colorDanger)
	busyStyle     = lipgloss.NewStyle().Foreground(colorMuted).Faint(true)

	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger)
	successStyle = lipgloss.NewStyle().Foreground(colorOK)
	labelStyle   = lipgloss.NewStyle().Width(12).Foreground(colorMuted)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1).
			MarginTop(1)
)
