package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	stageDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4CAF50"))
	stagePendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#999999"))
	fieldTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7B801"))
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))
	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0AEC0"))
	labelViolationStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FF6B6B"))
	labelBorderlineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F7B801"))
	labelAllowedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#4CAF50"))
	logHeadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	logBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)
