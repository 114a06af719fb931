package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

	stepRunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stepCompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stepFailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	noticeInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	noticeErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			PaddingRight(1)

	sidebarActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	footerStyle = lipgloss.NewStyle().Faint(true)
)
