package tui

import "github.com/charmbracelet/lipgloss"

var (
	courseStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	selectedStyle = courseStyle.Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62"))

	userLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")).Render("You")
	agentLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35")).Render("Tutor")
	timeStyle  = lipgloss.NewStyle().Faint(true)

	linkStyle = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))
	urlStyle  = lipgloss.NewStyle().Faint(true)

	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
