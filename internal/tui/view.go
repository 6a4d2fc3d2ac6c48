package tui

import (
	"strings"

	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/linkify"
	"github.com/ashureev/coursetutor/internal/session"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.banner())
	b.WriteString("\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) header() string {
	tabs := make([]string, 0, len(m.state.Courses))
	for _, c := range m.state.Courses {
		if c == m.state.SelectedCourse {
			tabs = append(tabs, selectedStyle.Render(string(c)))
		} else {
			tabs = append(tabs, courseStyle.Render(string(c)))
		}
	}
	if len(tabs) == 0 {
		tabs = append(tabs, mutedStyle.Render("No courses"))
	}

	voice := "voice off"
	if m.state.VoiceEnabled {
		voice = "voice on"
	}
	badges := []string{mutedStyle.Render(voice)}
	if m.state.Speaking {
		badges = append(badges, badgeStyle.Render("Speaking..."))
	}
	if m.state.Pending {
		badges = append(badges, m.spin.View()+badgeStyle.Render("Thinking..."))
	}

	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	right := strings.Join(badges, "  ")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) banner() string {
	switch {
	case m.state.LoadError != nil && m.state.LoadError.Op == session.LoadCourses:
		return errorStyle.Render("Couldn't load your courses. Press C-r to retry.")
	case m.state.LoadError != nil:
		return errorStyle.Render("Couldn't load the history for " + string(m.state.LoadError.Course) + ". Press C-r to retry.")
	case m.state.LoadingHistory:
		return mutedStyle.Render("Loading history...")
	case m.status != "":
		return errorStyle.Render(m.status)
	}
	return ""
}

func renderHistory(history []domain.Message, width int) string {
	if len(history) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	wrap := lipgloss.NewStyle().Width(max(width-2, 10))

	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := userLabel
		body := msg.Text
		if msg.IsAgent() {
			label = agentLabel
			body = renderLinks(msg.Text)
		}
		b.WriteString(label + " " + timeStyle.Render(msg.Time.Local().Format("15:04")) + "\n")
		b.WriteString(wrap.Render(body))
	}
	return b.String()
}

// renderLinks shows each link as its styled label followed by the URL.
func renderLinks(text string) string {
	var b strings.Builder
	for _, seg := range linkify.Tokenize(text) {
		if !seg.IsLink() {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(linkStyle.Render(seg.Text))
		b.WriteString(urlStyle.Render(" <" + seg.URL + ">"))
	}
	return b.String()
}
