package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	meta      lipgloss.Style
	footer    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		system:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := m.styles.header.Render("companiond") + m.styles.meta.Render(m.sessionTag())

	status := ""
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	footer := m.styles.footer.Render("enter: send | new | history | stats | ctrl+c: quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		status,
		m.textarea.View(),
		footer,
	)
}

func (m Model) sessionTag() string {
	if m.sessionID == "" {
		return "  (no session)"
	}
	id := m.sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "  session " + id
}

// renderTranscript formats the full message history for the viewport.
func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			b.WriteString(m.styles.user.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case "assistant":
			label := "Companion"
			if msg.HasMeta {
				label += m.styles.meta.Render(fmt.Sprintf("  [%s | score %.1f]", msg.Intent, msg.Score))
			}
			b.WriteString(m.styles.assistant.Render(label))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Content))
		case "system":
			b.WriteString(m.styles.system.Render(msg.Content))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderMarkdown renders assistant output through glamour, falling back to
// plain text if the renderer is unavailable or panics on odd input.
func (m Model) renderMarkdown(content string) (out string) {
	if m.renderer == nil {
		return content
	}
	defer func() {
		if r := recover(); r != nil {
			out = content
		}
	}()
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}
