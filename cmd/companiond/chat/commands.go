package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"companiond/internal/types"
)

// cmdNewSession clears the local transcript and drops the session binding.
// The next message starts a fresh session on the server side.
func (m Model) cmdNewSession() (tea.Model, tea.Cmd) {
	m.sessionID = ""
	m.history = []message{{
		Role:    "system",
		Content: "Started a new conversation.",
	}}
	m.refreshViewport()
	return m, nil
}

// cmdHistory fetches the stored turns for the current session.
func (m Model) cmdHistory() (tea.Model, tea.Cmd) {
	if m.sessionID == "" {
		m.history = append(m.history, message{Role: "system", Content: "No active session yet. Send a message first."})
		m.refreshViewport()
		return m, nil
	}
	m.waiting = true
	pipeline := m.pipeline
	sessionID := m.sessionID
	timeout := m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		turns, err := pipeline.History(ctx, sessionID)
		return historyMsg{turns: turns, err: err}
	})
}

// cmdStats fetches aggregate counts from the store.
func (m Model) cmdStats() (tea.Model, tea.Cmd) {
	m.waiting = true
	pipeline := m.pipeline
	timeout := m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		stats, err := pipeline.Stats(ctx)
		return statsMsg{stats: stats, err: err}
	})
}

func renderHistory(turns []types.Turn, err error) string {
	if err != nil {
		return fmt.Sprintf("history error: %v", err)
	}
	if len(turns) == 0 {
		return "No stored turns for this session."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Session history (%d turns):\n", len(turns))
	for i, t := range turns {
		status := "blocked"
		if t.Approved {
			status = "approved"
		}
		fmt.Fprintf(&b, "%d. [%s, %s, score %.1f] %s\n", i+1, t.Intent, status, t.JudgeScore, truncate(t.UserMessage, 60))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStats(stats types.Stats, err error) string {
	if err != nil {
		return fmt.Sprintf("stats error: %v", err)
	}
	return fmt.Sprintf("Sessions: %d | Turns: %d | As of %s", stats.Sessions, stats.Turns, time.Now().Format("15:04:05"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
