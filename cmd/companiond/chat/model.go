// Package chat provides the interactive terminal client for companiond.
// The package is split for maintainability:
//   - model.go: types, Init, Update loop (this file)
//   - commands.go: local command handling (new/history/stats)
//   - view.go: rendering
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"companiond/internal/orchestrator"
	"companiond/internal/types"
)

// Pipeline is the orchestrator surface the chat client consumes.
type Pipeline interface {
	Chat(ctx context.Context, message, sessionID string) (orchestrator.Result, error)
	History(ctx context.Context, sessionID string) ([]types.Turn, error)
	Stats(ctx context.Context) (types.Stats, error)
}

// message is one rendered entry in the transcript.
type message struct {
	Role    string // "user", "assistant", "system"
	Content string
	// Workflow annotation for assistant messages
	Intent   types.Intent
	Score    float64
	Approved bool
	HasMeta  bool
}

// Model is the bubbletea model for the chat client.
type Model struct {
	pipeline  Pipeline
	sessionID string
	timeout   time.Duration

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   styles

	history []message
	waiting bool
	width   int
	height  int
	ready   bool
	err     error
}

// chatResultMsg carries one completed pipeline run back to Update.
type chatResultMsg struct {
	result orchestrator.Result
	err    error
}

// historyMsg carries a history lookup back to Update.
type historyMsg struct {
	turns []types.Turn
	err   error
}

// statsMsg carries a stats lookup back to Update.
type statsMsg struct {
	stats types.Stats
	err   error
}

// New creates the chat model. timeout bounds each pipeline run end to end.
func New(pipeline Pipeline, timeout time.Duration) Model {
	ta := textarea.New()
	ta.Placeholder = "Share what's on your mind... (enter to send, ctrl+c to quit)"
	ta.Prompt = "> "
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		pipeline: pipeline,
		timeout:  timeout,
		textarea: ta,
		spinner:  sp,
		styles:   defaultStyles(),
		history: []message{{
			Role:    "system",
			Content: "Welcome. Type a message to begin, or use: new (fresh conversation), history, stats, quit.",
		}},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if !m.ready {
			m.ready = true
			var err error
			m.renderer, err = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(m.viewport.Width),
			)
			if err != nil {
				m.renderer = nil
			}
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case chatResultMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			m.history = append(m.history, message{
				Role:    "system",
				Content: fmt.Sprintf("error: %v", msg.err),
			})
		} else {
			m.sessionID = msg.result.SessionID
			m.history = append(m.history, message{
				Role:     "assistant",
				Content:  msg.result.Response,
				Intent:   msg.result.Workflow.Routing,
				Score:    msg.result.Workflow.JudgeScore,
				Approved: msg.result.Approved,
				HasMeta:  true,
			})
		}
		m.refreshViewport()
		return m, nil

	case historyMsg:
		m.waiting = false
		m.history = append(m.history, message{Role: "system", Content: renderHistory(msg.turns, msg.err)})
		m.refreshViewport()
		return m, nil

	case statsMsg:
		m.waiting = false
		m.history = append(m.history, message{Role: "system", Content: renderStats(msg.stats, msg.err)})
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, taCmd, vpCmd)
	return m, tea.Batch(cmds...)
}

// handleInput dispatches a submitted line: local command or pipeline run.
func (m Model) handleInput(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(input) {
	case "quit", "exit":
		return m, tea.Quit
	case "new":
		return m.cmdNewSession()
	case "history":
		return m.cmdHistory()
	case "stats":
		return m.cmdStats()
	}

	m.history = append(m.history, message{Role: "user", Content: input})
	m.waiting = true
	m.refreshViewport()

	pipeline := m.pipeline
	sessionID := m.sessionID
	timeout := m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := pipeline.Chat(ctx, input, sessionID)
		return chatResultMsg{result: result, err: err}
	})
}

// layout sizes the viewport around the header, footer, and textarea.
func (m *Model) layout() {
	const chromeHeight = 7 // header + footer + textarea rows
	vpHeight := m.height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(m.width - 2)
}

// refreshViewport re-renders the transcript and keeps the tail visible.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
