package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"companiond/cmd/companiond/chat"
	"companiond/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive support conversation in the terminal",
	Long: `Chat runs the full pipeline locally: safety screening, intent
triage, specialist response, and quality review, with the conversation
stored in the configured backend.

Requires GROQ_API_KEY or GEMINI_API_KEY.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	model := chat.New(application.orchestrator, cfg.GetCallTimeout())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
