// Package router classifies a safety-cleared user message into one intent
// from the closed set, using a single constrained model call.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

const systemPrompt = `You are a mental health triage specialist. Your job is to analyze user messages and route them to the appropriate specialist.

ROUTING CATEGORIES:
1. ANXIETY - Worry, nervousness, panic, fear, stress about future events
2. CRISIS - Self-harm, suicidal thoughts, immediate danger, severe distress
3. GENERAL - Other mental health concerns, unclear issues

INSTRUCTIONS:
- Read the user message carefully
- Identify the PRIMARY concern
- Respond with ONLY ONE WORD: ANXIETY, CRISIS, or GENERAL
- If multiple concerns exist, prioritize CRISIS > ANXIETY > GENERAL

Examples:
User: "I'm worried about my exam tomorrow" -> ANXIETY
User: "I want to hurt myself" -> CRISIS
User: "I feel sad lately" -> GENERAL`

// Router resolves a user message to an intent. Parse failures never
// propagate: an unreadable classifier reply deterministically falls back to
// the general intent. Gateway failures do propagate so the orchestrator can
// degrade the whole turn.
type Router struct {
	client  gateway.Client
	window  int
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a router. window is how many prior turns accompany the message
// for disambiguation.
func New(client gateway.Client, window int, timeout time.Duration, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{client: client, window: window, timeout: timeout, logger: logger}
}

// Classify returns exactly one intent for the message.
func (r *Router) Classify(ctx context.Context, message string, recent []types.Turn) (types.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.CompleteWithSystem(ctx, systemPrompt, r.buildPrompt(message, recent))
	if err != nil {
		return "", fmt.Errorf("router: classification call failed: %w", err)
	}

	intent := types.ParseIntent(raw)
	r.logger.Debug("message routed",
		zap.String("intent", string(intent)),
		zap.String("raw", raw))
	return intent, nil
}

// buildPrompt prepends a bounded window of prior exchanges so the classifier
// can disambiguate short follow-ups ("it got worse").
func (r *Router) buildPrompt(message string, recent []types.Turn) string {
	window := recentWindow(recent, r.window)
	if len(window) == 0 {
		return fmt.Sprintf("User message: %s", message)
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, turn := range window {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", turn.UserMessage, turn.Response)
	}
	fmt.Fprintf(&sb, "\nUser message: %s", message)
	return sb.String()
}

// recentWindow returns the last n turns, oldest first.
func recentWindow(turns []types.Turn, n int) []types.Turn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}
