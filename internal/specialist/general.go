package specialist

import (
	"context"
	"fmt"
	"time"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

const generalPrompt = `You are a supportive mental health assistant. Provide general guidance, validate feelings, and suggest appropriate next steps (therapy, self-care, resources). Be warm and non-judgmental.`

// General handles messages that match no dedicated specialist. It also
// serves as the registry's fallback variant.
type General struct {
	client  gateway.Client
	window  int
	timeout time.Duration
}

// NewGeneral creates the general-support specialist.
func NewGeneral(client gateway.Client, window int, timeout time.Duration) *General {
	return &General{client: client, window: window, timeout: timeout}
}

// Intent implements Specialist.
func (g *General) Intent() types.Intent { return types.IntentGeneral }

// Respond generates a general supportive reply.
func (g *General) Respond(ctx context.Context, message string, recent []types.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := message
	if block := historyBlock(recent, g.window); block != "" {
		prompt = fmt.Sprintf("%s\nUser message: %s", block, message)
	}

	reply, err := g.client.CompleteWithSystem(ctx, generalPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("general specialist: %w", err)
	}
	return reply, nil
}
