package specialist

import (
	"context"
	"fmt"
	"time"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

const anxietyPrompt = `You are a compassionate, professionally trained anxiety specialist with expertise in Cognitive Behavioral Therapy (CBT).

YOUR APPROACH:
1. Validate the user's feelings with empathy
2. Help identify anxious thoughts and triggers
3. Apply CBT techniques:
   - Thought challenging (questioning negative thoughts)
   - Behavioral activation (encouraging helpful actions)
   - Exposure principles (gradual facing of fears)
   - Relaxation techniques (breathing, grounding)
4. Provide practical, actionable steps
5. Encourage self-efficacy and hope

GUIDELINES:
- Keep responses warm, supportive, and non-judgmental
- Use clear, simple language (avoid jargon)
- Focus on the present moment and manageable steps
- Acknowledge progress and strengths
- Be brief but meaningful (2-3 short paragraphs)
- NEVER give medical advice or diagnose
- If crisis indicators appear, acknowledge and suggest professional help

IMPORTANT SAFETY:
- If user mentions self-harm or suicidal thoughts, respond with compassion but DO NOT attempt therapy
- Acknowledge their pain and strongly encourage calling a crisis hotline or emergency services

Your goal: Help the user feel heard, understood, and empowered to manage their anxiety.`

// Anxiety is the CBT-oriented variant for the anxiety intent.
type Anxiety struct {
	client  gateway.Client
	window  int
	timeout time.Duration
}

// NewAnxiety creates the anxiety specialist.
func NewAnxiety(client gateway.Client, window int, timeout time.Duration) *Anxiety {
	return &Anxiety{client: client, window: window, timeout: timeout}
}

// Intent implements Specialist.
func (a *Anxiety) Intent() types.Intent { return types.IntentAnxiety }

// Respond generates a CBT-oriented supportive reply.
func (a *Anxiety) Respond(ctx context.Context, message string, recent []types.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := message
	if block := historyBlock(recent, a.window); block != "" {
		prompt = fmt.Sprintf("%s\nUser message: %s", block, message)
	}

	reply, err := a.client.CompleteWithSystem(ctx, anxietyPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("anxiety specialist: %w", err)
	}
	return reply, nil
}
