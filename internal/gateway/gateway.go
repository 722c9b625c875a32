// Package gateway provides the single synchronous call surface to external
// text-generation and content-moderation models. Everything downstream of
// this package treats model output as untrusted free text.
package gateway

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures of the external model service itself:
// transport errors, timeouts, and non-OK responses. Callers use errors.Is to
// distinguish "the model said no" from "the model could not be reached".
var ErrUnavailable = errors.New("gateway unavailable")

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Moderate runs the content-moderation model over text and returns its
	// raw verdict ("safe" or "unsafe" plus a category code). Parsing is the
	// safety gate's job.
	Moderate(ctx context.Context, text string) (string, error)
}

// moderationPrompt is the Llama Guard taxonomy prompt. The category codes are
// defined by the guard model and treated as opaque downstream.
const moderationPrompt = `Task: Check if there is unsafe content in the user message according to our safety policy.

<BEGIN UNSAFE CONTENT CATEGORIES>
S1: Violent Crimes
S2: Non-Violent Crimes
S3: Sex Crimes
S4: Child Exploitation
S5: Defamation
S6: Specialized Advice (financial, medical, legal)
S7: Privacy
S8: Intellectual Property
S9: Indiscriminate Weapons
S10: Hate
S11: Self-Harm
S12: Sexual Content
S13: Elections
<END UNSAFE CONTENT CATEGORIES>

<BEGIN CONVERSATION>
User: %s
<END CONVERSATION>

Provide your safety assessment. Reply with "safe" or "unsafe" followed by the category if unsafe.`
