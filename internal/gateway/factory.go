package gateway

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"companiond/internal/config"
)

// NewClientFromConfig resolves the configured provider into a Client.
// An empty provider falls back to environment detection.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	llm := cfg.LLM

	switch llm.Provider {
	case "groq":
		gc := GroqConfig{
			APIKey:     llm.APIKey,
			BaseURL:    llm.BaseURL,
			Model:      llm.Model,
			GuardModel: llm.GuardModel,
			Timeout:    cfg.GetLLMTimeout(),
		}
		if gc.BaseURL == "" {
			gc.BaseURL = DefaultGroqConfig(llm.APIKey).BaseURL
		}
		if gc.APIKey == "" {
			return nil, fmt.Errorf("groq provider selected but no API key configured")
		}
		return NewGroqClientWithConfig(gc), nil

	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey: llm.APIKey,
			Model:  llm.Model,
		})

	case "":
		return NewClientFromEnv(ctx)

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", llm.Provider)
	}
}

// NewClientFromEnv detects a provider from environment variables.
// Priority: GROQ_API_KEY > GEMINI_API_KEY.
func NewClientFromEnv(ctx context.Context) (Client, error) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return NewGroqClient(key), nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return NewGeminiClient(ctx, GeminiConfig{APIKey: key})
	}
	return nil, fmt.Errorf("no API key found; set GROQ_API_KEY or GEMINI_API_KEY")
}

// Probe verifies at startup that both the instruct path and the moderation
// path answer. The two calls are independent, so they run in parallel; any
// failure is reported as unavailable.
func Probe(ctx context.Context, client Client) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := client.Complete(ctx, "Reply with the single word: ready")
		return err
	})
	g.Go(func() error {
		_, err := client.Moderate(ctx, "Hello, how are you?")
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("gateway probe failed: %w", err)
	}
	return nil
}
