package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GroqClient implements Client against Groq's OpenAI-compatible API. It
// serves two models: the instruct model for generation and the guard model
// for moderation.
type GroqClient struct {
	apiKey     string
	baseURL    string
	model      string
	guardModel string
	httpClient *http.Client
}

// GroqConfig holds configuration for the Groq client.
type GroqConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	GuardModel string
	Timeout    time.Duration
}

// DefaultGroqConfig returns sensible defaults.
func DefaultGroqConfig(apiKey string) GroqConfig {
	return GroqConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.groq.com/openai/v1",
		Model:      "llama-3.1-8b-instant",
		GuardModel: "llama-guard-3-8b",
		Timeout:    30 * time.Second,
	}
}

// NewGroqClient creates a new Groq client with default config.
func NewGroqClient(apiKey string) *GroqClient {
	return NewGroqClientWithConfig(DefaultGroqConfig(apiKey))
}

// NewGroqClientWithConfig creates a new Groq client with custom config.
func NewGroqClientWithConfig(config GroqConfig) *GroqClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	guard := strings.TrimSpace(config.GuardModel)
	if guard == "" {
		guard = "llama-guard-3-8b"
	}
	return &GroqClient{
		apiKey:     config.APIKey,
		baseURL:    config.BaseURL,
		model:      model,
		guardModel: guard,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// groqRequest represents the API request structure.
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

// groqMessage represents a message in the conversation.
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqResponse represents the API response structure.
type groqResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends a prompt and returns the completion.
func (c *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GroqClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]groqMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, groqMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, groqMessage{Role: "user", Content: userPrompt})

	return c.chat(ctx, c.model, messages, 512, 0.7)
}

// Moderate sends text to the guard model and returns its raw verdict.
func (c *GroqClient) Moderate(ctx context.Context, text string) (string, error) {
	messages := []groqMessage{
		{Role: "user", Content: fmt.Sprintf(moderationPrompt, text)},
	}
	// Low temperature: the verdict format must stay parseable.
	return c.chat(ctx, c.guardModel, messages, 100, 0.1)
}

func (c *GroqClient) chat(ctx context.Context, model string, messages []groqMessage, maxTokens int, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	reqBody := groqRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        0.9,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var groqResp groqResponse
	if err := json.Unmarshal(body, &groqResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrUnavailable, err)
	}

	if groqResp.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", ErrUnavailable, groqResp.Error.Message)
	}

	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion returned", ErrUnavailable)
	}

	return strings.TrimSpace(groqResp.Choices[0].Message.Content), nil
}

// SetModel changes the instruct model used for completions.
func (c *GroqClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current instruct model.
func (c *GroqClient) GetModel() string {
	return c.model
}
