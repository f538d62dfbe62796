// Package groq calls Groq's OpenAI-compatible chat completion API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"tome/internal/agent"
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewClient(apiKey, baseURL, model string, temperature float32, maxTokens int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Model reports the chat model name requests are sent with.
func (c *Client) Model() string { return c.model }

func (c *Client) Complete(ctx context.Context, messages []agent.Message) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	slog.DebugContext(ctx, "chat completion request", "model", c.model, "messages", len(messages))

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		slog.ErrorContext(ctx, "chat completion failed", "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("chat completion response has no choices")
	}
	return response.Choices[0].Message.Content, nil
}

func toOpenAI(messages []agent.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case agent.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case agent.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
