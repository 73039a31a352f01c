// Package ai wraps the external text-completion engine.
package ai

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the text-completion service interface.
type LLMService interface {
	// Chat performs a synchronous completion over the given messages.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Config holds the completion engine configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

type llmService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService.
func NewLLMService(cfg *Config) (LLMService, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("completion engine requires an API key")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 150
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	return &llmService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    llmMessages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty chat response")
	}
	return resp.Choices[0].Message.Content, nil
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
