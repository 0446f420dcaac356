// Package llm wraps the OpenAI chat completions API for the task agents.
package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LoadConfig reads the API configuration from the environment, loading a
// .env file first if one exists.
func LoadConfig() Config {
	_ = godotenv.Load()
	cfg := Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return cfg
}

type Client struct {
	api   *openai.Client
	model string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), model: model}, nil
}

func (c *Client) Model() string { return c.model }

// Complete sends a single user prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.Chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// Chat sends a message history and returns the assistant message.
func (c *Client) Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionMessage, error) {
	return c.chat(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
}

// ChatWithTools sends a message history with function tools attached; the
// returned message may carry tool calls for the caller to dispatch.
func (c *Client) ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	return c.chat(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
}

// ChatStructured sends a message history with a JSON-schema response format
// and returns the raw JSON content.
func (c *Client) ChatStructured(ctx context.Context, messages []openai.ChatCompletionMessage, format *openai.ChatCompletionResponseFormat) (string, error) {
	msg, err := c.chat(ctx, openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *Client) chat(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("empty completion response")
	}
	return resp.Choices[0].Message, nil
}
