// Package narrator talks to the external text-completion service that voices
// the game master. It keeps no state between calls.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const DefaultModel = "gpt-4o-mini"

var (
	ErrNotConfigured = errors.New("narrator is not configured")
	ErrEmptyResponse = errors.New("narrator returned an empty response")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Generator produces the next narrator line from an ordered conversation.
type Generator interface {
	Generate(ctx context.Context, roomID uuid.UUID, messages []Message) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client is a Generator backed by an OpenAI-compatible chat completions API.
type Client struct {
	api   openai.Client
	model string
	log   zerolog.Logger
}

// NewClient returns nil when no API key is configured; callers use
// Disabled in that case.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: model,
		log:   log.With().Str("component", "narrator").Logger(),
	}
}

func (c *Client) Generate(ctx context.Context, roomID uuid.UUID, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Disabled is the Generator used when no narrator is configured. Every call
// fails so rooms fall back to their system messages.
type Disabled struct{}

func (Disabled) Generate(context.Context, uuid.UUID, []Message) (string, error) {
	return "", ErrNotConfigured
}
