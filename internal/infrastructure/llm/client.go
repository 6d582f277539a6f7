package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
)

// Config configures the hosted model
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// Client calls the Anthropic Messages API. It never retries; callers decide how to degrade.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient creates a client for the configured model
func NewClient(cfg Config, log *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger.OrNop(log),
	}
}

// Generate sends one user turn made of the images followed by the prompt
func (c *Client) Generate(ctx context.Context, prompt string, images ...domain.Image) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	return c.send(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
}

// Converse sends a system prompt and the conversation so far
func (c *Client) Converse(ctx context.Context, system string, turns []domain.ChatMessage) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case domain.RoleAssistant:
			// The API requires the first turn to come from the user
			if len(messages) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no user message to send", domain.ErrInvalidRequest)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return c.send(ctx, params)
}

func (c *Client) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.logger.Warn("ai provider call failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrAIUnavailable, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	c.logger.Debug("ai provider call",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return b.String(), nil
}
