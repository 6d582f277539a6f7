package llm

import (
	"context"
	"fmt"

	"github.com/labelpadega/backend/internal/domain"
)

// Disabled is the provider used when no API key is configured
type Disabled struct{}

// Generate always fails with domain.ErrAIUnavailable
func (Disabled) Generate(ctx context.Context, prompt string, images ...domain.Image) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", domain.ErrAIUnavailable)
}

// Converse always fails with domain.ErrAIUnavailable
func (Disabled) Converse(ctx context.Context, system string, turns []domain.ChatMessage) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", domain.ErrAIUnavailable)
}
