package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/metrics"
)

const (
	defaultAnalysisTTL = 7 * 24 * time.Hour
	defaultAITimeout   = 60 * time.Second
)

// AIConfig holds the settings shared by the AI-backed services
type AIConfig struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

// aiRunner wraps the provider with the response cache, a call timeout and metrics
type aiRunner struct {
	provider domain.AIProvider
	cache    domain.CacheRepository
	ttl      time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func newAIRunner(provider domain.AIProvider, cacheRepo domain.CacheRepository, cfg AIConfig, logger *zap.Logger) *aiRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultAnalysisTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	return &aiRunner{
		provider: provider,
		cache:    cacheRepo,
		ttl:      ttl,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// load decodes a fresh cache entry into out
func (r *aiRunner) load(ctx context.Context, key string, out interface{}) bool {
	if r.cache == nil {
		return false
	}
	raw, err := r.cache.Get(ctx, key, r.ttl)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.logger.Warn("discarding unreadable analysis cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// store writes v to the cache; failures are logged and swallowed
func (r *aiRunner) store(ctx context.Context, key string, v interface{}) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, v); err != nil {
		r.logger.Warn("failed to cache AI response", zap.String("key", key), zap.Error(err))
	}
}

// generate makes exactly one provider call bounded by the runner timeout.
// The returned text is trimmed; an empty string with a nil error means the model said nothing.
func (r *aiRunner) generate(ctx context.Context, kind, prompt string, images ...domain.Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := r.provider.Generate(ctx, prompt, images...)
	r.observe(kind, start, text, err)
	if err != nil {
		r.logger.Warn("AI call failed", zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// converse is generate for multi-turn chats
func (r *aiRunner) converse(ctx context.Context, kind, system string, turns []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := r.provider.Converse(ctx, system, turns)
	r.observe(kind, start, text, err)
	if err != nil {
		r.logger.Warn("AI chat call failed", zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *aiRunner) observe(kind string, start time.Time, text string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailure
	case strings.TrimSpace(text) == "":
		outcome = metrics.OutcomeEmpty
	}
	metrics.AICalls.WithLabelValues(metricKind(kind), outcome).Inc()
	metrics.AICallDuration.WithLabelValues(metricKind(kind)).Observe(time.Since(start).Seconds())
}

// metricKind folds certification kinds into one label to bound cardinality
func metricKind(kind string) string {
	if domain.IsCertificationKind(kind) {
		return "certification"
	}
	return kind
}
