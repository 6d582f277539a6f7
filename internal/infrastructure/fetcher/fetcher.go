package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
	"github.com/labelpadega/backend/internal/metrics"
)

const maxBodyBytes = 10 << 20

// Config controls retries, timeouts and client-side rate limiting
type Config struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns three attempts, 1s base delay and a 10s timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Timeout:     10 * time.Second,
		UserAgent:   "LabelPadega/2.0",
	}
}

// Fetcher performs JSON GET requests against one upstream source
type Fetcher struct {
	source      string
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// New creates a fetcher for source. Zero config fields take their defaults.
func New(source string, cfg Config, log *zap.Logger) *Fetcher {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	f := &Fetcher{
		source:     source,
		cfg:        cfg,
		httpClient: &http.Client{},
		sleep:      sleepContext,
		logger:     logger.OrNop(log).With(zap.String("source", source)),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		f.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return f
}

// WithHTTPClient replaces the underlying HTTP client
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.httpClient = c
	return f
}

// WithSleep replaces the function used to wait between attempts
func (f *Fetcher) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Fetcher {
	f.sleep = fn
	return f
}

// GetJSON fetches rawURL with params and decodes the JSON body into out.
// Transport errors, 5xx, 429 and undecodable bodies are retried with a delay
// of BaseDelay*n before attempt n+1. A 404 returns domain.ErrProductNotFound.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	reqURL := buildURL(rawURL, params)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.cfg.BaseDelay * time.Duration(attempt-1)
			if err := f.sleep(ctx, delay); err != nil {
				return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamFailure, f.source, err)
			}
		}

		if f.rateLimiter != nil {
			if err := f.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %s rate limiter: %v", domain.ErrUpstreamFailure, f.source, err)
			}
		}

		retry, err := f.do(ctx, reqURL, out)
		if err == nil {
			metrics.UpstreamAttempts.WithLabelValues(f.source, metrics.OutcomeSuccess).Inc()
			return nil
		}
		if !retry || ctx.Err() != nil {
			metrics.UpstreamAttempts.WithLabelValues(f.source, metrics.OutcomeFailure).Inc()
			return err
		}

		metrics.UpstreamAttempts.WithLabelValues(f.source, metrics.OutcomeRetry).Inc()
		f.logger.Warn("upstream attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(err),
		)
		lastErr = err
	}

	f.logger.Error("all upstream attempts failed", zap.String("url", rawURL), zap.Error(lastErr))
	return fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrUpstreamFailure, f.source, f.cfg.MaxAttempts, lastErr)
}

// do executes one attempt and reports whether a failure may be retried
func (f *Fetcher) do(ctx context.Context, reqURL string, out interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create request: %v", domain.ErrUpstreamFailure, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return true, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, domain.ErrProductNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("%w: %s status %d: %s", domain.ErrUpstreamFailure, f.source, resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return true, fmt.Errorf("invalid JSON: %w", err)
	}
	return false, nil
}

func buildURL(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
