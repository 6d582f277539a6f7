package domain

import "errors"

var (
	// ErrProductNotFound is returned when no upstream database knows the product
	ErrProductNotFound = errors.New("no product found")

	// ErrLowConfidence is returned when the match confidence is below the threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache or is stale
	ErrCacheMiss = errors.New("cache miss")

	// ErrUpstreamFailure is returned when an external data source request fails
	ErrUpstreamFailure = errors.New("upstream request failed")

	// ErrAIUnavailable is returned when the generative AI provider call fails
	ErrAIUnavailable = errors.New("AI provider unavailable")

	// ErrSessionNotFound is returned when a chat session id is unknown
	ErrSessionNotFound = errors.New("session not found")
)
