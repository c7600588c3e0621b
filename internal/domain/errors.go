package domain

import "errors"

var (
	// ErrRateLimited signals the LLM backend rejected the request for capacity reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendError signals an LLM backend failure other than rate limiting.
	ErrBackendError = errors.New("llm backend error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmptyRequirement signals a blank requirement at a service entry point.
	ErrEmptyRequirement = errors.New("empty requirement")
)
