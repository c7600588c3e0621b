package domain

import "context"

// CompletionRequest is a single system+user exchange with sampling bounds.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Completer is the shared chat completion contract between layers.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
