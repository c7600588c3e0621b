package pipeline

import (
	"context"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// Retriever supplies context matches for a query. Retrieval failures degrade
// to an empty result set, so no error is returned.
type Retriever interface {
	Search(ctx context.Context, query string, collections []string, topK int) []domain.Match
}

// Completer is the chat completion backend contract.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}
