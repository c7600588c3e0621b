package domain

import "context"

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "fsdgen:"

// EmbeddingResult is a computed embedding plus token usage from the provider.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by providers that can probe their upstream API.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Resize adjusts a vector to targetDim: shorter vectors are right-padded with
// zeros, longer ones truncated. The result always has length targetDim.
// targetDim <= 0 returns the vector unchanged.
func Resize(vec []float32, targetDim int) []float32 {
	if targetDim <= 0 || len(vec) == targetDim {
		return vec
	}
	out := make([]float32, targetDim)
	copy(out, vec)
	return out
}
