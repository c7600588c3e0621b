package retrieval

import (
	"context"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// Repository defines the storage contract for retrieval operations.
type Repository interface {
	ListCollections(ctx context.Context) ([]string, error)
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Match, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
