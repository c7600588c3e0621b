package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmrlabs/fsdgen/internal/db"
	"github.com/jmrlabs/fsdgen/internal/domain"
)

const indexSuffix = ":idx"

// store is the consumer interface for retrieval operations (ISP).
type store interface {
	ListIndexes(ctx context.Context) ([]string, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo resolves collection names to FT indexes and parses search hits.
type Repo struct {
	store store
}

// New creates a retrieval repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// ListCollections returns the names of collections that exist in the store.
// Index names outside this service's namespace are ignored.
func (r *Repo) ListCollections(ctx context.Context) ([]string, error) {
	indexes, err := r.store.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		name, ok := strings.CutPrefix(idx, domain.KeyPrefix)
		if !ok {
			continue
		}
		name, ok = strings.CutSuffix(name, indexSuffix)
		if !ok {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// CollectionExists reports whether a collection's index is present in the store.
func (r *Repo) CollectionExists(ctx context.Context, collection string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, indexName(collection))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", collection, err)
	}
	return ok, nil
}

// Search runs a KNN search against one collection and returns scored matches.
func (r *Repo) Search(
	ctx context.Context, collection string, vector []float32, limit int,
) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName: indexName(collection),
		Vector:    vector,
		K:         limit,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		matches = append(matches, domain.Match{
			Collection: collection,
			Payload:    parsePayload(entry.Fields),
			Score:      entry.Score,
		})
	}
	return matches, nil
}

func indexName(collection string) string {
	return domain.KeyPrefix + collection + indexSuffix
}

// parsePayload copies hash fields into a payload, dropping the vector
// machinery fields the index adds.
func parsePayload(fields map[string]string) domain.Payload {
	p := make(domain.Payload, len(fields))
	for k, v := range fields {
		switch k {
		case "__vector", "__vector_score", "vector":
			continue
		}
		p[strings.TrimPrefix(k, "__")] = v
	}
	return p
}
