package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// Service embeds queries and searches named collections for similar payloads.
//
// Every failure path degrades to an empty result set: the generation pipeline
// must keep running without context rather than fail on retrieval problems.
type Service struct {
	repo      Repository
	embed     Embedder // nil when the embedder could not be initialized
	targetDim int      // index dimension; 0 = use native embedding dimension
	logger    *zap.Logger
}

// New creates a retrieval service. embed may be nil; every search then
// short-circuits to an empty result.
func New(repo Repository, embed Embedder, targetDim int, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, targetDim: targetDim, logger: logger}
}

// Search embeds the query and returns the topK best matches across the
// requested collections, ordered by descending similarity score.
//
// Collections that do not exist in the store are skipped, as is any
// collection whose search fails. A single authoritative collection is
// returned as-is without re-ranking.
func (s *Service) Search(ctx context.Context, query string, collections []string, topK int) []domain.Match {
	if s.embed == nil {
		s.logger.Warn("Embedder not initialized, returning empty retrieval results")
		return nil
	}
	if topK <= 0 || len(collections) == 0 {
		return nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Failed to embed query", zap.Error(err))
		return nil
	}
	vector := domain.Resize(embResult.Embedding, s.targetDim)

	valid := s.validCollections(ctx, collections)
	if len(valid) == 0 {
		s.logger.Warn("No valid collections found", zap.Strings("requested", collections))
		return nil
	}

	var all []domain.Match
	for _, col := range valid {
		matches, err := s.repo.Search(ctx, col, vector, topK)
		if err != nil {
			s.logger.Warn("Collection search failed, skipping",
				zap.String("collection", col), zap.Error(err))
			continue
		}
		all = append(all, matches...)
	}

	// A single authoritative collection keeps the store's own ordering.
	if len(valid) == 1 {
		if len(all) > topK {
			all = all[:topK]
		}
		return all
	}

	return mergeByScore(all, topK)
}

// validCollections intersects the requested collections with those that
// actually exist, preserving the requested order.
func (s *Service) validCollections(ctx context.Context, requested []string) []string {
	existing, err := s.repo.ListCollections(ctx)
	if err != nil {
		s.logger.Warn("Failed to list collections", zap.Error(err))
		return nil
	}

	existingSet := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingSet[name] = struct{}{}
	}

	valid := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := existingSet[name]; ok {
			valid = append(valid, name)
		}
	}
	return valid
}
