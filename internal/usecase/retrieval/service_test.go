package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	existing    []string
	listErr     error
	byCol       map[string][]domain.Match
	errByCol    map[string]error
	searchCalls []string
	lastVector  []float32
}

func (m *mockRepo) ListCollections(_ context.Context) ([]string, error) {
	return m.existing, m.listErr
}

func (m *mockRepo) Search(
	_ context.Context, collection string, vector []float32, _ int,
) ([]domain.Match, error) {
	m.searchCalls = append(m.searchCalls, collection)
	m.lastVector = vector
	if err, ok := m.errByCol[collection]; ok {
		return nil, err
	}
	return m.byCol[collection], nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func match(col string, score float64, content string) domain.Match {
	return domain.Match{Collection: col, Score: score, Payload: domain.Payload{"content": content}}
}

// --- Tests ---

func TestSearch_MergesAcrossCollections(t *testing.T) {
	repo := &mockRepo{
		existing: []string{"A", "B"},
		byCol: map[string][]domain.Match{
			"A": {match("A", 0.9, "a1"), match("A", 0.95, "a2"), match("A", 0.2, "a3")},
			"B": {match("B", 0.99, "b1")},
		},
	}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := New(repo, embed, 0, zap.NewNop())

	results := svc.Search(context.Background(), "query", []string{"A", "B"}, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score != 0.99 || results[1].Score != 0.95 {
		t.Errorf("expected [0.99 0.95], got [%v %v]", results[0].Score, results[1].Score)
	}
}

func TestSearch_SkipsUnknownCollections(t *testing.T) {
	repo := &mockRepo{
		existing: []string{"B"},
		byCol:    map[string][]domain.Match{"B": {match("B", 0.5, "b")}},
	}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	results := svc.Search(context.Background(), "query", []string{"A", "B", "C"}, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(repo.searchCalls) != 1 || repo.searchCalls[0] != "B" {
		t.Errorf("expected search against B only, got %v", repo.searchCalls)
	}
}

func TestSearch_NoValidCollections(t *testing.T) {
	repo := &mockRepo{existing: []string{"other"}}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	results := svc.Search(context.Background(), "query", []string{"A", "B"}, 5)
	if results != nil {
		t.Errorf("expected nil result set, got %v", results)
	}
	if len(repo.searchCalls) != 0 {
		t.Errorf("no searches should run without valid collections, got %v", repo.searchCalls)
	}
}

func TestSearch_NilEmbedderShortCircuits(t *testing.T) {
	repo := &mockRepo{existing: []string{"A"}}
	svc := New(repo, nil, 0, zap.NewNop())

	if results := svc.Search(context.Background(), "query", []string{"A"}, 5); results != nil {
		t.Errorf("expected empty results with nil embedder, got %v", results)
	}
}

func TestSearch_EmbedFailureReturnsEmpty(t *testing.T) {
	repo := &mockRepo{existing: []string{"A"}}
	svc := New(repo, &mockEmbedder{err: errors.New("provider down")}, 0, zap.NewNop())

	if results := svc.Search(context.Background(), "query", []string{"A"}, 5); results != nil {
		t.Errorf("expected empty results on embed failure, got %v", results)
	}
}

func TestSearch_FailedCollectionIsSkipped(t *testing.T) {
	repo := &mockRepo{
		existing: []string{"A", "B"},
		byCol:    map[string][]domain.Match{"B": {match("B", 0.7, "b")}},
		errByCol: map[string]error{"A": errors.New("index corrupt")},
	}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	results := svc.Search(context.Background(), "query", []string{"A", "B"}, 5)
	if len(results) != 1 || results[0].Collection != "B" {
		t.Errorf("expected the surviving collection's match, got %v", results)
	}
}

func TestSearch_AllCollectionsFail(t *testing.T) {
	repo := &mockRepo{
		existing: []string{"A", "B"},
		errByCol: map[string]error{"A": errors.New("boom"), "B": errors.New("boom")},
	}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	if results := svc.Search(context.Background(), "query", []string{"A", "B"}, 5); len(results) != 0 {
		t.Errorf("expected empty results when every search fails, got %v", results)
	}
}

func TestSearch_SingleCollectionKeepsStoreOrder(t *testing.T) {
	// Store ordering is authoritative for one collection, even if scores
	// would sort differently.
	repo := &mockRepo{
		existing: []string{"A"},
		byCol: map[string][]domain.Match{
			"A": {match("A", 0.2, "first"), match("A", 0.9, "second")},
		},
	}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	results := svc.Search(context.Background(), "query", []string{"A"}, 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Payload.Text() != "first" {
		t.Errorf("single collection must not be re-ranked, got %v first", results[0].Payload.Text())
	}
}

func TestSearch_ResizesQueryVector(t *testing.T) {
	repo := &mockRepo{
		existing: []string{"A"},
		byCol:    map[string][]domain.Match{"A": nil},
	}
	embed := &mockEmbedder{vec: make([]float32, 384)}
	svc := New(repo, embed, 896, zap.NewNop())

	svc.Search(context.Background(), "query", []string{"A"}, 5)
	if len(repo.lastVector) != 896 {
		t.Errorf("expected query vector resized to 896, got %d", len(repo.lastVector))
	}
}

func TestSearch_ListFailureReturnsEmpty(t *testing.T) {
	repo := &mockRepo{listErr: errors.New("store down")}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	if results := svc.Search(context.Background(), "query", []string{"A"}, 5); results != nil {
		t.Errorf("expected empty results on catalog failure, got %v", results)
	}
}
