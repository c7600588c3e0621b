package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/jmrlabs/fsdgen/internal/db"
)

type fakeStore struct {
	indexes    []string
	listErr    error
	exists    bool
	existsErr error
	lastIndex string
	result    *db.SearchResult
	searchErr error
	lastQuery *db.KNNQuery
}

func (f *fakeStore) ListIndexes(_ context.Context) ([]string, error) {
	return f.indexes, f.listErr
}

func (f *fakeStore) IndexExists(_ context.Context, name string) (bool, error) {
	f.lastIndex = name
	return f.exists, f.existsErr
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	return f.result, f.searchErr
}

func TestListCollections_FiltersNamespace(t *testing.T) {
	s := &fakeStore{indexes: []string{
		"fsdgen:Sql_Database:idx",
		"fsdgen:DDL_Database:idx",
		"other_app:stuff:idx",
		"fsdgen:not_an_index",
	}}
	repo := New(s)

	cols, err := repo.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %v", cols)
	}
	if cols[0] != "Sql_Database" || cols[1] != "DDL_Database" {
		t.Errorf("unexpected collections: %v", cols)
	}
}

func TestListCollections_Error(t *testing.T) {
	repo := New(&fakeStore{listErr: errors.New("down")})
	if _, err := repo.ListCollections(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCollectionExists(t *testing.T) {
	s := &fakeStore{exists: true}
	repo := New(s)

	ok, err := repo.CollectionExists(context.Background(), "Sql_Database")
	if err != nil {
		t.Fatalf("CollectionExists: %v", err)
	}
	if !ok {
		t.Error("expected the collection to exist")
	}
	if s.lastIndex != "fsdgen:Sql_Database:idx" {
		t.Errorf("unexpected index name %q", s.lastIndex)
	}

	s.exists = false
	if ok, _ := repo.CollectionExists(context.Background(), "missing"); ok {
		t.Error("expected a missing collection to report false")
	}
}

func TestCollectionExists_Error(t *testing.T) {
	repo := New(&fakeStore{existsErr: errors.New("down")})
	if _, err := repo.CollectionExists(context.Background(), "c"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_ParsesMatches(t *testing.T) {
	s := &fakeStore{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{
				Key:   "fsdgen:Sql_Database:doc1",
				Score: 0.92,
				Fields: map[string]string{
					"__content":      "CREATE OR REPLACE PROCEDURE ...",
					"__vector":       "\x00\x01",
					"__vector_score": "0.08",
					"title":          "interest calc",
				},
			},
			{
				Key:    "fsdgen:Sql_Database:doc2",
				Score:  0.81,
				Fields: map[string]string{"text": "manual excerpt"},
			},
		},
	}}
	repo := New(s)

	matches, err := repo.Search(context.Background(), "Sql_Database", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if s.lastQuery.IndexName != "fsdgen:Sql_Database:idx" {
		t.Errorf("unexpected index name %q", s.lastQuery.IndexName)
	}
	if s.lastQuery.K != 5 {
		t.Errorf("expected K=5, got %d", s.lastQuery.K)
	}

	first := matches[0]
	if first.Score != 0.92 || first.Collection != "Sql_Database" {
		t.Errorf("unexpected match meta: %+v", first)
	}
	if first.Payload.Text() != "CREATE OR REPLACE PROCEDURE ..." {
		t.Errorf("expected content extraction, got %q", first.Payload.Text())
	}
	if _, ok := first.Payload["vector"]; ok {
		t.Error("vector machinery fields must not leak into the payload")
	}
	if matches[1].Payload.Text() != "manual excerpt" {
		t.Errorf("expected text fallback, got %q", matches[1].Payload.Text())
	}
}

func TestSearch_EmptyResult(t *testing.T) {
	repo := New(&fakeStore{result: &db.SearchResult{}})
	matches, err := repo.Search(context.Background(), "c", []float32{1}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
}

func TestSearch_Error(t *testing.T) {
	repo := New(&fakeStore{searchErr: errors.New("index gone")})
	if _, err := repo.Search(context.Background(), "c", []float32{1}, 3); err == nil {
		t.Fatal("expected error")
	}
}
