package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

type stubRetriever struct {
	matches   []domain.Match
	lastQuery string
}

func (s *stubRetriever) Search(_ context.Context, query string, _ []string, _ int) []domain.Match {
	s.lastQuery = query
	return s.matches
}

// scriptedCompleter returns one scripted step per call, in order.
type scriptedCompleter struct {
	steps    []func(domain.CompletionRequest) (string, error)
	requests []domain.CompletionRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i >= len(c.steps) {
		return "", domain.ErrBackendError
	}
	return c.steps[i](req)
}

func reply(text string) func(domain.CompletionRequest) (string, error) {
	return func(domain.CompletionRequest) (string, error) { return text, nil }
}

func fail(err error) func(domain.CompletionRequest) (string, error) {
	return func(domain.CompletionRequest) (string, error) { return "", err }
}

func newTestService(r Retriever, c Completer) (*Service, *int) {
	svc := New(r, c, Config{
		Collections: []string{"Sql_Database"},
		TopK:        1,
		Temperature: 1.3,
		MaxTokens:   2048,
		StageDelay:  2 * time.Second,
	}, zap.NewNop())

	sleeps := 0
	svc.sleep = func(time.Duration) { sleeps++ }
	return svc, &sleeps
}

func TestGenerate_ThreeStages(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		reply("DRAFT: " + conformantResult()),
		reply("review notes: looks fine"),
		reply(conformantResult()),
	}}
	retriever := &stubRetriever{matches: []domain.Match{
		{Payload: domain.Payload{"content": "CREATE TABLE t (id NUMBER);"}},
	}}
	svc, sleeps := newTestService(retriever, completer)

	out := svc.Generate(context.Background(), "add a table")

	if len(completer.requests) != 3 {
		t.Fatalf("expected 3 completion calls, got %d", len(completer.requests))
	}
	if *sleeps != 2 {
		t.Errorf("expected 2 inter-stage delays, got %d", *sleeps)
	}
	if out != conformantResult() {
		t.Errorf("unexpected final result: %q", out)
	}

	if !strings.HasPrefix(retriever.lastQuery, "PL/SQL ") {
		t.Errorf("retrieval query must carry the language prefix, got %q", retriever.lastQuery)
	}
	if !strings.Contains(completer.requests[0].User, "CREATE TABLE t") {
		t.Error("generate stage must see the retrieved example")
	}
	if !strings.Contains(completer.requests[1].User, "DRAFT:") {
		t.Error("review stage must see the generated output")
	}
	if !strings.Contains(completer.requests[2].User, "review notes: looks fine") {
		t.Error("improve stage must see the review notes")
	}
	if completer.requests[0].Temperature != 1.3 || completer.requests[0].MaxTokens != 2048 {
		t.Errorf("sampling bounds not applied: %+v", completer.requests[0])
	}
}

func TestGenerate_EmptyRetrievalStillCompletes(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		reply(conformantResult()), reply("notes"), reply(conformantResult()),
	}}
	svc, _ := newTestService(&stubRetriever{}, completer)

	out := svc.Generate(context.Background(), "add a table")
	if len(completer.requests) != 3 {
		t.Fatalf("expected 3 stages with empty retrieval, got %d", len(completer.requests))
	}
	if out == "" {
		t.Error("pipeline must return non-empty text")
	}
}

func TestGenerate_ClipsRequirement(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		reply(conformantResult()), reply("notes"), reply(conformantResult()),
	}}
	retriever := &stubRetriever{}
	svc, _ := newTestService(retriever, completer)

	svc.Generate(context.Background(), strings.Repeat("r", 5000))

	wantQuery := "PL/SQL " + strings.Repeat("r", maxRequirementLen) + ellipsis
	if retriever.lastQuery != wantQuery {
		t.Errorf("requirement must be clipped before retrieval, got %d chars", len(retriever.lastQuery))
	}
	if strings.Contains(completer.requests[0].User, strings.Repeat("r", maxRequirementLen+1)) {
		t.Error("generate prompt must not carry the unclipped requirement")
	}
}

func TestGenerate_RateLimitedReviewFeedsImprove(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		reply(conformantResult()),
		fail(domain.ErrRateLimited),
		reply(conformantResult()),
	}}
	svc, _ := newTestService(&stubRetriever{}, completer)

	out := svc.Generate(context.Background(), "add a table")
	if len(completer.requests) != 3 {
		t.Fatalf("rate-limited review must not stop the pipeline, got %d calls", len(completer.requests))
	}
	if !strings.Contains(completer.requests[2].User, msgRateLimited) {
		t.Error("improve stage must see the rate-limit message as review notes")
	}
	if out != conformantResult() {
		t.Errorf("unexpected final result: %q", out)
	}
}

func TestGenerate_BackendErrorDegrades(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		fail(domain.ErrBackendError),
		reply("notes"),
		fail(domain.ErrBackendError),
	}}
	svc, _ := newTestService(&stubRetriever{}, completer)

	out := svc.Generate(context.Background(), "add a table")
	if !strings.Contains(completer.requests[1].User, msgStageFailed) {
		t.Error("review stage must see the degraded generate output")
	}
	// The degraded final text lacks the required sections, so it carries
	// the validation banner.
	if !strings.Contains(out, msgStageFailed) {
		t.Errorf("final result must carry the degraded message, got %q", out)
	}
	if !strings.Contains(out, "sections are missing") {
		t.Errorf("degraded result must be flagged nonconformant, got %q", out)
	}
}

func TestGenerate_NonconformantGetsBanner(t *testing.T) {
	completer := &scriptedCompleter{steps: []func(domain.CompletionRequest) (string, error){
		reply(conformantResult()),
		reply("notes"),
		reply("free-form text without any headers"),
	}}
	svc, _ := newTestService(&stubRetriever{}, completer)

	out := svc.Generate(context.Background(), "add a table")
	if !strings.HasPrefix(out, "/* Error: The following sections are missing") {
		t.Errorf("expected validation banner, got %q", out)
	}
	if !strings.Contains(out, "free-form text without any headers") {
		t.Error("original output must survive after the banner")
	}
}

type panickingRetriever struct{}

func (panickingRetriever) Search(context.Context, string, []string, int) []domain.Match {
	panic("store exploded")
}

func TestGenerate_PanicReturnsErrorPayload(t *testing.T) {
	svc, _ := newTestService(panickingRetriever{}, &scriptedCompleter{})

	out := svc.Generate(context.Background(), "add a table")
	if out != msgPipelineFailed {
		t.Errorf("panic must yield the fixed error payload, got %q", out)
	}
}
