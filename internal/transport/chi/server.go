package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
	"github.com/jmrlabs/fsdgen/internal/logger"
	funcdocuc "github.com/jmrlabs/fsdgen/internal/usecase/funcdoc"
	healthuc "github.com/jmrlabs/fsdgen/internal/usecase/health"
	pipelineuc "github.com/jmrlabs/fsdgen/internal/usecase/pipeline"
	testcaseuc "github.com/jmrlabs/fsdgen/internal/usecase/testcase"
)

// CodeGenerator runs the three-stage code generation pipeline.
type CodeGenerator interface {
	Generate(ctx context.Context, requirement string) string
}

// TestCaseGenerator runs the two-phase test case workflow.
type TestCaseGenerator interface {
	Generate(ctx context.Context, requirement string) ([]testcaseuc.TestCase, error)
}

// DocGenerator produces a functional specification document.
type DocGenerator interface {
	Generate(ctx context.Context, requirement string) (string, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server exposes the generation services over HTTP.
type Server struct {
	code   CodeGenerator
	cases  TestCaseGenerator
	doc    DocGenerator
	health HealthChecker
}

var _ CodeGenerator = (*pipelineuc.Service)(nil)
var _ TestCaseGenerator = (*testcaseuc.Service)(nil)
var _ DocGenerator = (*funcdocuc.Service)(nil)

// NewServer creates an HTTP API server. Handlers log through the per-request
// logger carried in the request context.
func NewServer(
	code CodeGenerator,
	cases TestCaseGenerator,
	doc DocGenerator,
	health HealthChecker,
) *Server {
	return &Server{code: code, cases: cases, doc: doc, health: health}
}

// generateRequest is the shared request body of the generation endpoints.
type generateRequest struct {
	Text string `json:"text"`
}

// decodeText reads the request body and validates the requirement text.
// Returns false after writing the error response.
func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return "", false
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "No input provided")
		return "", false
	}
	return req.Text, true
}

// GenerateCode handles POST /v1/code.
func (s *Server) GenerateCode(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	result := s.code.Generate(r.Context(), text)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

// testCaseItem is the wire form of a generated test case.
type testCaseItem struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Scenario       string `json:"scenario"`
	Description    string `json:"description"`
	Steps          string `json:"steps"`
	ExpectedResult string `json:"expected_result"`
}

// GenerateTestCases handles POST /v1/test-cases.
func (s *Server) GenerateTestCases(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	cases, err := s.cases.Generate(r.Context(), text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]testCaseItem, len(cases))
	for i, c := range cases {
		items[i] = testCaseItem{
			ID:             c.ID,
			Type:           c.Type,
			Scenario:       c.Scenario,
			Description:    c.Description,
			Steps:          c.Steps,
			ExpectedResult: c.ExpectedResult,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// GenerateFunctionDoc handles POST /v1/function-doc.
func (s *Server) GenerateFunctionDoc(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	document, err := s.doc.Generate(r.Context(), text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document": document,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRateLimited,
		domain.ErrBackendError,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmptyRequirement,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrEmptyRequirement):
		writeError(w, http.StatusBadRequest, "validation_failed", msg)
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", msg)
	case errors.Is(err, domain.ErrBackendError):
		writeError(w, http.StatusBadGateway, "backend_error", msg)
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, "embedding_provider_error", msg)
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
