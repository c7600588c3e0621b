package funcdoc

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

const docSpecialistPersona = "You are a technical documentation specialist."

const documentTemplate = `Generate a comprehensive function specification document based on the following requirements and context:

Function Requirement: %s
Context from User Guide: %s

Create a detailed document with the following structure:
1. *INTRODUCTION*

   Brief overview of the document purpose and scope.

2. *REQUIREMENT OVERVIEW*
   Clear statement of the business requirements and objectives.

3. *CURRENT FUNCTIONALITY*
   Description of how the system currently handles these requirements.

4. *PROPOSED FUNCTIONAL APPROACH*
   Detailed explanation of the proposed solution and implementation.

The document should be technical, precise, and provide clear insights for implementation.
Focus on these four main sections as they constitute the core content.

Note: Additional sections like Validations, Interface Impact, Migration Impact, etc. will be included in the final document template but do not need to be generated.`

// Config holds function document generation settings.
type Config struct {
	Collections []string
	TopK        int
	Temperature float32
	MaxTokens   int
}

// Service generates a four-section functional specification document from a
// requirement, grounded in retrieved user guide excerpts.
type Service struct {
	retriever Retriever
	completer Completer
	cfg       Config
	logger    *zap.Logger
}

// New creates the function document generation service.
func New(retriever Retriever, completer Completer, cfg Config, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, completer: completer, cfg: cfg, logger: logger}
}

// Generate retrieves guide context for the requirement and produces the
// sectioned document text in a single completion.
func (s *Service) Generate(ctx context.Context, requirement string) (string, error) {
	if strings.TrimSpace(requirement) == "" {
		return "", domain.ErrEmptyRequirement
	}

	matches := s.retriever.Search(ctx, requirement, s.cfg.Collections, s.cfg.TopK)
	s.logger.Info("Retrieved guide context", zap.Int("count", len(matches)))

	contexts := make([]string, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, m.Payload.Text())
	}

	document, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      docSpecialistPersona,
		User:        fmt.Sprintf(documentTemplate, requirement, strings.Join(contexts, "\n")),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate document: %w", err)
	}
	return document, nil
}
