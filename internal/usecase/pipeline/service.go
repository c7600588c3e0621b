package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
	"github.com/jmrlabs/fsdgen/internal/metrics"
)

// Degraded-mode payloads. A stage failure is folded into the text stream so
// the pipeline always runs to completion.
const (
	msgRateLimited = "The request exceeded the rate limit. Please try with a simpler query or try again later."

	msgStageFailed = "Sorry, there was an error generating the code. Please try again with more detailed requirements."

	msgPipelineFailed = "/* Error generating code: The system encountered an issue processing your request. Please try with more detailed requirements or contact support. */"
)

// Config holds generation pipeline settings.
type Config struct {
	Collections []string
	TopK        int
	Temperature float32
	MaxTokens   int
	StageDelay  time.Duration
}

// Service runs the three-stage code generation pipeline:
// generate, review, improve. Each stage is a single chat completion whose
// output feeds the next stage as opaque text.
type Service struct {
	retriever Retriever
	completer Completer
	cfg       Config
	logger    *zap.Logger
	sleep     func(time.Duration)
}

// New creates the code generation pipeline service.
func New(retriever Retriever, completer Completer, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		completer: completer,
		cfg:       cfg,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Generate produces a structured PL/SQL change for the given requirement.
// It never returns an error: stage failures degrade to fixed messages, a
// structurally incomplete result gets an error banner, and an unexpected
// panic yields a single comment-style error payload.
func (s *Service) Generate(ctx context.Context, requirement string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Pipeline panicked", zap.Any("panic", r))
			metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
			result = msgPipelineFailed
		}
	}()

	requirement = clip(requirement, maxRequirementLen)
	s.logger.Info("Starting code generation", zap.String("requirement", requirement))

	matches := s.retriever.Search(ctx, "PL/SQL "+requirement, s.cfg.Collections, s.cfg.TopK)
	s.logger.Info("Retrieved related examples", zap.Int("count", len(matches)))

	generated := s.runStage(ctx, "generate", generatorPersona, generationPrompt(requirement, matches))
	s.sleep(s.cfg.StageDelay)

	review := s.runStage(ctx, "review", reviewerPersona, reviewPrompt(generated))
	s.sleep(s.cfg.StageDelay)

	improved := s.runStage(ctx, "improve", improverPersona, improvePrompt(review, generated))

	final, conformant := ensureSections(improved)
	if conformant {
		metrics.PipelineRunsTotal.WithLabelValues("conformant").Inc()
	} else {
		s.logger.Warn("Generated result is missing required sections",
			zap.Strings("missing", missingSections(improved)))
		metrics.PipelineRunsTotal.WithLabelValues("nonconformant").Inc()
	}
	return final
}

// runStage executes one chat completion. Failures never propagate: a
// rate-limit maps to the capacity message, anything else to the generic
// degraded message.
func (s *Service) runStage(ctx context.Context, stage, persona, prompt string) string {
	text, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      persona,
		User:        prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.logger.Warn("Pipeline stage degraded", zap.String("stage", stage), zap.Error(err))
		metrics.PipelineStagesTotal.WithLabelValues(stage, "degraded").Inc()
		if errors.Is(err, domain.ErrRateLimited) {
			return msgRateLimited
		}
		return msgStageFailed
	}

	metrics.PipelineStagesTotal.WithLabelValues(stage, "ok").Inc()
	return text
}
