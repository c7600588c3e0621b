package testcase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

const testEngineerPersona = "You are a professional software test engineer specializing in Flexcube testing."

const scenarioTemplate = `You are a professional software test engineer creating detailed test scenarios for Flexcube banking system.

REQUIREMENT: %s

INSTRUCTIONS:
1. Generate %d comprehensive test scenarios covering all aspects of the requirement
2. Include both positive and negative test scenarios
3. Follow this exact output format for EACH test scenario:

Test Case ID: TC_001
Test Type: Positive/Negative
Test Scenario: [Clear scenario description in one sentence]
Test Case Description: [Detailed explanation of the test scenario]

GENERATE %d TEST SCENARIOS COVERING ALL ASPECTS OF THE REQUIREMENT.`

const stepsTemplate = `You are a professional Flexcube test engineer creating detailed test steps.

TEST SCENARIO: %s
TEST DESCRIPTION: %s

RETRIEVED FLEXCUBE CONTEXT:
%s

INSTRUCTIONS:
1. Based on the test scenario, description, and retrieved Flexcube context, generate detailed test steps
2. Create precise expected results that validate the test scenario
3. Follow this exact output format:

Test Steps:
1. [First specific step with exact Flexcube navigation/action]
2. [Second specific step]
3. [Continue with additional steps as needed]

Expected Result: [Precise expected outcome]

GENERATE ONLY THE TEST STEPS AND EXPECTED RESULT. BE SPECIFIC TO FLEXCUBE NAVIGATION, SCREENS, AND FIELDS.`

// Degraded per-scenario payloads. One failed scenario must not sink the
// whole batch.
const (
	msgStepsFailed  = "Error generating steps"
	msgResultFailed = "Error generating expected result"
)

// Scenario is a parsed test scenario record from the first phase.
type Scenario struct {
	ID          string
	Type        string
	Title       string
	Description string
}

// TestCase is a complete generated test case.
type TestCase struct {
	ID             string
	Type           string
	Scenario       string
	Description    string
	Steps          string
	ExpectedResult string
}

// Config holds test-case generation settings.
type Config struct {
	Collections   []string
	TopK          int
	Temperature   float32
	MaxTokens     int
	ScenarioCount int
}

// Service generates Flexcube test cases in two phases: scenario generation
// from the requirement, then per-scenario steps grounded in retrieved manual
// excerpts.
type Service struct {
	retriever Retriever
	completer Completer
	cfg       Config
	logger    *zap.Logger
}

// New creates the test-case generation service.
func New(retriever Retriever, completer Completer, cfg Config, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, completer: completer, cfg: cfg, logger: logger}
}

// Generate runs the full two-phase workflow for a requirement.
func (s *Service) Generate(ctx context.Context, requirement string) ([]TestCase, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, domain.ErrEmptyRequirement
	}

	scenarios, err := s.generateScenarios(ctx, requirement)
	if err != nil {
		return nil, fmt.Errorf("generate scenarios: %w", err)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no test scenarios parsed from model response")
	}
	s.logger.Info("Generated test scenarios", zap.Int("count", len(scenarios)))

	cases := make([]TestCase, 0, len(scenarios))
	for _, sc := range scenarios {
		steps, expected := s.generateSteps(ctx, sc)
		cases = append(cases, TestCase{
			ID:             sc.ID,
			Type:           sc.Type,
			Scenario:       sc.Title,
			Description:    sc.Description,
			Steps:          steps,
			ExpectedResult: expected,
		})
	}
	return cases, nil
}

// generateScenarios runs the first phase: one completion over the bare
// requirement, parsed into structured records.
func (s *Service) generateScenarios(ctx context.Context, requirement string) ([]Scenario, error) {
	response, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      testEngineerPersona,
		User:        fmt.Sprintf(scenarioTemplate, requirement, s.cfg.ScenarioCount, s.cfg.ScenarioCount),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return parseScenarios(response), nil
}

// generateSteps runs the second phase for one scenario: retrieve manual
// context with the scenario text, then complete for steps and expected
// result. Failures degrade to fixed placeholders.
func (s *Service) generateSteps(ctx context.Context, sc Scenario) (steps, expected string) {
	query := sc.Title + " " + sc.Description
	matches := s.retriever.Search(ctx, query, s.cfg.Collections, s.cfg.TopK)

	contexts := make([]string, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, m.Payload.Text())
	}

	response, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      testEngineerPersona,
		User:        fmt.Sprintf(stepsTemplate, sc.Title, sc.Description, strings.Join(contexts, "\n\n")),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.logger.Warn("Step generation failed", zap.String("case_id", sc.ID), zap.Error(err))
		return msgStepsFailed, msgResultFailed
	}
	return parseSteps(response)
}
