package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// Character budgets keep each prompt inside the backend's context window.
// Inputs over budget are cut and marked with an ellipsis.
const (
	maxRequirementLen  = 200
	maxExampleLen      = 1000
	maxReviewInputLen  = 1000
	maxReviewNotesLen  = 100
	maxOriginalCodeLen = 2000

	ellipsis = "..."
)

// clip truncates s to at most max bytes, appending an ellipsis marker when
// cut. The cut backs up to a rune boundary so the result stays valid UTF-8.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + ellipsis
}

// Stage personas, sent as the system message of each stage.
const (
	generatorPersona = "You are a seasoned PL/SQL developer focused on writing optimal and reusable code with clear documentation."
	reviewerPersona  = "You are a senior PL/SQL reviewer ensuring high code quality and adherence to standards."
	improverPersona  = "You are a meticulous engineer focused on improving PL/SQL code quality through reviewer feedback."
)

const generationTemplate = `You are an expert PL/SQL developer. You must provide a structured answer with **ALL** of the following sections, starting each section on a new line with the exact header shown. If a section is not applicable, write 'None' after the header.

WARNING: If you skip or omit any section or section header, your answer will be considered incomplete and rejected. Do NOT combine sections.

## REQUIRED SECTIONS AND ORDER

Intent of the Change:
[Describe the purpose and objective.]

Affected Code or Packages:
[List affected packages, modules, and database objects.]

Insertion Points:
[Specify where changes go (file, package, function, etc.).]

New Code:
[Provide the new or modified PL/SQL code for direct insertion.]

Invocation of new programming unit in existing source:
[Show a sample usage/call, or describe where it will be called.]

Explanation:
[Explain why this change is appropriate and meets the requirements.]

Required Import:
[List packages, grants, or dependencies. If none, write 'None'.]

## REQUIREMENTS
%s

%s`

// generationPrompt builds the first-stage prompt from the clipped requirement
// and the best retrieved example, if any.
func generationPrompt(requirement string, matches []domain.Match) string {
	var examples strings.Builder
	if len(matches) > 0 {
		examples.WriteString("Here's a related code example:\n\n")
		examples.WriteString(clip(matches[0].Payload.Text(), maxExampleLen))
		examples.WriteString("\n\n")
	}
	return fmt.Sprintf(generationTemplate, requirement, examples.String())
}

const reviewTemplate = `Review the following PL/SQL code implementation:

%s

Provide detailed suggestions for improvement, identify any logic or syntax issues, and recommend enhancements.

Respond with a list of issues (if any) and suggestions.
`

// reviewPrompt builds the second-stage prompt from the generated output.
func reviewPrompt(generated string) string {
	return fmt.Sprintf(reviewTemplate, clip(generated, maxReviewInputLen))
}

const improveTemplate = `Improve the original PL/SQL implementation by applying the following reviewer feedback:

Review:
%s

Code:
%s

RESPONSE FORMAT:
Intent of the Change:
[Your answer]

Affected Code or Packages:
[Your answer]

Insertion Points:
[Your answer]

New Code:
[improved code]

Invocation of new programming unit in existing source:
[Your answer]

Explanation:
[explanation for the changes]

Required Import:
[package or dependency, if any]
`

// improvePrompt builds the third-stage prompt from the review notes and the
// original generated code.
func improvePrompt(reviewNotes, originalCode string) string {
	return fmt.Sprintf(improveTemplate,
		clip(reviewNotes, maxReviewNotesLen),
		clip(originalCode, maxOriginalCodeLen))
}
