package testcase

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	caseDelimRe   = regexp.MustCompile(`Test Case ID:\s*TC_\d+`)
	caseIDRe      = regexp.MustCompile(`Test Case ID:\s*(TC_\d+)`)
	caseTypeRe    = regexp.MustCompile(`Test Type:\s*(\w+)`)
	scenarioRe    = regexp.MustCompile(`Test Scenario:\s*(.+)`)
	descriptionRe = regexp.MustCompile(`(?s)Test Case Description:\s*(.+)`)

	stepsRe   = regexp.MustCompile(`(?s)Test Steps:\s*(.+?)(?:Expected Result:|\z)`)
	resultRe  = regexp.MustCompile(`(?s)Expected Result:\s*(.+)`)
	stepNumRe = regexp.MustCompile(`^\s*\d+\.?\s*`)
)

// cleanText strips markdown emphasis the model tends to add around headers.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// parseScenarios extracts structured scenario records from the raw model
// response. Records missing a field get a stable placeholder so downstream
// steps can still run.
func parseScenarios(response string) []Scenario {
	delims := caseDelimRe.FindAllStringIndex(response, -1)
	scenarios := make([]Scenario, 0, len(delims))

	for i, delim := range delims {
		end := len(response)
		if i+1 < len(delims) {
			end = delims[i+1][0]
		}
		block := response[delim[0]:end]

		sc := Scenario{
			ID:          fmt.Sprintf("TC_%03d", i+1),
			Type:        "Unspecified",
			Title:       "No scenario",
			Description: "No description",
		}
		if m := caseIDRe.FindStringSubmatch(block); m != nil {
			sc.ID = cleanText(m[1])
		}
		if m := caseTypeRe.FindStringSubmatch(block); m != nil {
			sc.Type = cleanText(m[1])
		}
		if m := scenarioRe.FindStringSubmatch(block); m != nil {
			sc.Title = cleanText(m[1])
		}
		if m := descriptionRe.FindStringSubmatch(block); m != nil {
			sc.Description = cleanText(m[1])
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios
}

// parseSteps extracts the step list and expected result from the raw model
// response, renumbering steps into a consistent "1. ..." format.
func parseSteps(response string) (steps, expected string) {
	steps = "No steps provided"
	if m := stepsRe.FindStringSubmatch(response); m != nil {
		steps = renumberSteps(m[1])
	}

	expected = "No expected result provided"
	if m := resultRe.FindStringSubmatch(response); m != nil {
		expected = strings.TrimSpace(m[1])
	}
	return steps, expected
}

// renumberSteps strips whatever numbering the model produced and applies a
// sequential one, dropping blank lines.
func renumberSteps(raw string) string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = stepNumRe.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%d. %s", len(out)+1, line))
	}
	if len(out) == 0 {
		return "No steps provided"
	}
	return strings.Join(out, "\n")
}
