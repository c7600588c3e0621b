package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

func TestClip_OverBudget(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out := clip(long, maxRequirementLen)
	if len(out) != maxRequirementLen+len(ellipsis) {
		t.Errorf("expected %d chars, got %d", maxRequirementLen+len(ellipsis), len(out))
	}
	if !strings.HasSuffix(out, ellipsis) {
		t.Error("clipped text must end with the ellipsis marker")
	}
}

func TestClip_AtBudget(t *testing.T) {
	exact := strings.Repeat("y", maxRequirementLen)
	if out := clip(exact, maxRequirementLen); out != exact {
		t.Error("text at budget must pass through unchanged")
	}
}

func TestClip_RuneBoundary(t *testing.T) {
	long := strings.Repeat("é", maxRequirementLen) // two bytes per rune
	out := clip(long, maxRequirementLen+1)         // budget lands mid-rune

	if !utf8.ValidString(out) {
		t.Fatal("clipped text must stay valid UTF-8")
	}
	if !strings.HasSuffix(out, ellipsis) {
		t.Error("clipped text must end with the ellipsis marker")
	}
	if kept := strings.TrimSuffix(out, ellipsis); len(kept) != maxRequirementLen {
		t.Errorf("expected cut at the preceding rune boundary (%d bytes), got %d",
			maxRequirementLen, len(kept))
	}
}

func TestGenerationPrompt_IncludesExample(t *testing.T) {
	matches := []domain.Match{
		{Payload: domain.Payload{"content": "CREATE TABLE accounts (id NUMBER);"}},
		{Payload: domain.Payload{"content": "should not appear"}},
	}
	prompt := generationPrompt("add account table", matches)

	if !strings.Contains(prompt, "add account table") {
		t.Error("prompt must contain the requirement")
	}
	if !strings.Contains(prompt, "CREATE TABLE accounts") {
		t.Error("prompt must contain the best retrieved example")
	}
	if strings.Contains(prompt, "should not appear") {
		t.Error("only the first example feeds the prompt")
	}
	for _, section := range requiredSections {
		if !strings.Contains(prompt, section) {
			t.Errorf("prompt must demand section %q", section)
		}
	}
}

func TestGenerationPrompt_NoExamples(t *testing.T) {
	prompt := generationPrompt("add account table", nil)
	if strings.Contains(prompt, "related code example") {
		t.Error("empty retrieval must not mention examples")
	}
}

func TestGenerationPrompt_ClipsExample(t *testing.T) {
	big := strings.Repeat("z", 3000)
	prompt := generationPrompt("req", []domain.Match{
		{Payload: domain.Payload{"content": big}},
	})
	if strings.Contains(prompt, big) {
		t.Error("example over budget must be clipped")
	}
	if !strings.Contains(prompt, strings.Repeat("z", maxExampleLen)+ellipsis) {
		t.Error("clipped example must keep the budget-sized prefix and marker")
	}
}

func TestReviewPrompt_ClipsGeneratedOutput(t *testing.T) {
	big := strings.Repeat("a", 3000)
	prompt := reviewPrompt(big)
	if strings.Contains(prompt, big) {
		t.Error("review input over budget must be clipped")
	}
	if !strings.Contains(prompt, strings.Repeat("a", maxReviewInputLen)+ellipsis) {
		t.Error("review input must be cut at its budget with the marker")
	}
}

func TestImprovePrompt_Budgets(t *testing.T) {
	notes := strings.Repeat("n", 500)
	code := strings.Repeat("c", 5000)
	prompt := improvePrompt(notes, code)

	if !strings.Contains(prompt, strings.Repeat("n", maxReviewNotesLen)+ellipsis) {
		t.Error("review notes must be cut at their budget")
	}
	if !strings.Contains(prompt, strings.Repeat("c", maxOriginalCodeLen)+ellipsis) {
		t.Error("original code must be cut at its budget")
	}
}
