package domain

import (
	"strings"
	"testing"
)

func TestPayloadText_PrefersContent(t *testing.T) {
	p := Payload{"content": "the content", "text": "the text"}
	if got := p.Text(); got != "the content" {
		t.Errorf("expected content field, got %q", got)
	}
}

func TestPayloadText_FallsBackToText(t *testing.T) {
	p := Payload{"content": "", "text": "the text"}
	if got := p.Text(); got != "the text" {
		t.Errorf("expected text field, got %q", got)
	}
}

func TestPayloadText_StringifiesWholePayload(t *testing.T) {
	p := Payload{"title": "STDCIF", "section": "4.2"}
	got := p.Text()
	if !strings.Contains(got, "title=STDCIF") || !strings.Contains(got, "section=4.2") {
		t.Errorf("expected stringified payload, got %q", got)
	}
}

func TestPayloadText_Empty(t *testing.T) {
	if got := (Payload{}).Text(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
