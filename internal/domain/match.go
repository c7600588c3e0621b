package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Payload is the arbitrary-shaped record attached to a vector store match.
type Payload map[string]string

// Text extracts the best textual representation of the payload.
// A non-empty "content" field wins, then "text", then the stringified payload.
func (p Payload) Text() string {
	if v, ok := p["content"]; ok && v != "" {
		return v
	}
	if v, ok := p["text"]; ok && v != "" {
		return v
	}
	return p.String()
}

// String renders the payload as "key=value" pairs in key order.
func (p Payload) String() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%s", k, p[k])
	}
	return b.String()
}

// Match is a single scored hit returned by a collection search.
type Match struct {
	Collection string
	Payload    Payload
	Score      float64
}
