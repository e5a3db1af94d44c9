// Package shape recovers per-paragraph texts from the raw output of a batched
// translation call. The model is asked for a JSON array, but models drift, so
// a blank-line split is kept as a best-effort fallback.
package shape

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\n(.*?)\n?```$")

var blankLine = regexp.MustCompile(`\r?\n[ \t]*(\r?\n[ \t]*)+`)

// DecodeChunk turns a chunk invocation's output into exactly count texts, in
// order. A well-formed JSON string array wins; otherwise the raw output is
// split on blank lines. Missing positions are padded with the empty string so
// every dispatched index always receives a result; extras are dropped.
func DecodeChunk(output string, count int) []string {
	texts, ok := decodeJSON(output)
	if !ok {
		texts = splitFallback(output)
	}

	if len(texts) > count {
		texts = texts[:count]
	}
	for len(texts) < count {
		texts = append(texts, "")
	}
	return texts
}

func decodeJSON(output string) ([]string, bool) {
	s := strings.TrimSpace(output)

	// Models often wrap the array in a markdown fence despite instructions.
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	// Tolerate prose before/after the array by cutting to the outermost
	// brackets.
	if start := strings.Index(s, "["); start >= 0 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = s[start : end+1]
		}
	}

	var texts []string
	if err := json.Unmarshal([]byte(s), &texts); err != nil {
		return nil, false
	}
	for i := range texts {
		texts[i] = strings.TrimSpace(texts[i])
	}
	return texts, true
}

func splitFallback(output string) []string {
	parts := blankLine.Split(strings.TrimSpace(output), -1)
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		texts = append(texts, p)
	}
	return texts
}
