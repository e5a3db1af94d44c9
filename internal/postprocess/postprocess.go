// Package postprocess scrubs common LLM artifacts from gateway output before
// it is cached, emitted, or recombined.
package postprocess

import (
	"regexp"
	"strings"
)

// Scrub cleans raw model output: reasoning blocks are removed, leaked
// instruction echoes are stripped, and a single pair of wrapping quotes is
// unwrapped. The result is trimmed.
func Scrub(text string) string {
	text = stripReasoning(text)
	text = stripEchoes(text)
	text = unwrapQuotes(text)
	return strings.TrimSpace(text)
}

// reasoningRe matches complete <think>-style blocks. RE2 has no
// backreferences, so each tag variant is spelled out.
var reasoningRe = regexp.MustCompile(
	`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`,
)

// openReasoningRe catches a reasoning block whose closing tag never arrived
// (the model was cut off mid-thought).
var openReasoningRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>).*$`)

func stripReasoning(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = openReasoningRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoRes match introductory phrases models prepend even when told not to.
// Anchored to the start and requiring a colon to avoid eating real content.
var echoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:corrected |fixed |translated )?(?:text|version|translation)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:corrected|fixed|translated) (?:text|version|translation)\s*:`),
	regexp.MustCompile(`(?i)^(?:sure|certainly|of course)[,.]? here(?:'s| is)(?: the)? (?:corrected |fixed |translated )?(?:text|version|translation)\s*:`),
}

func stripEchoes(text string) string {
	for _, re := range echoRes {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// unwrapQuotes removes one matching pair of outer quotes when the whole text
// is wrapped in them.
func unwrapQuotes(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	switch {
	case first == '"' && last == '"',
		first == '\'' && last == '\'',
		first == '«' && last == '»',
		first == '“' && last == '”',
		first == '‘' && last == '’':
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
