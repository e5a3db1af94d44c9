// Package placeholder shields structured content from the model during
// translation. Fenced code blocks, inline code spans, HTML tags, and bare
// URLs are swapped for numbered ⟦n⟧ markers before the prompt is built and
// swapped back into the translated output.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFenced = regexp.MustCompile("(?s)```.*?```")
	reInline = regexp.MustCompile("`[^`]+`")
	reTag    = regexp.MustCompile(`<[^>]+>`)
	reURL    = regexp.MustCompile(`https?://[^\s<>"]+`)

	reMarker = regexp.MustCompile(`⟦(\d+)⟧`)
)

// Shield replaces protectable spans with ⟦0⟧, ⟦1⟧, … in order of appearance
// and returns the masked text plus the captured originals for Unshield.
func Shield(text string) (string, []string) {
	var captured []string
	sub := func(match string) string {
		marker := fmt.Sprintf("⟦%d⟧", len(captured))
		captured = append(captured, match)
		return marker
	}

	// Longest constructs first so inner spans are not double-masked.
	text = reFenced.ReplaceAllStringFunc(text, sub)
	text = reInline.ReplaceAllStringFunc(text, sub)
	text = reTag.ReplaceAllStringFunc(text, sub)
	text = reURL.ReplaceAllStringFunc(text, sub)

	return text, captured
}

// Unshield puts the captured originals back. Unknown marker numbers are left
// in place; markers the model dropped are simply absent from the result.
func Unshield(text string, captured []string) string {
	return reMarker.ReplaceAllStringFunc(text, func(match string) string {
		sub := reMarker.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(captured) {
			return match
		}
		return captured[idx]
	})
}

// Hint is appended to translation prompts when markers are present.
const Hint = "Preserve every ⟦n⟧ marker exactly as written. Do not translate, reorder, or remove them."

// Missing reports the marker indices absent from text. Used for diagnostics
// after a round trip.
func Missing(text string, captured []string) []int {
	var missing []int
	for i := range captured {
		if !strings.Contains(text, fmt.Sprintf("⟦%d⟧", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
