// Package validator sanity-checks translated output: the result of a
// translation call should actually be written in the target language.
// Findings are advisory; the pipeline logs them rather than failing units.
package validator

import (
	"fmt"
	"strings"

	"parastream/internal/detector"
)

// minCheckLength is the minimum rune count for a language check. Below it the
// detector is unreliable and the text passes without inspection.
const minCheckLength = 20

type Validator struct {
	det *detector.Detector
}

func New(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// Check returns nil when translated plausibly matches targetLang. Empty
// target codes, short texts, and undetectable texts all pass. A detected
// mismatch returns an error naming both codes.
func (v *Validator) Check(translated, targetLang string) error {
	if targetLang == "" {
		return nil
	}
	text := strings.TrimSpace(translated)
	if text == "" || len([]rune(text)) < minCheckLength {
		return nil
	}

	iso, ok := v.det.ISO(text)
	if !ok {
		return nil
	}
	if !strings.EqualFold(iso, targetLang) {
		return fmt.Errorf("output looks like %s, expected %s", iso, targetLang)
	}
	return nil
}
