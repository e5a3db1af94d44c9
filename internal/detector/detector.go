// Package detector resolves the source language of submitted text when the
// caller asks for auto-detection.
package detector

import (
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
)

// minDetectLength is the minimum rune count for a detection attempt. Shorter
// texts give unreliable results and are left unresolved.
const minDetectLength = 12

// Detector wraps the lingua language detector. Building one is expensive;
// share the instance.
type Detector struct {
	inner lingua.LanguageDetector
}

var (
	sharedOnce sync.Once
	sharedDet  *Detector
)

// Shared returns a process-wide detector, built on first use.
func Shared() *Detector {
	sharedOnce.Do(func() {
		sharedDet = New()
	})
	return sharedDet
}

func New() *Detector {
	return &Detector{
		inner: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// ISO returns the ISO 639-1 code of text's language, or ok=false when the
// text is empty, too short, or ambiguous.
func (d *Detector) ISO(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDetectLength {
		return "", false
	}
	lang, ok := d.inner.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// ResolveSource maps a requested source language to a concrete one:
// an explicit code passes through, "auto" (or empty) triggers detection, and
// an undetectable text resolves to "" so prompts fall back to
// model-side detection.
func (d *Detector) ResolveSource(requested, text string) string {
	if requested != "" && requested != "auto" {
		return requested
	}
	if iso, ok := d.ISO(text); ok {
		return iso
	}
	return ""
}
