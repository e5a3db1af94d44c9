// Package prompt builds the instruction text sent to the model host for the
// two processing modes.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is one glossary entry injected into translation prompts.
type Term struct {
	Source string
	Target string
}

// Grammar returns the prompt for correcting a single paragraph. language may
// be empty, in which case the model works in the text's own language.
func Grammar(text, language string) string {
	lang := language
	if lang == "" {
		lang = "the same language as the text"
	}
	return fmt.Sprintf(`You are a meticulous copy editor.

Correct all grammar, spelling, and punctuation mistakes in the following text.
Keep the original wording, tone, and meaning; change only what is incorrect.
Write the corrected text in %s.

Text:
%s

Output ONLY the corrected text. Do not include any explanation.`, lang, text)
}

// TranslateChunk returns the prompt for translating a batch of paragraphs in
// one call. The model is instructed to answer with a JSON array holding one
// translated string per input paragraph, in order.
func TranslateChunk(paragraphs []string, sourceLang, targetLang, punctuationStyle string, glossary []Term, preserveHint string) string {
	src := sourceLang
	if src == "" || src == "auto" {
		src = "the source language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional translator.\n\n")
	fmt.Fprintf(&sb, "Translate the following %d paragraph(s) from %s to %s.\n", len(paragraphs), src, targetLang)

	if punctuationStyle != "" {
		fmt.Fprintf(&sb, "Use %s punctuation conventions in the output.\n", punctuationStyle)
	}

	if len(glossary) > 0 {
		sb.WriteString("Always translate these terms exactly as given:\n")
		for _, t := range glossary {
			fmt.Fprintf(&sb, "  %q -> %q\n", t.Source, t.Target)
		}
	}

	if preserveHint != "" {
		sb.WriteString(preserveHint)
		sb.WriteString("\n")
	}

	sb.WriteString("\nParagraphs (JSON array):\n")
	enc, _ := json.Marshal(paragraphs)
	sb.Write(enc)

	fmt.Fprintf(&sb, `

Respond ONLY with a JSON array of %d strings: the translated paragraphs in
the same order. No explanation, no markdown fences.`, len(paragraphs))

	return sb.String()
}
