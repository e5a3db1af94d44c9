// Package segment turns raw input text into the ordered units the dispatcher
// processes. A unit is one paragraph; for translation, consecutive units are
// grouped into chunks so a single model call can share context, bounded by a
// paragraph-count cap and a cumulative character cap.
package segment

import (
	"regexp"
	"strings"
)

// Unit is one independently processable paragraph.
type Unit struct {
	Index int
	Text  string
}

// Chunk is an ordered batch of consecutive units sent to the model host in a
// single call. Chunk boundaries never split a unit.
type Chunk struct {
	// Units holds the chunk's members in original order.
	Units []Unit
}

// First returns the index of the chunk's first unit.
func (c Chunk) First() int { return c.Units[0].Index }

// Len returns the number of units in the chunk.
func (c Chunk) Len() int { return len(c.Units) }

// Chars returns the cumulative rune count of the chunk's unit texts.
func (c Chunk) Chars() int {
	n := 0
	for _, u := range c.Units {
		n += len([]rune(u.Text))
	}
	return n
}

// blankLine matches one or more blank lines acting as a paragraph separator.
// Lines containing only whitespace count as blank.
var blankLine = regexp.MustCompile(`\r?\n[ \t]*(\r?\n[ \t]*)+`)

// Split breaks text into paragraphs on blank-line boundaries. Paragraphs are
// trimmed, empty results are dropped, and indices are assigned by position.
// Whitespace-only input yields an empty slice.
func Split(text string) []Unit {
	parts := blankLine.Split(text, -1)
	units := make([]Unit, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		units = append(units, Unit{Index: len(units), Text: p})
	}
	return units
}

// Group batches units into chunks, walking them in order. A chunk is closed
// when adding the next unit would exceed maxParagraphs units or maxChars
// cumulative runes, whichever cap is hit first. A single unit longer than
// maxChars is placed alone rather than dropped. Zero units yield zero chunks.
func Group(units []Unit, maxParagraphs, maxChars int) []Chunk {
	if maxParagraphs < 1 {
		maxParagraphs = 1
	}
	if maxChars < 1 {
		maxChars = 1
	}

	var chunks []Chunk
	var cur Chunk
	curChars := 0

	flush := func() {
		if len(cur.Units) > 0 {
			chunks = append(chunks, cur)
			cur = Chunk{}
			curChars = 0
		}
	}

	for _, u := range units {
		n := len([]rune(u.Text))
		if len(cur.Units) > 0 && (len(cur.Units)+1 > maxParagraphs || curChars+n > maxChars) {
			flush()
		}
		cur.Units = append(cur.Units, u)
		curChars += n
	}
	flush()

	return chunks
}

// Join recombines processed paragraph texts into a single document, separated
// by blank lines. It is the inverse of Split for boundary-preserving output.
func Join(texts []string) string {
	return strings.Join(texts, "\n\n")
}
