package segment

import (
	"strings"
	"testing"
)

func TestSplit_Basic(t *testing.T) {
	units := Split("First paragraph.\n\nSecond paragraph.\n\n\nThird.")

	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	want := []string{"First paragraph.", "Second paragraph.", "Third."}
	for i, u := range units {
		if u.Index != i {
			t.Errorf("unit %d: index %d", i, u.Index)
		}
		if u.Text != want[i] {
			t.Errorf("unit %d: got %q, want %q", i, u.Text, want[i])
		}
	}
}

func TestSplit_WindowsNewlines(t *testing.T) {
	units := Split("One.\r\n\r\nTwo.")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[1].Text != "Two." {
		t.Errorf("got %q", units[1].Text)
	}
}

func TestSplit_BlankLinesWithSpaces(t *testing.T) {
	units := Split("One.\n   \nTwo.")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
}

func TestSplit_SingleNewlineKeepsParagraphTogether(t *testing.T) {
	units := Split("Line one\nline two.\n\nNext.")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if !strings.Contains(units[0].Text, "line two.") {
		t.Errorf("paragraph split on single newline: %q", units[0].Text)
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\n", " \n \n "} {
		if units := Split(input); len(units) != 0 {
			t.Errorf("input %q: expected 0 units, got %d", input, len(units))
		}
	}
}

func TestSplit_TrimsUnits(t *testing.T) {
	units := Split("  padded  \n\nnext")
	if units[0].Text != "padded" {
		t.Errorf("got %q", units[0].Text)
	}
}

func TestGroup_ParagraphCap(t *testing.T) {
	units := Split("a\n\nb\n\nc\n\nd\n\ne")
	chunks := Group(units, 2, 10000)

	sizes := []int{}
	for _, c := range chunks {
		sizes = append(sizes, c.Len())
	}
	want := []int{2, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("expected chunk sizes %v, got %v", want, sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("expected chunk sizes %v, got %v", want, sizes)
		}
	}
}

func TestGroup_CharCap(t *testing.T) {
	units := []Unit{
		{Index: 0, Text: strings.Repeat("x", 40)},
		{Index: 1, Text: strings.Repeat("y", 40)},
		{Index: 2, Text: strings.Repeat("z", 40)},
	}
	chunks := Group(units, 10, 90)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Len() != 2 || chunks[1].Len() != 1 {
		t.Errorf("chunk sizes: %d, %d", chunks[0].Len(), chunks[1].Len())
	}
	for _, c := range chunks {
		if c.Chars() > 90 {
			t.Errorf("chunk exceeds char cap: %d", c.Chars())
		}
	}
}

func TestGroup_OversizedUnitPlacedAlone(t *testing.T) {
	units := []Unit{
		{Index: 0, Text: "small"},
		{Index: 1, Text: strings.Repeat("big", 100)},
		{Index: 2, Text: "tiny"},
	}
	chunks := Group(units, 10, 50)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Len() != 1 || chunks[1].Units[0].Index != 1 {
		t.Errorf("oversized unit not alone: %+v", chunks[1])
	}
}

func TestGroup_PreservesOrderAndCoverage(t *testing.T) {
	units := Split("a\n\nb\n\nc\n\nd\n\ne\n\nf\n\ng")
	chunks := Group(units, 3, 10000)

	next := 0
	for _, c := range chunks {
		if c.First() != next {
			t.Fatalf("chunk starts at %d, want %d", c.First(), next)
		}
		for _, u := range c.Units {
			if u.Index != next {
				t.Fatalf("unit order broken at index %d", u.Index)
			}
			next++
		}
	}
	if next != len(units) {
		t.Errorf("chunks cover %d units, want %d", next, len(units))
	}
}

func TestGroup_ZeroUnits(t *testing.T) {
	if chunks := Group(nil, 4, 3000); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestJoin_RoundTrip(t *testing.T) {
	input := "First one.\n\nSecond one.\n\nThird."
	units := Split(input)

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	again := Split(Join(texts))
	if len(again) != len(units) {
		t.Errorf("re-segmentation changed unit count: %d != %d", len(again), len(units))
	}
}
