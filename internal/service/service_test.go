package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"parastream/internal/config"
	"parastream/internal/dispatch"
	"parastream/internal/logging"
	"parastream/internal/segment"
	"parastream/internal/store"
)

// fakeInvoker answers from a function and counts calls.
type fakeInvoker struct {
	mu    sync.Mutex
	calls int
	fn    func(model, prompt string) (string, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(model, prompt)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMemory is an in-process Memory with a fixed glossary.
type fakeMemory struct {
	mu      sync.Mutex
	results map[string]string
	terms   []store.GlossaryEntry
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{results: map[string]string{}}
}

func memKey(mode, text, src, tgt string) string {
	return mode + "|" + text + "|" + src + "|" + tgt
}

func (m *fakeMemory) GetCached(ctx context.Context, mode, text, src, tgt string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.results[memKey(mode, text, src, tgt)]
	return out, ok, nil
}

func (m *fakeMemory) SaveResult(ctx context.Context, mode, text, src, tgt, out, model string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[memKey(mode, text, src, tgt)] = out
	return nil
}

func (m *fakeMemory) ListGlossaryTerms(ctx context.Context, src, tgt string) ([]store.GlossaryEntry, error) {
	return m.terms, nil
}

func testSettings() config.Settings {
	s := config.Settings{}
	s.Model.DefaultModel = "test-model"
	s.Model.Concurrency = 2
	s.Chunk.MaxParagraphs = 4
	s.Chunk.MaxChars = 3000
	return s
}

type captureSink struct {
	mu      sync.Mutex
	results []dispatch.Result
}

func (c *captureSink) Emit(r dispatch.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	return nil
}

func TestFix_CorrectsEachParagraph(t *testing.T) {
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return "corrected", nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("one two three.\n\nfour five six.")
	sink := &captureSink{}
	if err := p.Fix(context.Background(), units, "", GrammarOptions{}, sink); err != nil {
		t.Fatalf("Fix: %v", err)
	}

	if len(sink.results) != 2 {
		t.Fatalf("got %d results, want 2", len(sink.results))
	}
	for i, r := range sink.results {
		if r.Index != i || r.Text != "corrected" || r.Err != nil {
			t.Errorf("result %d: %+v", i, r)
		}
	}
	if inv.callCount() != 2 {
		t.Errorf("invoked %d times, want 2", inv.callCount())
	}
}

func TestFix_UsesDefaultModelWhenUnset(t *testing.T) {
	var seen string
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		seen = model
		return "x", nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("some text")
	p.Fix(context.Background(), units, "", GrammarOptions{}, &captureSink{})
	if seen != "test-model" {
		t.Errorf("model: got %q, want configured default", seen)
	}

	p.Fix(context.Background(), units, "override", GrammarOptions{}, &captureSink{})
	if seen != "override" {
		t.Errorf("model: got %q, want request override", seen)
	}
}

func TestFix_CacheHitSkipsInvocation(t *testing.T) {
	mem := newFakeMemory()
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return "fresh", nil
	}}
	p := New(testSettings(), inv, mem, nil, logging.NewDiscard())
	units := segment.Split("same paragraph")

	if err := p.Fix(context.Background(), units, "", GrammarOptions{}, &captureSink{}); err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 1 {
		t.Fatalf("first run invoked %d times, want 1", inv.callCount())
	}

	sink := &captureSink{}
	if err := p.Fix(context.Background(), units, "", GrammarOptions{}, sink); err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 1 {
		t.Errorf("second run re-invoked the model on a cache hit")
	}
	if sink.results[0].Text != "fresh" {
		t.Errorf("cached text: got %q", sink.results[0].Text)
	}
}

func TestFix_ScrubsModelOutput(t *testing.T) {
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return "<think>hmm</think>Here is the corrected text: \"Clean.\"", nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	sink := &captureSink{}
	p.Fix(context.Background(), segment.Split("dirty"), "", GrammarOptions{}, sink)
	if sink.results[0].Text != "Clean." {
		t.Errorf("got %q, want scrubbed output", sink.results[0].Text)
	}
}

func TestFix_InvocationErrorBecomesErrorResult(t *testing.T) {
	boom := errors.New("host fell over")
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return "", boom
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	sink := &captureSink{}
	if err := p.Fix(context.Background(), segment.Split("text"), "", GrammarOptions{}, sink); err != nil {
		t.Fatalf("per-paragraph failures must not fail the run: %v", err)
	}
	if len(sink.results) != 1 || !errors.Is(sink.results[0].Err, boom) {
		t.Errorf("results: %+v", sink.results)
	}
}

func TestTranslate_ChunksAndDecodes(t *testing.T) {
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return `["Un.", "Deux.", "Trois."]`, nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("One.\n\nTwo.\n\nThree.")
	sink := &captureSink{}
	err := p.Translate(context.Background(), units, "", TranslateOptions{SourceLang: "en", TargetLang: "fr"}, sink)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := []string{"Un.", "Deux.", "Trois."}
	if len(sink.results) != 3 {
		t.Fatalf("got %d results", len(sink.results))
	}
	for i, r := range sink.results {
		if r.Index != i || r.Text != want[i] {
			t.Errorf("result %d: %+v", i, r)
		}
	}
	// All three fit in one chunk under the default caps.
	if inv.callCount() != 1 {
		t.Errorf("invoked %d times, want one chunk call", inv.callCount())
	}
}

func TestTranslate_RespectsParagraphCap(t *testing.T) {
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		// Count the requested paragraphs from the embedded array size.
		n := strings.Count(prompt, "\"p")
		parts := make([]string, n)
		for i := range parts {
			parts[i] = `"t"`
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("p1.\n\np2.\n\np3.\n\np4.\n\np5.")
	sink := &captureSink{}
	err := p.Translate(context.Background(), units, "", TranslateOptions{
		TargetLang:    "fr",
		MaxParagraphs: 2,
	}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 3 {
		t.Errorf("invoked %d times, want 3 chunks for 5 paragraphs capped at 2", inv.callCount())
	}
	if len(sink.results) != 5 {
		t.Errorf("got %d results, want 5", len(sink.results))
	}
}

func TestTranslate_MalformedOutputFallsBack(t *testing.T) {
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return "Premier paragraphe.\n\nDeuxième paragraphe.", nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("First paragraph.\n\nSecond paragraph.")
	sink := &captureSink{}
	err := p.Translate(context.Background(), units, "", TranslateOptions{TargetLang: "fr"}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if sink.results[0].Text != "Premier paragraphe." || sink.results[1].Text != "Deuxième paragraphe." {
		t.Errorf("blank-line fallback failed: %+v", sink.results)
	}
}

func TestTranslate_GlossaryInjected(t *testing.T) {
	mem := newFakeMemory()
	mem.terms = []store.GlossaryEntry{
		{SourceLang: "en", TargetLang: "fr", SourceTerm: "sink", TargetTerm: "collecteur"},
	}

	var seenPrompt string
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		seenPrompt = prompt
		return `["ok"]`, nil
	}}
	p := New(testSettings(), inv, mem, nil, logging.NewDiscard())

	units := segment.Split("The sink overflows.")
	err := p.Translate(context.Background(), units, "", TranslateOptions{SourceLang: "en", TargetLang: "fr"}, &captureSink{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(seenPrompt, `"sink" -> "collecteur"`) {
		t.Error("glossary term missing from prompt")
	}
}

func TestTranslate_ShieldsAndUnshieldsMarkup(t *testing.T) {
	var seenPrompt string
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		seenPrompt = prompt
		return `["Exécutez ⟦0⟧ maintenant."]`, nil
	}}
	p := New(testSettings(), inv, nil, nil, logging.NewDiscard())

	units := segment.Split("Run `go build` now.")
	sink := &captureSink{}
	err := p.Translate(context.Background(), units, "", TranslateOptions{SourceLang: "en", TargetLang: "fr"}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(seenPrompt, "go build") {
		t.Error("code span leaked into the prompt")
	}
	if sink.results[0].Text != "Exécutez `go build` maintenant." {
		t.Errorf("unshield failed: %q", sink.results[0].Text)
	}
}

func TestTranslate_ChunkCacheAllOrNothing(t *testing.T) {
	mem := newFakeMemory()
	inv := &fakeInvoker{fn: func(model, prompt string) (string, error) {
		return `["A.", "B."]`, nil
	}}
	p := New(testSettings(), inv, mem, nil, logging.NewDiscard())
	opts := TranslateOptions{SourceLang: "en", TargetLang: "fr"}
	units := segment.Split("First.\n\nSecond.")

	if err := p.Translate(context.Background(), units, "", opts, &captureSink{}); err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 1 {
		t.Fatalf("first run: %d calls", inv.callCount())
	}

	// Fully cached chunk.
	if err := p.Translate(context.Background(), units, "", opts, &captureSink{}); err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 1 {
		t.Errorf("fully cached chunk still invoked the model")
	}

	// A new paragraph in the chunk forces a full invocation.
	bigger := segment.Split("First.\n\nSecond.\n\nThird.")
	inv.fn = func(model, prompt string) (string, error) {
		return `["A.", "B.", "C."]`, nil
	}
	if err := p.Translate(context.Background(), bigger, "", opts, &captureSink{}); err != nil {
		t.Fatal(err)
	}
	if inv.callCount() != 2 {
		t.Errorf("partial hit must pay for the chunk, got %d calls", inv.callCount())
	}
}

func TestCanonicalLang(t *testing.T) {
	cases := []struct{ in, want string }{
		{"EN", "en"},
		{"en-us", "en-us"},
		{"fr", "fr"},
		{"auto", "auto"},
		{"", ""},
		{"Klingon language", "Klingon language"},
	}
	for _, c := range cases {
		if got := canonicalLang(c.in); got != c.want {
			t.Errorf("canonicalLang(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
