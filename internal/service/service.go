// Package service implements the two processing pipelines. Each request gets
// a Pipeline built from the configuration snapshot taken at request start;
// the pipeline segments input, consults the result memory, builds prompts,
// dispatches bounded concurrent gateway invocations, and hands ordered
// results to the caller's sink.
package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/language"

	"parastream/internal/config"
	"parastream/internal/detector"
	"parastream/internal/dispatch"
	"parastream/internal/gateway"
	"parastream/internal/logging"
	"parastream/internal/placeholder"
	"parastream/internal/postprocess"
	"parastream/internal/prompt"
	"parastream/internal/segment"
	"parastream/internal/shape"
	"parastream/internal/store"
	"parastream/internal/validator"
)

// GrammarOptions tune the correction pipeline.
type GrammarOptions struct {
	Language string `json:"language"`
}

// TranslateOptions tune the translation pipeline. Zero chunking caps fall
// back to the configured defaults.
type TranslateOptions struct {
	SourceLang       string `json:"sourceLang"`
	TargetLang       string `json:"targetLang"`
	PunctuationStyle string `json:"punctuationStyle"`
	MaxParagraphs    int    `json:"maxParagraphs"`
	MaxChars         int    `json:"maxChars"`
}

// Memory is the slice of the store the pipelines use. Nil disables caching.
type Memory interface {
	GetCached(ctx context.Context, mode, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveResult(ctx context.Context, mode, sourceText, sourceLang, targetLang, outputText, model string) error
	ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]store.GlossaryEntry, error)
}

type Pipeline struct {
	Cfg     config.Settings
	Invoker gateway.Invoker
	Memory  Memory
	Log     *logging.Logger
	Det     *detector.Detector

	// Pacing is passed through to the dispatcher.
	Pacing time.Duration
}

// New builds a request-scoped pipeline from a configuration snapshot.
func New(cfg config.Settings, inv gateway.Invoker, mem Memory, det *detector.Detector, log *logging.Logger) *Pipeline {
	return &Pipeline{Cfg: cfg, Invoker: inv, Memory: mem, Det: det, Log: log}
}

func (p *Pipeline) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.Cfg.Model.DefaultModel
}

// Fix corrects every paragraph independently and emits ordered results to
// sink. Per-paragraph failures surface as error results, never as a run
// failure.
func (p *Pipeline) Fix(ctx context.Context, units []segment.Unit, modelName string, opts GrammarOptions, sink dispatch.Sink) error {
	modelName = p.model(modelName)
	lang := canonicalLang(opts.Language)

	tasks := make([]dispatch.Task, len(units))
	for i, u := range units {
		tasks[i] = dispatch.Task{Ordinal: i, First: u.Index, Count: 1}
	}

	invoke := func(ctx context.Context, t dispatch.Task) ([]string, error) {
		u := units[t.Ordinal]

		if cached, hit := p.lookup(ctx, store.ModeFix, u.Text, lang, ""); hit {
			return []string{cached}, nil
		}

		out, err := p.Invoker.Invoke(ctx, modelName, prompt.Grammar(u.Text, lang))
		if err != nil {
			return nil, err
		}
		out = postprocess.Scrub(out)
		p.remember(ctx, store.ModeFix, u.Text, lang, "", out, modelName)
		return []string{out}, nil
	}

	d := dispatch.Dispatcher{Concurrency: p.Cfg.Model.Concurrency, Pacing: p.Pacing}
	return d.Run(ctx, tasks, invoke, sink)
}

// Translate batches paragraphs into chunks and translates each chunk in one
// invocation, emitting per-paragraph ordered results to sink.
func (p *Pipeline) Translate(ctx context.Context, units []segment.Unit, modelName string, opts TranslateOptions, sink dispatch.Sink) error {
	modelName = p.model(modelName)

	sourceLang := canonicalLang(opts.SourceLang)
	if p.Det != nil {
		sourceLang = p.Det.ResolveSource(sourceLang, joinSample(units))
	}
	targetLang := canonicalLang(opts.TargetLang)

	maxPars := opts.MaxParagraphs
	if maxPars <= 0 {
		maxPars = p.Cfg.Chunk.MaxParagraphs
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = p.Cfg.Chunk.MaxChars
	}
	chunks := segment.Group(units, maxPars, maxChars)

	glossary := p.glossary(ctx, sourceLang, targetLang)

	// Language validation is advisory and only available when a detector was
	// wired in.
	var val *validator.Validator
	if p.Det != nil {
		val = validator.New(p.Det)
	}

	tasks := make([]dispatch.Task, len(chunks))
	for i, c := range chunks {
		tasks[i] = dispatch.Task{Ordinal: i, First: c.First(), Count: c.Len()}
	}

	invoke := func(ctx context.Context, t dispatch.Task) ([]string, error) {
		c := chunks[t.Ordinal]

		if texts, hit := p.lookupChunk(ctx, c, sourceLang, targetLang); hit {
			return texts, nil
		}

		// Shield markup per paragraph so markers survive the round trip.
		shielded := make([]string, c.Len())
		captured := make([][]string, c.Len())
		anyCaptured := false
		for i, u := range c.Units {
			shielded[i], captured[i] = placeholder.Shield(u.Text)
			if len(captured[i]) > 0 {
				anyCaptured = true
			}
		}
		hint := ""
		if anyCaptured {
			hint = placeholder.Hint
		}

		pr := prompt.TranslateChunk(shielded, sourceLang, targetLang, opts.PunctuationStyle, glossary, hint)
		out, err := p.Invoker.Invoke(ctx, modelName, pr)
		if err != nil {
			return nil, err
		}

		texts := shape.DecodeChunk(postprocess.Scrub(out), c.Len())
		for i := range texts {
			texts[i] = placeholder.Unshield(texts[i], captured[i])
			if texts[i] == "" {
				continue
			}
			if val != nil {
				if verr := val.Check(texts[i], targetLang); verr != nil {
					p.Log.Debug("paragraph %d: %v", c.Units[i].Index, verr)
				}
			}
			p.remember(ctx, store.ModeTranslate, c.Units[i].Text, sourceLang, targetLang, texts[i], modelName)
		}
		return texts, nil
	}

	d := dispatch.Dispatcher{Concurrency: p.Cfg.Model.Concurrency, Pacing: p.Pacing}
	return d.Run(ctx, tasks, invoke, sink)
}

func (p *Pipeline) lookup(ctx context.Context, mode, text, sourceLang, targetLang string) (string, bool) {
	if p.Memory == nil {
		return "", false
	}
	cached, hit, err := p.Memory.GetCached(ctx, mode, text, sourceLang, targetLang)
	if err != nil {
		p.Log.Debug("memory lookup failed: %v", err)
		return "", false
	}
	return cached, hit
}

// lookupChunk succeeds only when every paragraph of the chunk is cached;
// a partial hit still pays for the full invocation.
func (p *Pipeline) lookupChunk(ctx context.Context, c segment.Chunk, sourceLang, targetLang string) ([]string, bool) {
	if p.Memory == nil {
		return nil, false
	}
	texts := make([]string, c.Len())
	for i, u := range c.Units {
		cached, hit := p.lookup(ctx, store.ModeTranslate, u.Text, sourceLang, targetLang)
		if !hit {
			return nil, false
		}
		texts[i] = cached
	}
	return texts, true
}

func (p *Pipeline) remember(ctx context.Context, mode, text, sourceLang, targetLang, out, modelName string) {
	if p.Memory == nil || out == "" {
		return
	}
	if err := p.Memory.SaveResult(ctx, mode, text, sourceLang, targetLang, out, modelName); err != nil {
		p.Log.Debug("memory save failed: %v", err)
	}
}

func (p *Pipeline) glossary(ctx context.Context, sourceLang, targetLang string) []prompt.Term {
	if p.Memory == nil {
		return nil
	}
	entries, err := p.Memory.ListGlossaryTerms(ctx, sourceLang, targetLang)
	if err != nil {
		p.Log.Debug("glossary lookup failed: %v", err)
		return nil
	}
	terms := make([]prompt.Term, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, prompt.Term{Source: e.SourceTerm, Target: e.TargetTerm})
	}
	return terms
}

// canonicalLang lowercases and canonicalizes a BCP 47 code ("EN" -> "en").
// Unparseable values pass through untouched; the prompt treats them as plain
// language names.
func canonicalLang(code string) string {
	if code == "" || code == "auto" {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return strings.ToLower(tag.String())
}

// joinSample gives the detector enough text without feeding it everything.
func joinSample(units []segment.Unit) string {
	const maxSample = 400
	var sb strings.Builder
	for _, u := range units {
		if sb.Len() > maxSample {
			break
		}
		sb.WriteString(u.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
