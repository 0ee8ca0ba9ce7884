package parser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/sentcheck/internal/cache"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/sethvargo/go-retry"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := newLoadBackoff
	newLoadBackoff = func(retries uint64) retry.Backoff {
		return retry.WithMaxRetries(retries, retry.NewConstant(time.Millisecond))
	}
	t.Cleanup(func() { newLoadBackoff = orig })
}

// countingParser records calls and returns fixed tokens
type countingParser struct {
	calls  atomic.Int32
	tokens []model.Token
	err    error
}

func (p *countingParser) Name() string { return "counting" }

func (p *countingParser) Parse(_ context.Context, _ string) ([]model.Token, error) {
	p.calls.Add(1)
	return p.tokens, p.err
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		cfg  model.ParserConfig
		name string
	}{
		{model.ParserConfig{BaseURL: "http://localhost:8080"}, "spacy"},
		{model.ParserConfig{Backend: "ollama", BaseURL: "http://localhost:11434/v1"}, "openai"},
		{model.ParserConfig{Backend: "anthropic", APIKey: "k"}, "anthropic"},
	}

	for _, tt := range tests {
		p, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tt.cfg.Backend, err)
		}
		if p.Name() != tt.name {
			t.Errorf("New(%q).Name() = %s, want %s", tt.cfg.Backend, p.Name(), tt.name)
		}
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(model.ParserConfig{Backend: "stanza"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestLoad_ReadyModel(t *testing.T) {
	var installed atomic.Bool
	installed.Store(true)
	server := newSpacyServer(t, &installed)

	p, err := Load(context.Background(), model.ParserConfig{
		Backend: "spacy",
		BaseURL: server.URL,
		Model:   "en_core_web_sm",
	}, nil, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name() != "spacy" {
		t.Errorf("Expected spacy parser, got %s", p.Name())
	}
}

func TestLoad_FetchesMissingModel(t *testing.T) {
	fastBackoff(t)

	var installed atomic.Bool
	server := newSpacyServer(t, &installed)

	_, err := Load(context.Background(), model.ParserConfig{
		Backend:     "spacy",
		BaseURL:     server.URL,
		Model:       "en_core_web_sm",
		FetchOnLoad: true,
		LoadRetries: 2,
	}, nil, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !installed.Load() {
		t.Error("Expected model to be fetched")
	}
}

func TestLoad_NoFetchFails(t *testing.T) {
	var installed atomic.Bool
	server := newSpacyServer(t, &installed)

	_, err := Load(context.Background(), model.ParserConfig{
		Backend: "spacy",
		BaseURL: server.URL,
		Model:   "en_core_web_sm",
	}, nil, 0)
	if !errors.Is(err, ErrParserUnavailable) {
		t.Errorf("Expected ErrParserUnavailable, got %v", err)
	}
	if !errors.Is(err, ErrModelMissing) {
		t.Errorf("Expected ErrModelMissing in chain, got %v", err)
	}
	if installed.Load() {
		t.Error("Model must not be fetched when fetch_on_load is false")
	}
}

// flakyBackend never becomes ready, even after fetching
type flakyBackend struct {
	countingParser
	probes  atomic.Int32
	fetches atomic.Int32
}

func (b *flakyBackend) Probe(context.Context) error {
	b.probes.Add(1)
	return errors.New("still loading")
}

func (b *flakyBackend) Fetch(context.Context) error {
	b.fetches.Add(1)
	return nil
}

func TestEnsureReady_GivesUpAfterRetries(t *testing.T) {
	fastBackoff(t)

	b := &flakyBackend{}
	err := ensureReady(context.Background(), b, model.ParserConfig{FetchOnLoad: true, LoadRetries: 2})
	if !errors.Is(err, ErrParserUnavailable) {
		t.Fatalf("Expected ErrParserUnavailable, got %v", err)
	}

	if got := b.fetches.Load(); got != 1 {
		t.Errorf("Expected exactly one fetch, got %d", got)
	}
	// initial probe + first attempt + 2 retries
	if got := b.probes.Load(); got != 4 {
		t.Errorf("Expected 4 probes, got %d", got)
	}
}

func TestEnsureReady_NoProber(t *testing.T) {
	if err := ensureReady(context.Background(), &countingParser{}, model.ParserConfig{}); err != nil {
		t.Errorf("Expected parsers without a probe to be ready, got %v", err)
	}
}

func TestCachedParser(t *testing.T) {
	inner := &countingParser{tokens: []model.Token{
		{Text: "Go", Whitespace: "", POS: model.POSVerb, Dep: model.DepRoot},
	}}
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	p := NewCachedParser(inner, "m1", c, time.Hour)

	for i := 0; i < 3; i++ {
		tokens, err := p.Parse(context.Background(), "Go")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(tokens) != 1 || tokens[0].POS != model.POSVerb {
			t.Errorf("Unexpected tokens: %+v", tokens)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("Expected 1 backend call, got %d", got)
	}

	other := NewCachedParser(inner, "m2", c, time.Hour)
	if _, err := other.Parse(context.Background(), "Go"); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("Expected model change to miss the cache, got %d calls", got)
	}
}

func TestCachedParser_ErrorsNotCached(t *testing.T) {
	inner := &countingParser{err: ErrParserUnavailable}
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	p := NewCachedParser(inner, "m1", c, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := p.Parse(context.Background(), "Go"); !errors.Is(err, ErrParserUnavailable) {
			t.Errorf("Expected ErrParserUnavailable, got %v", err)
		}
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("Expected 2 backend calls, got %d", got)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}
