package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/sentcheck/internal/cache"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/util"
	"github.com/sethvargo/go-retry"
)

// newLoadBackoff is swapped in tests to avoid real sleeps
var newLoadBackoff = func(retries uint64) retry.Backoff {
	return retry.WithMaxRetries(retries, retry.NewFibonacci(500*time.Millisecond))
}

// New creates the backend selected by cfg.Backend without contacting it
func New(cfg model.ParserConfig) (Parser, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "spacy":
		return NewSpacyParser(cfg)
	case "openai", "ollama":
		return NewOpenAIParser(cfg)
	case "anthropic":
		return NewAnthropicParser(cfg)
	case "conllu":
		return NewConllUParser(cfg.ConllUPath)
	default:
		return nil, fmt.Errorf("unknown parser backend: %s (supported: spacy, openai, ollama, anthropic, conllu)", cfg.Backend)
	}
}

// Load creates the configured parser and makes sure its model is usable.
// If the first probe fails and the backend can fetch, the model is fetched
// once and the probe retried with backoff. The returned parser is wrapped
// with rate limiting and, when c is non-nil, caching.
func Load(ctx context.Context, cfg model.ParserConfig, c cache.Cache, ttl time.Duration) (Parser, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}

	if err := ensureReady(ctx, p, cfg); err != nil {
		return nil, err
	}

	return wrap(p, cfg, c, ttl), nil
}

func ensureReady(ctx context.Context, p Parser, cfg model.ParserConfig) error {
	prober, ok := p.(Prober)
	if !ok {
		return nil
	}

	firstErr := prober.Probe(ctx)
	if firstErr == nil {
		return nil
	}

	fetcher, canFetch := p.(Fetcher)
	if !cfg.FetchOnLoad || !canFetch {
		return fmt.Errorf("%w: %s model %q: %w", ErrParserUnavailable, p.Name(), cfg.Model, firstErr)
	}

	slog.Info("parser model not ready, fetching", "backend", p.Name(), "model", cfg.Model, "reason", firstErr)
	if err := fetcher.Fetch(ctx); err != nil {
		return fmt.Errorf("%w: fetch %s model %q: %w", ErrParserUnavailable, p.Name(), cfg.Model, err)
	}

	attempt := 0
	err := retry.Do(ctx, newLoadBackoff(cfg.LoadRetries), func(ctx context.Context) error {
		attempt++
		if err := prober.Probe(ctx); err != nil {
			slog.Debug("parser probe failed", "backend", p.Name(), "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s model %q after fetch: %w", ErrParserUnavailable, p.Name(), cfg.Model, err)
	}

	slog.Info("parser model ready", "backend", p.Name(), "model", cfg.Model)
	return nil
}

func wrap(p Parser, cfg model.ParserConfig, c cache.Cache, ttl time.Duration) Parser {
	if cfg.BaseURL != "" && cfg.RequestsPerSecond > 0 {
		p = NewRateLimitedParser(p, cfg.BaseURL, util.NewLimiter(cfg.RequestsPerSecond, cfg.Burst))
	}
	if c != nil {
		p = NewCachedParser(p, cfg.Model, c, ttl)
	}
	return p
}
