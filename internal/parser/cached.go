package parser

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/sentcheck/internal/cache"
	"github.com/ppiankov/sentcheck/internal/model"
)

// CachedParser memoizes parses. Failed parses are never cached.
type CachedParser struct {
	next  Parser
	model string
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedParser wraps next. modelName is part of the key so switching models invalidates entries.
func NewCachedParser(next Parser, modelName string, c cache.Cache, ttl time.Duration) *CachedParser {
	return &CachedParser{next: next, model: modelName, cache: c, ttl: ttl}
}

func (p *CachedParser) Name() string {
	return p.next.Name()
}

func (p *CachedParser) Parse(ctx context.Context, text string) ([]model.Token, error) {
	key := cache.Key(p.next.Name(), p.model, text)

	if data, ok := p.cache.Get(key); ok {
		var tokens []model.Token
		if err := json.Unmarshal(data, &tokens); err == nil {
			slog.Debug("parse cache hit", "backend", p.next.Name())
			return tokens, nil
		}
		_ = p.cache.Delete(key)
	}

	tokens, err := p.next.Parse(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tokens); err == nil {
		if err := p.cache.Set(key, data, p.ttl); err != nil {
			slog.Warn("parse cache write failed", "error", err)
		}
	}
	return tokens, nil
}
