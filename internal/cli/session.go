package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/sentcheck/internal/cache"
	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/parser"
	"github.com/ppiankov/sentcheck/internal/policy"
	"github.com/ppiankov/sentcheck/internal/record"
)

// session holds what one CLI invocation needs: a loaded parser behind a
// checker, and the record store it appends to
type session struct {
	cfg     *model.Config
	checker *check.Checker
	store   record.Store
	cache   cache.Cache
}

// buildTable selects the configured rule set and applies overrides
func buildTable(cfg model.PolicyConfig) (*policy.Table, error) {
	table, err := policy.TableByName(cfg.RuleSet)
	if err != nil {
		return nil, err
	}
	if len(cfg.Overrides) > 0 {
		table, err = table.WithOverrides(cfg.Overrides)
		if err != nil {
			return nil, err
		}
	}
	return table, nil
}

// newSession validates the policy config before loading the parser, so a bad
// level never costs a model fetch
func newSession(ctx context.Context, cfg *model.Config) (*session, error) {
	table, err := buildTable(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if _, err := table.Lookup(cfg.Policy.Default); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	p, err := parser.Load(ctx, cfg.Parser, c, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	slog.Debug("parser loaded", "backend", p.Name(), "model", cfg.Parser.Model)

	checker, err := check.NewChecker(p, table, cfg.Policy.Default)
	if err != nil {
		return nil, err
	}

	store, err := record.New(ctx, cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	return &session{cfg: cfg, checker: checker, store: store, cache: c}, nil
}

func (s *session) Close() error {
	if closer, ok := s.cache.(io.Closer); ok {
		_ = closer.Close()
	}
	return s.store.Close()
}
