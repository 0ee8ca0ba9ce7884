package parser

import (
	"context"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/util"
)

// RateLimitedParser waits on a per-host limiter before every parse
type RateLimitedParser struct {
	next     Parser
	endpoint string
	limiter  *util.Limiter
}

// NewRateLimitedParser wraps next; endpoint selects the limiter bucket
func NewRateLimitedParser(next Parser, endpoint string, limiter *util.Limiter) *RateLimitedParser {
	return &RateLimitedParser{next: next, endpoint: endpoint, limiter: limiter}
}

func (p *RateLimitedParser) Name() string {
	return p.next.Name()
}

func (p *RateLimitedParser) Parse(ctx context.Context, text string) ([]model.Token, error) {
	if err := p.limiter.Wait(ctx, p.endpoint); err != nil {
		return nil, err
	}
	return p.next.Parse(ctx, text)
}
