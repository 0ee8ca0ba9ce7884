// Package parser adapts external dependency parsers to sentcheck tokens.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/sentcheck/internal/model"
)

var (
	// ErrParserUnavailable means the parser model could not be loaded, fetched or reached
	ErrParserUnavailable = errors.New("parser unavailable")

	// ErrMalformedParse means the parser returned tokens sentcheck cannot use
	ErrMalformedParse = errors.New("malformed parse")

	// ErrSentenceNotFound is returned by lookup backends that have no parse for the text
	ErrSentenceNotFound = errors.New("sentence not found")
)

// Parser turns a raw sentence into ordered, tagged tokens
type Parser interface {
	// Name returns the backend name
	Name() string

	// Parse returns the tokens of text in source order.
	// Blank text yields no tokens and no error.
	Parse(ctx context.Context, text string) ([]model.Token, error)
}

// Prober is implemented by backends that can check their model is ready
type Prober interface {
	Probe(ctx context.Context) error
}

// Fetcher is implemented by backends that can install a missing model
type Fetcher interface {
	Fetch(ctx context.Context) error
}

// rawToken is the backend-neutral shape tokens arrive in
type rawToken struct {
	Text       string
	Whitespace string
	POS        string
	Dep        string
}

// normalize validates raw tokens and converts them to model tokens
func normalize(raw []rawToken) ([]model.Token, error) {
	tokens := make([]model.Token, 0, len(raw))
	for i, r := range raw {
		if r.Text == "" {
			return nil, fmt.Errorf("%w: token %d has no text", ErrMalformedParse, i)
		}
		pos, ok := model.ParsePOS(r.POS)
		if !ok {
			return nil, fmt.Errorf("%w: token %d (%q) has unknown part-of-speech tag %q", ErrMalformedParse, i, r.Text, r.POS)
		}
		tokens = append(tokens, model.Token{
			Text:       r.Text,
			Whitespace: r.Whitespace,
			POS:        pos,
			Dep:        normalizeDep(r.Dep),
		})
	}
	return tokens, nil
}

// normalizeDep maps the head label to ROOT; UD data writes it lowercase
func normalizeDep(dep string) string {
	dep = strings.TrimSpace(dep)
	if strings.EqualFold(dep, model.DepRoot) {
		return model.DepRoot
	}
	return dep
}

// alignWhitespace recomputes each token's trailing whitespace from the
// source text. Tokens must appear in text in order.
func alignWhitespace(text string, raw []rawToken) error {
	pos := 0
	for i := range raw {
		idx := strings.Index(text[pos:], raw[i].Text)
		if idx < 0 {
			return fmt.Errorf("%w: token %d (%q) not found in source text", ErrMalformedParse, i, raw[i].Text)
		}
		if i > 0 {
			gap := text[pos : pos+idx]
			if strings.TrimSpace(gap) != "" {
				return fmt.Errorf("%w: unexpected text %q before token %d", ErrMalformedParse, gap, i)
			}
			raw[i-1].Whitespace = gap
		} else if strings.TrimSpace(text[:idx]) != "" {
			return fmt.Errorf("%w: unexpected text %q before first token", ErrMalformedParse, text[:idx])
		}
		pos += idx + len(raw[i].Text)
	}
	if len(raw) > 0 {
		rest := text[pos:]
		if strings.TrimSpace(rest) != "" {
			return fmt.Errorf("%w: text %q not covered by tokens", ErrMalformedParse, rest)
		}
		raw[len(raw)-1].Whitespace = rest
	}
	return nil
}
