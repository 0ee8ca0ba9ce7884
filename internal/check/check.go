// Package check runs a sentence through parsing, classification and validity.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/sentcheck/internal/grammar"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/parser"
	"github.com/ppiankov/sentcheck/internal/policy"
	"github.com/ppiankov/sentcheck/internal/record"
)

// Request is one sentence to check
type Request struct {
	Text string

	// Policy names the level used for classification. Empty selects the checker default.
	Policy string

	// ValidityPolicy names the level whose law decides the verdict.
	// Empty means the same level as Policy.
	ValidityPolicy string

	// Expected is the caller's own judgement, kept for agreement reporting
	Expected *bool
}

// Result is the outcome of one check
type Result struct {
	Query          string                     `json:"query"`
	Policy         string                     `json:"policy"`
	ValidityPolicy string                     `json:"validity_policy"`
	Tokens         []model.Token              `json:"tokens"`
	Classification model.ClassificationResult `json:"classification"`
	Valid          bool                       `json:"valid"`
	Expected       *bool                      `json:"expected,omitempty"`
}

// Checker orchestrates the check of a single sentence
type Checker struct {
	parser       parser.Parser
	table        *policy.Table
	defaultLevel string
}

// NewChecker creates a checker. defaultLevel must name a level of table.
func NewChecker(p parser.Parser, table *policy.Table, defaultLevel string) (*Checker, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no parser configured", parser.ErrParserUnavailable)
	}
	if table == nil {
		table = policy.Canonical()
	}
	if _, err := table.Lookup(defaultLevel); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	return &Checker{
		parser:       p,
		table:        table,
		defaultLevel: strings.ToLower(strings.TrimSpace(defaultLevel)),
	}, nil
}

// Table returns the policy table the checker resolves levels from
func (c *Checker) Table() *policy.Table {
	return c.table
}

// DefaultLevel returns the level used when a request names none
func (c *Checker) DefaultLevel() string {
	return c.defaultLevel
}

// Check parses, classifies and validates req.Text.
// Blank text is not sent to the parser and is never valid.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	// 1. Resolve policies before any parser work
	classifyPolicy, err := c.lookup(req.Policy)
	if err != nil {
		return nil, err
	}
	validityPolicy := classifyPolicy
	if req.ValidityPolicy != "" {
		validityPolicy, err = c.lookup(req.ValidityPolicy)
		if err != nil {
			return nil, err
		}
	}

	query := strings.TrimSpace(req.Text)
	result := &Result{
		Query:          query,
		Policy:         classifyPolicy.Name,
		ValidityPolicy: validityPolicy.Name,
		Expected:       req.Expected,
		Classification: model.ClassificationResult{Tokens: []model.AnnotatedToken{}},
	}

	if query == "" {
		return result, nil
	}

	// 2. Parse
	tokens, err := c.parser.Parse(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Tokens = tokens

	// 3. Classify
	result.Classification = grammar.Classify(tokens, classifyPolicy)

	// 4. Validate
	result.Valid = policy.Validate(result.Classification, validityPolicy)

	slog.Debug("checked sentence",
		"policy", classifyPolicy.Name,
		"validity_policy", validityPolicy.Name,
		"valid", result.Valid,
	)

	return result, nil
}

func (c *Checker) lookup(name string) (policy.Policy, error) {
	if strings.TrimSpace(name) == "" {
		name = c.defaultLevel
	}
	return c.table.Lookup(name)
}

// Record appends a checked result to s. Blank queries are not recorded.
func Record(ctx context.Context, s record.Store, res *Result) (bool, error) {
	if s == nil || res == nil || res.Query == "" {
		return false, nil
	}

	q, tokens := record.Build(res.Query, res.Expected, res.Valid, res.ValidityPolicy, res.Tokens)
	q.Classify = res.Policy
	added, err := s.Append(ctx, q, tokens)
	if err != nil {
		return false, fmt.Errorf("record query: %w", err)
	}
	return added, nil
}
