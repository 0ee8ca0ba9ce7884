// Package record accumulates checked queries and their tokens for review and export.
package record

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/sentcheck/internal/model"
)

// Store is an append-only log of checked queries.
// A query already recorded under the same validity and classification
// policies is not appended again.
type Store interface {
	// Append adds q and its tokens, reporting false when the query was already present
	Append(ctx context.Context, q model.QueryRecord, tokens []model.TokenRecord) (bool, error)

	// Queries returns all query records in insertion order
	Queries(ctx context.Context) ([]model.QueryRecord, error)

	// Tokens returns all token records in insertion order
	Tokens(ctx context.Context) ([]model.TokenRecord, error)

	Close() error
}

// New opens the store selected by cfg
func New(ctx context.Context, cfg model.RecordsConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown records backend: %s (supported: memory, postgres)", cfg.Backend)
	}
}

// Build creates the records for one checked query with a fresh ID
func Build(query string, expected *bool, verdict bool, policy string, tokens []model.Token) (model.QueryRecord, []model.TokenRecord) {
	q := model.QueryRecord{
		ID:        uuid.NewString(),
		Query:     query,
		Expected:  expected,
		Verdict:   verdict,
		Policy:    policy,
		CreatedAt: time.Now().UTC(),
	}

	recs := make([]model.TokenRecord, len(tokens))
	for i, t := range tokens {
		recs[i] = model.TokenRecord{
			QueryID: q.ID,
			Query:   query,
			Token:   t.Text,
			POS:     t.POS,
			Dep:     t.Dep,
		}
	}
	return q, recs
}

type queryKey struct {
	query    string
	policy   string
	classify string
}

func keyOf(q model.QueryRecord) queryKey {
	return queryKey{query: q.Query, policy: q.Policy, classify: q.Classify}
}
