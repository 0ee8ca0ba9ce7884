package record

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ppiankov/sentcheck/internal/model"
)

var (
	queryHeader = []string{"id", "query", "expected", "verdict", "policy", "classify_policy"}
	tokenHeader = []string{"query_id", "query", "token", "pos", "dep"}
)

// WriteQueriesCSV writes query records with an
// id,query,expected,verdict,policy,classify_policy header.
// An unlabeled query has an empty expected column.
func WriteQueriesCSV(w io.Writer, queries []model.QueryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(queryHeader); err != nil {
		return err
	}
	for _, q := range queries {
		expected := ""
		if q.Expected != nil {
			expected = strconv.FormatBool(*q.Expected)
		}
		if err := cw.Write([]string{q.ID, q.Query, expected, strconv.FormatBool(q.Verdict), q.Policy, q.Classify}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTokensCSV writes token records with a query_id,query,token,pos,dep header
func WriteTokensCSV(w io.Writer, tokens []model.TokenRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tokenHeader); err != nil {
		return err
	}
	for _, t := range tokens {
		if err := cw.Write([]string{t.QueryID, t.Query, t.Token, string(t.POS), t.Dep}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes both tables from s
func Export(ctx context.Context, s Store, queries, tokens io.Writer) error {
	qs, err := s.Queries(ctx)
	if err != nil {
		return err
	}
	if err := WriteQueriesCSV(queries, qs); err != nil {
		return err
	}

	ts, err := s.Tokens(ctx)
	if err != nil {
		return err
	}
	return WriteTokensCSV(tokens, ts)
}
