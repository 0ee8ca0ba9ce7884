package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/record"
)

// Checker defines the interface for checking one sentence
type Checker interface {
	Check(ctx context.Context, req check.Request) (*check.Result, error)
}

// Query is one line of a batch file
type Query struct {
	Text     string
	Expected *bool
}

// CheckJob checks a single query
type CheckJob struct {
	Index   int
	Query   Query
	Policy  string
	Checker Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	res, err := j.Checker.Check(ctx, check.Request{
		Text:     j.Query.Text,
		Policy:   j.Policy,
		Expected: j.Query.Expected,
	})
	return &CheckResult{
		Index:  j.Index,
		Query:  j.Query,
		Result: res,
		Error:  err,
	}
}

// CheckResult represents the result of a check job
type CheckResult struct {
	Index    int
	Query    Query
	Result   *check.Result
	Recorded bool
	Error    error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many queries concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
	store       record.Store // optional; appended to from the collecting goroutine only
}

// NewBatchProcessor creates a new batch processor. store may be nil.
func NewBatchProcessor(checker Checker, concurrency int, store record.Store) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
		store:       store,
	}
}

// ProcessQueries checks every query under policy and returns one result per
// query in input order. Queries left unchecked when ctx ends carry ctx's error.
func (b *BatchProcessor) ProcessQueries(ctx context.Context, queries []Query, policy string) []*CheckResult {
	if len(queries) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		defer pool.Close()
		for i, q := range queries {
			if !pool.Submit(&CheckJob{Index: i, Query: q, Policy: policy, Checker: b.checker}) {
				return
			}
		}
	}()

	results := make([]*CheckResult, 0, len(queries))
	for r := range pool.Results() {
		res := r.(*CheckResult)
		if res.Error == nil && b.store != nil {
			added, err := check.Record(ctx, b.store, res.Result)
			if err != nil {
				slog.Warn("record failed", "query", res.Query.Text, "error", err)
			}
			res.Recorded = added
		}
		results = append(results, res)
	}

	if len(results) < len(queries) {
		results = fillUnchecked(ctx, queries, results)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	return results
}

// fillUnchecked adds a failed result for every query that never produced one
func fillUnchecked(ctx context.Context, queries []Query, results []*CheckResult) []*CheckResult {
	reason := ctx.Err()
	if reason == nil {
		reason = context.Canceled
	}

	done := make([]bool, len(queries))
	for _, r := range results {
		done[r.Index] = true
	}

	checked := len(results)
	for i, q := range queries {
		if !done[i] {
			results = append(results, &CheckResult{Index: i, Query: q, Error: fmt.Errorf("not checked: %w", reason)})
		}
	}

	slog.Warn("batch stopped early", "checked", checked, "total", len(queries), "reason", reason)
	return results
}

// ProcessFile reads queries from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath, policy string) ([]*CheckResult, error) {
	queries, err := ReadQueriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	return b.ProcessQueries(ctx, queries, policy), nil
}

// ReadQueriesFromFile reads one query per line.
// A line may end with a tab and true|false to label the expected verdict.
func ReadQueriesFromFile(filePath string) ([]Query, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var queries []Query
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		q, err := parseQueryLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if q.Text == "" {
			continue
		}

		// Deduplicate queries
		if !seen[q.Text] {
			seen[q.Text] = true
			queries = append(queries, q)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return queries, nil
}

func parseQueryLine(line string) (Query, error) {
	text, label, found := strings.Cut(line, "\t")
	if !found {
		return Query{Text: line}, nil
	}

	expected, err := strconv.ParseBool(strings.TrimSpace(label))
	if err != nil {
		return Query{}, fmt.Errorf("expected label %q is not true or false", label)
	}
	return Query{Text: strings.TrimSpace(text), Expected: &expected}, nil
}
