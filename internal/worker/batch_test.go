package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/record"
)

// MockChecker implements Checker
type MockChecker struct {
	ShouldError bool
	calls       atomic.Int32
}

func (m *MockChecker) Check(ctx context.Context, req check.Request) (*check.Result, error) {
	m.calls.Add(1)
	time.Sleep(5 * time.Millisecond) // Simulate parser latency
	if m.ShouldError {
		return nil, errors.New("check error")
	}
	return &check.Result{
		Query:          req.Text,
		Policy:         req.Policy,
		ValidityPolicy: req.Policy,
		Tokens:         []model.Token{{Text: req.Text, POS: model.POSVerb, Dep: model.DepRoot}},
		Valid:          len(req.Text)%2 == 0,
		Expected:       req.Expected,
	}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessQueries(t *testing.T) {
	checker := &MockChecker{}
	processor := NewBatchProcessor(checker, 3, nil)

	queries := []Query{{Text: "a"}, {Text: "bb"}, {Text: "ccc"}, {Text: "dddd"}, {Text: "eeeee"}}
	results := processor.ProcessQueries(context.Background(), queries, "lenient")

	if len(results) != len(queries) {
		t.Fatalf("expected %d results, got %d", len(queries), len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Query.Text, res.Error)
		}
		if res.Index != i || res.Query.Text != queries[i].Text {
			t.Errorf("expected input order at %d, got index %d (%q)", i, res.Index, res.Query.Text)
		}
		if res.Result.Policy != "lenient" {
			t.Errorf("expected policy lenient, got %s", res.Result.Policy)
		}
		if res.Recorded {
			t.Error("nothing should be recorded without a store")
		}
	}
}

func TestBatchProcessor_ProcessQueries_Records(t *testing.T) {
	store := record.NewMemoryStore()
	processor := NewBatchProcessor(&MockChecker{}, 4, store)

	expected := true
	queries := make([]Query, 40)
	for i := range queries {
		queries[i] = Query{Text: string(rune('A'+i%26)) + string(rune('a'+i)), Expected: &expected}
	}

	results := processor.ProcessQueries(context.Background(), queries, "strict")

	recorded := 0
	for _, res := range results {
		if res.Recorded {
			recorded++
		}
	}
	if recorded != len(queries) {
		t.Errorf("expected %d recorded, got %d", len(queries), recorded)
	}

	stored, _ := store.Queries(context.Background())
	if len(stored) != len(queries) {
		t.Errorf("expected %d stored queries, got %d", len(queries), len(stored))
	}
	tokens, _ := store.Tokens(context.Background())
	if len(tokens) != len(queries) {
		t.Errorf("expected %d stored tokens, got %d", len(queries), len(tokens))
	}
}

func TestBatchProcessor_ProcessQueries_Error(t *testing.T) {
	store := record.NewMemoryStore()
	processor := NewBatchProcessor(&MockChecker{ShouldError: true}, 2, store)

	results := processor.ProcessQueries(context.Background(), []Query{{Text: "She sleeps"}}, "")

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Result != nil {
		t.Error("expected nil result on error")
	}

	stored, _ := store.Queries(context.Background())
	if len(stored) != 0 {
		t.Errorf("failed checks must not be recorded, got %d", len(stored))
	}
}

func TestBatchProcessor_ProcessQueries_Deadline(t *testing.T) {
	store := record.NewMemoryStore()
	processor := NewBatchProcessor(&MockChecker{}, 2, store)

	queries := make([]Query, 100)
	for i := range queries {
		queries[i] = Query{Text: fmt.Sprintf("sentence %d", i)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := processor.ProcessQueries(ctx, queries, "lenient")

	if len(results) != len(queries) {
		t.Fatalf("expected a result for all %d queries, got %d", len(queries), len(results))
	}

	failed := 0
	for i, res := range results {
		if res.Index != i || res.Query.Text != queries[i].Text {
			t.Errorf("expected input order at %d, got index %d (%q)", i, res.Index, res.Query.Text)
		}
		if res.Error != nil {
			failed++
			if !errors.Is(res.Error, context.DeadlineExceeded) {
				t.Errorf("expected deadline error for %q, got %v", res.Query.Text, res.Error)
			}
		}
	}
	if failed == 0 {
		t.Error("expected unchecked queries to be reported as failures")
	}

	stored, _ := store.Queries(context.Background())
	if len(stored)+failed != len(queries) {
		t.Errorf("expected stored (%d) + failed (%d) to cover %d queries", len(stored), failed, len(queries))
	}
}

func TestBatchProcessor_ProcessQueries_Empty(t *testing.T) {
	checker := &MockChecker{}
	processor := NewBatchProcessor(checker, 2, nil)

	results := processor.ProcessQueries(context.Background(), []Query{}, "lenient")
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
	if checker.calls.Load() != 0 {
		t.Errorf("expected no checks, got %d", checker.calls.Load())
	}
}

func TestReadQueriesFromFile(t *testing.T) {
	content := "She sleeps\n# comment\nEat apples\tfalse\n   \nThe big dog\tTRUE   \nShe sleeps\n"

	queries, err := ReadQueriesFromFile(writeTemp(t, content))
	if err != nil {
		t.Fatalf("ReadQueriesFromFile failed: %v", err)
	}

	if len(queries) != 3 {
		t.Fatalf("expected 3 queries after deduplication, got %d", len(queries))
	}

	if queries[0].Text != "She sleeps" || queries[0].Expected != nil {
		t.Errorf("unexpected first query: %+v", queries[0])
	}
	if queries[1].Text != "Eat apples" || queries[1].Expected == nil || *queries[1].Expected {
		t.Errorf("expected Eat apples labeled false, got %+v", queries[1])
	}
	if queries[2].Text != "The big dog" || queries[2].Expected == nil || !*queries[2].Expected {
		t.Errorf("expected The big dog labeled true, got %+v", queries[2])
	}
}

func TestReadQueriesFromFile_BadLabel(t *testing.T) {
	_, err := ReadQueriesFromFile(writeTemp(t, "She sleeps\tmaybe\n"))
	if err == nil {
		t.Error("expected error for bad label, got nil")
	}
}

func TestReadQueriesFromFile_NonExistent(t *testing.T) {
	_, err := ReadQueriesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestCheckResult_GetError(t *testing.T) {
	r1 := &CheckResult{Query: Query{Text: "a"}}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("check failed")
	r2 := &CheckResult{Query: Query{Text: "a"}, Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "She sleeps\nEat apples\n# comment\n\nThe big dog\n")

	processor := NewBatchProcessor(&MockChecker{}, 2, nil)
	results, err := processor.ProcessFile(context.Background(), path, "balanced")
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{}, 2, nil)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt", "")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
