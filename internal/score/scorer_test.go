package score

import (
	"testing"

	"github.com/ppiankov/sentcheck/internal/model"
)

func labeled(query, policy string, verdict bool, expected *bool) model.QueryRecord {
	return model.QueryRecord{Query: query, Policy: policy, Verdict: verdict, Expected: expected}
}

func boolPtr(b bool) *bool { return &b }

func TestScorer_Calculate_Confusion(t *testing.T) {
	scorer := NewScorer()

	queries := []model.QueryRecord{
		labeled("a", "lenient", true, boolPtr(true)),   // TP
		labeled("b", "lenient", true, boolPtr(false)),  // FP
		labeled("c", "lenient", false, boolPtr(false)), // TN
		labeled("d", "lenient", false, boolPtr(true)),  // FN
		labeled("e", "lenient", true, boolPtr(true)),   // TP
		labeled("f", "lenient", true, nil),             // unlabeled
	}

	report := scorer.Calculate(queries)

	if report.Total != 6 {
		t.Errorf("Expected total 6, got %d", report.Total)
	}
	if report.Labeled != 5 {
		t.Errorf("Expected 5 labeled, got %d", report.Labeled)
	}
	if report.Agreements != 3 {
		t.Errorf("Expected 3 agreements, got %d", report.Agreements)
	}
	if report.Overlap != 60 {
		t.Errorf("Expected overlap 60, got %v", report.Overlap)
	}

	want := model.Confusion{TruePositive: 2, FalsePositive: 1, TrueNegative: 1, FalseNegative: 1}
	if report.Confusion != want {
		t.Errorf("Expected confusion %+v, got %+v", want, report.Confusion)
	}
	if report.ByPolicy != nil {
		t.Errorf("Expected no breakdown for a single policy, got %v", report.ByPolicy)
	}
}

func TestScorer_Calculate_NoLabels(t *testing.T) {
	report := NewScorer().Calculate([]model.QueryRecord{
		labeled("a", "strict", true, nil),
	})

	if report.Labeled != 0 || report.Overlap != 0 {
		t.Errorf("Expected zero overlap without labels, got %+v", report)
	}
}

func TestScorer_Calculate_Empty(t *testing.T) {
	report := NewScorer().Calculate(nil)
	if report.Total != 0 || report.Overlap != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
}

func TestScorer_Calculate_Rounding(t *testing.T) {
	report := NewScorer().Calculate([]model.QueryRecord{
		labeled("a", "lenient", true, boolPtr(true)),
		labeled("b", "lenient", true, boolPtr(false)),
		labeled("c", "lenient", true, boolPtr(false)),
	})

	if report.Overlap != 33.33 {
		t.Errorf("Expected overlap 33.33, got %v", report.Overlap)
	}
}

func TestScorer_Calculate_ByPolicy(t *testing.T) {
	report := NewScorer().Calculate([]model.QueryRecord{
		labeled("a", "lenient", true, boolPtr(true)),
		labeled("a", "strict", false, boolPtr(true)),
		labeled("b", "strict", false, boolPtr(false)),
	})

	if len(report.ByPolicy) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(report.ByPolicy))
	}

	names := Policies(report)
	if names[0] != "lenient" || names[1] != "strict" {
		t.Errorf("Expected sorted policy names, got %v", names)
	}

	if got := report.ByPolicy["lenient"].Overlap; got != 100 {
		t.Errorf("Expected lenient overlap 100, got %v", got)
	}
	if got := report.ByPolicy["strict"].Overlap; got != 50 {
		t.Errorf("Expected strict overlap 50, got %v", got)
	}
	if report.Overlap != 66.67 {
		t.Errorf("Expected total overlap 66.67, got %v", report.Overlap)
	}
}
