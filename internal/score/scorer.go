// Package score measures how well heuristic verdicts agree with human labels.
package score

import (
	"math"
	"sort"

	"github.com/ppiankov/sentcheck/internal/model"
)

// Scorer builds agreement reports over recorded queries
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate compares every labeled query's verdict with its expected label.
// Unlabeled queries count toward Total only.
func (s *Scorer) Calculate(queries []model.QueryRecord) model.AgreementReport {
	report := s.tally(queries)

	// Per-policy breakdown only when more than one policy was used
	byPolicy := make(map[string][]model.QueryRecord)
	for _, q := range queries {
		byPolicy[q.Policy] = append(byPolicy[q.Policy], q)
	}
	if len(byPolicy) > 1 {
		report.ByPolicy = make(map[string]model.AgreementReport, len(byPolicy))
		for name, qs := range byPolicy {
			report.ByPolicy[name] = s.tally(qs)
		}
	}

	return report
}

func (s *Scorer) tally(queries []model.QueryRecord) model.AgreementReport {
	report := model.AgreementReport{Total: len(queries)}

	for _, q := range queries {
		if q.Expected == nil {
			continue
		}
		report.Labeled++

		expected := *q.Expected
		switch {
		case q.Verdict && expected:
			report.Confusion.TruePositive++
		case q.Verdict && !expected:
			report.Confusion.FalsePositive++
		case !q.Verdict && !expected:
			report.Confusion.TrueNegative++
		default:
			report.Confusion.FalseNegative++
		}
	}

	report.Agreements = report.Confusion.TruePositive + report.Confusion.TrueNegative
	report.Overlap = overlap(report.Agreements, report.Labeled)
	return report
}

// overlap returns agreements as a percentage rounded to two decimals
func overlap(agreements, labeled int) float64 {
	if labeled == 0 {
		return 0
	}
	pct := float64(agreements) / float64(labeled) * 100
	return math.Round(pct*100) / 100
}

// Policies returns the policy names of a report's breakdown in sorted order
func Policies(report model.AgreementReport) []string {
	names := make([]string, 0, len(report.ByPolicy))
	for name := range report.ByPolicy {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
