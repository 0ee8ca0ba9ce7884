package model

import "time"

// QueryRecord is one checked query kept for analyst review
type QueryRecord struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Expected  *bool     `json:"expected,omitempty"` // Human-assigned label, nil when unlabeled
	Verdict   bool      `json:"verdict"`
	Policy    string    `json:"policy"`          // Level whose law produced Verdict
	Classify  string    `json:"classify_policy"` // Level used to tag roles, when it differs from Policy
	CreatedAt time.Time `json:"created_at"`
}

// TokenRecord is one token of a checked query, kept for audit
type TokenRecord struct {
	QueryID string `json:"query_id"`
	Query   string `json:"query"`
	Token   string `json:"token"`
	POS     POS    `json:"pos"`
	Dep     string `json:"dep"`
}

// AgreementReport summarizes how often verdicts matched expected labels
type AgreementReport struct {
	Total      int                        `json:"total"`      // All recorded queries
	Labeled    int                        `json:"labeled"`    // Queries with an expected label
	Agreements int                        `json:"agreements"` // Labeled queries where verdict == expected
	Overlap    float64                    `json:"overlap"`    // Agreements / Labeled * 100
	Confusion  Confusion                  `json:"confusion"`
	ByPolicy   map[string]AgreementReport `json:"by_policy,omitempty"`
}

// Confusion counts verdicts against expected labels (positive = valid)
type Confusion struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}
