package policy

import (
	"log/slog"

	"github.com/ppiankov/sentcheck/internal/model"
)

// Validate combines the role flags under the policy's law.
//
// The policy passed here selects the combination law only; which tags
// counted as a root was decided when the result was classified.
func Validate(r model.ClassificationResult, p Policy) bool {
	if p.program != nil {
		ok, err := evalExpr(p.program, r)
		if err != nil {
			slog.Warn("policy expression failed", "policy", p.Name, "error", err)
			return false
		}
		return ok
	}

	for _, role := range p.Require {
		if !r.Has(role) {
			return false
		}
	}
	if p.RequireArgument && !r.HasSubject && !r.HasObject {
		return false
	}
	return true
}

// IsValid validates a result under a named level of the canonical table
func IsValid(r model.ClassificationResult, level string) (bool, error) {
	p, err := Lookup(level)
	if err != nil {
		return false, err
	}
	return Validate(r, p), nil
}
