// Package grammar assigns syntactic roles to parsed tokens.
package grammar

import (
	"log/slog"
	"strings"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/policy"
)

// Classify tags every token with exactly one role and reports which roles
// the sentence contains. Rules are tried in order and the first match wins:
// root, subject, object, then plain text.
func Classify(tokens []model.Token, p policy.Policy) model.ClassificationResult {
	result := model.ClassificationResult{
		Tokens: make([]model.AnnotatedToken, 0, len(tokens)),
	}

	for _, tok := range tokens {
		role := RoleOf(tok, p)
		ann := model.AnnotatedToken{
			Text:  tok.TextWithWhitespace(),
			Class: role,
		}

		switch role {
		case model.RoleRoot:
			result.HasRoot = true
			ann.Label = string(tok.POS)
		case model.RoleSubject:
			result.HasSubject = true
			ann.Label = tok.Dep
		case model.RoleObject:
			result.HasObject = true
			ann.Label = tok.Dep
		}

		result.Tokens = append(result.Tokens, ann)
	}

	slog.Debug("classified sentence",
		"policy", p.Name,
		"tokens", len(tokens),
		"root", result.HasRoot,
		"subject", result.HasSubject,
		"object", result.HasObject,
	)

	return result
}

// RoleOf returns the role of a single token under the policy.
// It depends on nothing but the token itself.
func RoleOf(tok model.Token, p policy.Policy) model.Role {
	switch {
	case tok.Dep == model.DepRoot && p.AcceptsRoot(tok.POS):
		return model.RoleRoot
	case isSubjectLabel(tok.Dep) || p.SubjectByTag(tok.POS):
		return model.RoleSubject
	case isObjectLabel(tok.Dep):
		return model.RoleObject
	default:
		return model.RoleOther
	}
}

// isSubjectLabel matches nsubj, nsubjpass, csubj, csubjpass, nsubj:pass, ...
func isSubjectLabel(dep string) bool {
	return strings.Contains(dep, "subj")
}

// isObjectLabel matches dobj, pobj, iobj, obj, ...
func isObjectLabel(dep string) bool {
	return strings.Contains(dep, "obj")
}
