package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/sentcheck/internal/model"
)

// WithOverrides returns a copy of the table with per-level overrides applied.
// Overrides can only target existing levels.
func (t *Table) WithOverrides(overrides map[string]model.PolicyOverride) (*Table, error) {
	if len(overrides) == 0 {
		return t, nil
	}

	policies := t.Policies()
	for name, ov := range overrides {
		idx := slices.Index(Levels, strings.ToLower(strings.TrimSpace(name)))
		if idx < 0 {
			return nil, fmt.Errorf("%w: override for unknown level %q", ErrInvalidPolicy, name)
		}

		p := policies[idx]
		if len(ov.RootTags) > 0 {
			tags, err := parseTags(ov.RootTags)
			if err != nil {
				return nil, fmt.Errorf("%s root_tags: %w", name, err)
			}
			p.RootTags = tags
		}
		if len(ov.SubjectTags) > 0 {
			tags, err := parseTags(ov.SubjectTags)
			if err != nil {
				return nil, fmt.Errorf("%s subject_tags: %w", name, err)
			}
			p.SubjectTags = tags
		}
		if len(ov.Require) > 0 {
			roles := make([]model.Role, 0, len(ov.Require))
			for _, s := range ov.Require {
				role, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(s)))
				if !ok {
					return nil, fmt.Errorf("%w: %s: unknown role %q", ErrInvalidPolicy, name, s)
				}
				roles = append(roles, role)
			}
			p.Require = roles
		}
		if ov.RequireArgument != nil {
			p.RequireArgument = *ov.RequireArgument
		}
		if ov.Expr != "" {
			p.Expr = ov.Expr
		}
		p.program = nil
		policies[idx] = p
	}

	return NewTable(t.Name+"+overrides", policies...)
}

func parseTags(in []string) ([]model.POS, error) {
	tags := make([]model.POS, 0, len(in))
	for _, s := range in {
		tag, ok := model.ParsePOS(s)
		if !ok {
			return nil, fmt.Errorf("%w: unknown part-of-speech tag %q", ErrInvalidPolicy, s)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
