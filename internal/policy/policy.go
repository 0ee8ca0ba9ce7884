package policy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/ppiankov/sentcheck/internal/model"
)

// ErrInvalidPolicy is returned for unknown strictness levels and invalid policy definitions
var ErrInvalidPolicy = errors.New("invalid policy")

// Strictness level names
const (
	Lenient  = "lenient"
	Balanced = "balanced"
	Strict   = "strict"
)

// Levels lists the strictness levels from most to least permissive
var Levels = []string{Lenient, Balanced, Strict}

// Policy parameterizes both the classifier (which tags may head a sentence)
// and the validity rule (which roles must be present).
type Policy struct {
	Name            string       `json:"name" yaml:"name"`
	RootTags        []model.POS  `json:"root_tags" yaml:"root_tags"`
	SubjectTags     []model.POS  `json:"subject_tags,omitempty" yaml:"subject_tags,omitempty"`
	Require         []model.Role `json:"require" yaml:"require"`
	RequireArgument bool         `json:"require_argument" yaml:"require_argument"` // subject OR object
	Expr            string       `json:"expr,omitempty" yaml:"expr,omitempty"`

	program cel.Program
}

// AcceptsRoot reports whether a ROOT token with this tag counts as a root
func (p Policy) AcceptsRoot(pos model.POS) bool {
	return slices.Contains(p.RootTags, pos)
}

// SubjectByTag reports whether the tag alone marks a subject
func (p Policy) SubjectByTag(pos model.POS) bool {
	return slices.Contains(p.SubjectTags, pos)
}

// Law describes the validity law in a human-readable form
func (p Policy) Law() string {
	if p.Expr != "" {
		return p.Expr
	}
	var parts []string
	for _, r := range p.Require {
		parts = append(parts, string(r))
	}
	if p.RequireArgument {
		parts = append(parts, "(subject || object)")
	}
	return strings.Join(parts, " && ")
}

func (p Policy) check() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPolicy)
	}
	if len(p.RootTags) == 0 {
		return fmt.Errorf("%w: %s: no root tags", ErrInvalidPolicy, p.Name)
	}
	for _, tag := range append(slices.Clone(p.RootTags), p.SubjectTags...) {
		if !tag.Valid() {
			return fmt.Errorf("%w: %s: unknown part-of-speech tag %q", ErrInvalidPolicy, p.Name, tag)
		}
	}
	for _, r := range p.Require {
		if _, ok := model.ParseRole(string(r)); !ok {
			return fmt.Errorf("%w: %s: unknown role %q", ErrInvalidPolicy, p.Name, r)
		}
	}
	if p.Expr == "" && len(p.Require) == 0 && !p.RequireArgument {
		return fmt.Errorf("%w: %s: no required roles", ErrInvalidPolicy, p.Name)
	}
	return nil
}

// Table is one complete set of strictness levels
type Table struct {
	Name   string
	levels map[string]Policy
}

// NewTable builds a table from policies, compiling any expressions.
// Every level in Levels must be present.
func NewTable(name string, policies ...Policy) (*Table, error) {
	t := &Table{Name: name, levels: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if err := p.check(); err != nil {
			return nil, err
		}
		if p.Expr != "" {
			prg, err := compileExpr(p.Expr)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, p.Name, err)
			}
			p.program = prg
		}
		t.levels[p.Name] = p
	}
	for _, level := range Levels {
		if _, ok := t.levels[level]; !ok {
			return nil, fmt.Errorf("%w: table %s is missing level %s", ErrInvalidPolicy, name, level)
		}
	}
	return t, nil
}

// Lookup returns the policy for a named level
func (t *Table) Lookup(name string) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := t.levels[key]
	if !ok {
		return Policy{}, fmt.Errorf("%w: unknown strictness level %q (supported: %s)", ErrInvalidPolicy, name, strings.Join(Levels, ", "))
	}
	return p, nil
}

// Policies returns the table's levels in Levels order
func (t *Table) Policies() []Policy {
	out := make([]Policy, 0, len(Levels))
	for _, level := range Levels {
		out = append(out, t.levels[level])
	}
	return out
}

var broadRoots = []model.POS{model.POSVerb, model.POSNoun, model.POSAdj, model.POSPron, model.POSPropn}

// Canonical returns the default table: broadened root acceptance for
// lenient and balanced, verbs only for strict, label-based subjects.
func Canonical() *Table {
	t, err := NewTable("canonical",
		Policy{
			Name:            Lenient,
			RootTags:        broadRoots,
			Require:         []model.Role{model.RoleRoot},
			RequireArgument: true,
		},
		Policy{
			Name:     Balanced,
			RootTags: broadRoots,
			Require:  []model.Role{model.RoleSubject, model.RoleRoot},
		},
		Policy{
			Name:     Strict,
			RootTags: []model.POS{model.POSVerb},
			Require:  []model.Role{model.RoleSubject, model.RoleRoot, model.RoleObject},
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Narrow returns the earlier rule-set that only accepts verbal roots
func Narrow() *Table {
	t, err := NewTable("narrow",
		Policy{
			Name:            Lenient,
			RootTags:        []model.POS{model.POSVerb, model.POSAux},
			Require:         []model.Role{model.RoleRoot},
			RequireArgument: true,
		},
		Policy{
			Name:     Balanced,
			RootTags: []model.POS{model.POSVerb},
			Require:  []model.Role{model.RoleSubject, model.RoleRoot},
		},
		Policy{
			Name:     Strict,
			RootTags: []model.POS{model.POSVerb},
			Require:  []model.Role{model.RoleSubject, model.RoleRoot, model.RoleObject},
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// TableByName returns a built-in table
func TableByName(name string) (*Table, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "canonical":
		return Canonical(), nil
	case "narrow":
		return Narrow(), nil
	default:
		return nil, fmt.Errorf("%w: unknown rule-set %q (supported: canonical, narrow)", ErrInvalidPolicy, name)
	}
}

// Lookup returns a level from the canonical table
func Lookup(name string) (Policy, error) {
	return Canonical().Lookup(name)
}
