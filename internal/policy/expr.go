package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/ppiankov/sentcheck/internal/model"
)

// compileExpr compiles a boolean CEL expression over the role flags
func compileExpr(expression string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("root", cel.BoolType),
		cel.Variable("subject", cel.BoolType),
		cel.Variable("object", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile CEL expression: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create CEL program: %w", err)
	}

	// Reject non-boolean expressions up front
	if _, err := evalExpr(prg, model.ClassificationResult{}); err != nil {
		return nil, err
	}

	return prg, nil
}

func evalExpr(prg cel.Program, r model.ClassificationResult) (bool, error) {
	out, _, err := prg.Eval(map[string]any{
		"root":    r.HasRoot,
		"subject": r.HasSubject,
		"object":  r.HasObject,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate CEL expression: %w", err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression must yield bool, got %T", out.Value())
	}
	return v, nil
}
