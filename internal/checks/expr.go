package checks

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"ciphercourt/internal/record"
)

var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.StringType)),
	)
})

// ExprRule is a CEL predicate over a record's fields, bound as the map "row".
// Fields a record may lack should be guarded with has(row.field).
type ExprRule struct {
	Name    string
	Expr    string
	Message string
	prg     cel.Program
}

// CompileExpr compiles a rule once so it can be evaluated against many records.
func CompileExpr(name, expr, message string) (*ExprRule, error) {
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile rule %s: %w", name, issues.Err())
	}
	prg, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program rule %s: %w", name, err)
	}
	return &ExprRule{Name: name, Expr: expr, Message: message, prg: prg}, nil
}

// Eval reports whether rec satisfies the rule.
func (r *ExprRule) Eval(rec record.Record) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{"row": rec.Fields()})
	if err != nil {
		return false, fmt.Errorf("eval rule %s: %w", r.Name, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("rule %s: result is %T, not bool", r.Name, out.Value())
	}
	return ok, nil
}
