// Package query compiles CEL expressions into graph filters.
package query

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"github.com/DrSkyle/netscope/pkg/graph"
)

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func sharedEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Declarations(
				decls.NewVar("kind", decls.String),
				decls.NewVar("props", decls.NewMapType(decls.String, decls.Dyn)),
			),
			cel.CrossTypeNumericComparisons(true),
		)
		if envErr != nil {
			envErr = fmt.Errorf("failed to create CEL env: %w", envErr)
		}
	})
	return env, envErr
}

// Expr is a compiled boolean expression over a property map. The map is bound
// to props and its type property, if any, to kind:
//
//	kind == "person" && props.age >= 30
type Expr struct {
	source string
	prg    cel.Program
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Expr, error) {
	e, err := sharedEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter %q compilation error: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("filter %q must evaluate to a bool, got %s", expr, ast.OutputType())
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter %q program creation error: %w", expr, err)
	}
	return &Expr{source: expr, prg: prg}, nil
}

// MustCompile is Compile for expressions known at build time.
func MustCompile(expr string) *Expr {
	x, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return x
}

func (x *Expr) String() string { return x.source }

// Match implements graph.Filter. Evaluation errors, such as a missing key,
// count as no match.
func (x *Expr) Match(p graph.Properties) bool {
	kind, _ := p.Type()
	props := map[string]any(p)
	if props == nil {
		props = map[string]any{}
	}
	out, _, err := x.prg.Eval(map[string]any{"kind": kind, "props": props})
	if err != nil {
		slog.Debug("filter evaluation failed", "filter", x.source, "error", err)
		return false
	}
	ok, isBool := out.Value().(bool)
	return isBool && ok
}

var _ graph.Filter = (*Expr)(nil)
