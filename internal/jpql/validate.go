package jpql

import "fmt"

// ValidationResult contains the portability analysis of a query.
//
// The portable subset is what every JPQL provider accepts. Queries outside
// it are still generated but may fail on some engines.
type ValidationResult struct {
	// IsPortable is true when the query uses only portable constructs.
	IsPortable bool

	// Warnings lists the non-portable constructs found.
	Warnings []string
}

// Validate checks a query for constructs outside the portable subset:
//  1. function('NAME', ...) calls to engine-specific functions
//  2. MEMBER OF on collection paths
//  3. comparisons against a NULL literal, which are never true
//  4. sort keys that are literals or parameters
//
// Validate is a pure function with no side effects.
func Validate(q *SelectQuery) ValidationResult {
	v := &validator{warnings: []string{}}
	if q.Select != nil {
		v.validateExpr(q.Select)
	}
	if q.Where != nil {
		v.validateExpr(q.Where)
	}
	for _, o := range q.OrderBy {
		switch o.Expr.(type) {
		case *Literal, *Param:
			v.addWarning("ORDER BY a constant - not every engine accepts it")
		}
		v.validateExpr(o.Expr)
	}
	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateExpr(e Expression) {
	switch n := e.(type) {
	case *Binary:
		if n.Op == OpMemberOf {
			v.addWarning("MEMBER OF - collection membership is not supported by every engine")
		}
		if n.Op == OpEq || n.Op == OpNe {
			if isNullLiteral(n.Left) || isNullLiteral(n.Right) {
				v.addWarning("comparison with NULL using %s - use IS NULL", n.Op)
			}
		}
		v.validateExpr(n.Left)
		v.validateExpr(n.Right)
	case *Unary:
		v.validateExpr(n.Operand)
	case *FunctionCall:
		if n.Intrinsic {
			v.addWarning("function('%s') - engine-specific function", n.Name)
		}
		for _, a := range n.Args {
			v.validateExpr(a)
		}
	case *CaseWhen:
		for _, w := range n.Whens {
			v.validateExpr(w.Cond)
			v.validateExpr(w.Then)
		}
		if n.Else != nil {
			v.validateExpr(n.Else)
		}
	case *Tuple:
		for _, el := range n.Elems {
			v.validateExpr(el)
		}
	}
}

func isNullLiteral(e Expression) bool {
	l, ok := e.(*Literal)
	return ok && l.Value == nil
}
