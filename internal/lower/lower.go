package lower

import (
	"slices"

	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// Lowerer lowers the symbolic values of one clause.
type Lowerer struct {
	Options config.Options

	// Source is the entity the query ranges over. The row argument of a
	// closure lowers to a path on it.
	Source *jpql.Source

	// Clause numbers the closure the values come from; it is recorded on
	// every parameter so the caller can bind captured values.
	Clause int

	// Row, when set, replaces the row argument. After a select the row seen
	// by later clauses is the selected expression, and sharing the node
	// lets a parameter inside it keep a single ordinal.
	Row jpql.Expression
}

// New returns a Lowerer for clause 0 of a query over src.
func New(opts config.Options, src *jpql.Source) *Lowerer {
	return &Lowerer{Options: opts, Source: src}
}

// Condition lowers v as a filter condition.
func (l *Lowerer) Condition(v symbolic.Value) (jpql.Expression, error) {
	return l.Lower(v, symbolic.With(nil, true))
}

// Value lowers v as a selected or ordering value.
func (l *Lowerer) Value(v symbolic.Value) (jpql.Expression, error) {
	return l.Lower(v, symbolic.With(nil, false))
}

// Lower lowers v in the position described by ctx. In a boolean context
// the result is always a predicate; otherwise it is never one.
func (l *Lowerer) Lower(v symbolic.Value, ctx symbolic.Context) (jpql.Expression, error) {
	e, err := l.lower(v, ctx)
	if err != nil {
		return nil, err
	}
	if ctx.ExpectingBoolean {
		return asPredicate(v, e)
	}
	return asValue(e), nil
}

// asPredicate turns a boolean value into a predicate: a boolean path or
// parameter is compared with TRUE.
func asPredicate(v symbolic.Value, e jpql.Expression) (jpql.Expression, error) {
	if jpql.IsPredicate(e) {
		return e, nil
	}
	if lit, ok := e.(*jpql.Literal); ok {
		if b, ok := lit.Value.(bool); ok {
			return constantPredicate(b), nil
		}
	}
	switch v.Type().Kind {
	case ir.KindBool, ir.KindObject:
		return &jpql.Binary{Op: jpql.OpEq, Left: e, Right: jpql.True()}, nil
	}
	return nil, ir.NewTypeMismatch("%s value used as a condition", v.Type()).WithExpr(symbolic.Format(v))
}

// constantPredicate spells a constant condition as a comparison, since a
// bare TRUE is not a valid conditional expression everywhere.
func constantPredicate(b bool) jpql.Expression {
	right := int64(0)
	if b {
		right = 1
	}
	return &jpql.Binary{
		Op:    jpql.OpEq,
		Left:  &jpql.Literal{Value: int64(1), T: ir.Int},
		Right: &jpql.Literal{Value: right, T: ir.Int},
	}
}

// asValue wraps a predicate used as a value in CASE WHEN p THEN 1 ELSE 0
// END.
func asValue(e jpql.Expression) jpql.Expression {
	if !jpql.IsPredicate(e) {
		return e
	}
	return &jpql.CaseWhen{
		Whens: []jpql.When{{Cond: e, Then: &jpql.Literal{Value: int64(1), T: ir.Int}}},
		Else:  &jpql.Literal{Value: int64(0), T: ir.Int},
	}
}

// lower dispatches on the node kind. Children are lowered through Lower
// with their own context.
func (l *Lowerer) lower(v symbolic.Value, ctx symbolic.Context) (jpql.Expression, error) {
	switch n := v.(type) {
	case *symbolic.Constant:
		return literal(n), nil
	case *symbolic.ParamRef:
		return &jpql.Param{Clause: l.Clause, Slot: n.Slot, T: n.T}, nil
	case *symbolic.Arg:
		return l.row(n)
	case *symbolic.FieldAccess:
		return l.field(n, ctx)
	case *symbolic.BinaryOp:
		switch {
		case n.Op.IsArithmetic():
			return l.arith(n, ctx)
		case n.Op.IsComparison():
			return l.compare(n, ctx)
		case n.Op.IsLogical():
			return l.logical(n, ctx)
		}
		return nil, ir.NewUnsupportedOperation("operator %s", n.Op).WithExpr(symbolic.Format(v))
	case *symbolic.UnaryOp:
		if n.Op == symbolic.OpNot {
			inner, err := l.Lower(n.Operand, ctx.WithParent(n).ExpectingConditional(true))
			if err != nil {
				return nil, err
			}
			return negate(inner), nil
		}
		return l.neg(n, ctx)
	case *symbolic.Cast:
		return l.cast(n, ctx)
	case *symbolic.Tuple:
		elems := make([]jpql.Expression, len(n.Elems))
		for i, el := range n.Elems {
			e, err := l.Lower(el, ctx.WithParent(n).ExpectingConditional(false))
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return &jpql.Tuple{Elems: elems}, nil
	case *symbolic.Conditional:
		return l.conditional(n, ctx)
	case *symbolic.StringConcat:
		return l.concat(n, ctx)
	case *symbolic.MethodCall:
		return l.call(n, ctx)
	}
	return nil, ir.NewUnsupportedOperation("cannot lower %T", v)
}

func literal(c *symbolic.Constant) *jpql.Literal {
	if ec, ok := c.Val.(symbolic.EnumConstant); ok {
		return &jpql.Literal{Value: jpql.EnumValue{Type: ec.Type, Name: ec.Name}, T: c.T}
	}
	return &jpql.Literal{Value: c.Val, T: c.T}
}

func (l *Lowerer) row(a *symbolic.Arg) (jpql.Expression, error) {
	if a.Index != 0 {
		return nil, ir.NewUnsupportedOperation("closure argument %d is not the query row", a.Index).WithExpr(symbolic.Format(a))
	}
	if l.Row != nil {
		return l.Row, nil
	}
	if l.Source == nil {
		return nil, ir.NewUnsupportedOperation("no query source for the row argument")
	}
	return jpql.NewPath(l.Source), nil
}

func (l *Lowerer) field(f *symbolic.FieldAccess, ctx symbolic.Context) (jpql.Expression, error) {
	base, err := l.Lower(f.Base, ctx.WithParent(f).ExpectingConditional(false))
	if err != nil {
		return nil, err
	}
	p, ok := base.(*jpql.Path)
	if !ok {
		return nil, ir.NewUnsupportedOperation("field %s read from a computed value", f.Field).WithExpr(symbolic.Format(f))
	}
	return &jpql.Path{Source: p.Source, Fields: append(slices.Clone(p.Fields), f.Field)}, nil
}

func (l *Lowerer) logical(b *symbolic.BinaryOp, ctx symbolic.Context) (jpql.Expression, error) {
	sub := ctx.WithParent(b).ExpectingConditional(true)
	left, err := l.Lower(b.Left, sub)
	if err != nil {
		return nil, err
	}
	right, err := l.Lower(b.Right, sub)
	if err != nil {
		return nil, err
	}
	op := jpql.OpAnd
	if b.Op == symbolic.OpOr {
		op = jpql.OpOr
	}
	return &jpql.Binary{Op: op, Left: left, Right: right}, nil
}

// negate returns the complement of a predicate. Comparisons are inverted
// unless they test a boolean literal, which reads better under NOT.
func negate(e jpql.Expression) jpql.Expression {
	switch n := e.(type) {
	case *jpql.Binary:
		if n.Op.IsComparison() && !jpql.IsBoolLiteral(n.Left) && !jpql.IsBoolLiteral(n.Right) {
			if inv, ok := n.Op.Invert(); ok {
				return &jpql.Binary{Op: inv, Left: n.Left, Right: n.Right}
			}
		}
	case *jpql.Unary:
		switch n.Op {
		case jpql.OpNot:
			return n.Operand
		case jpql.OpIsNull:
			return &jpql.Unary{Op: jpql.OpIsNotNull, Operand: n.Operand}
		case jpql.OpIsNotNull:
			return &jpql.Unary{Op: jpql.OpIsNull, Operand: n.Operand}
		}
	}
	return &jpql.Unary{Op: jpql.OpNot, Operand: e}
}

// conditional lowers a merge of branch values. As a condition it becomes
// (c AND t) OR (NOT c AND e); as a value a CASE with one WHEN per nested
// conditional.
func (l *Lowerer) conditional(c *symbolic.Conditional, ctx symbolic.Context) (jpql.Expression, error) {
	if ctx.ExpectingBoolean && c.T == ir.Bool {
		v := symbolic.Or(
			symbolic.And(c.Cond, c.Then),
			symbolic.And(symbolic.Negate(c.Cond), c.Else))
		return l.Lower(v, ctx)
	}

	out := &jpql.CaseWhen{}
	var cur symbolic.Value = c
	for {
		next, ok := cur.(*symbolic.Conditional)
		if !ok {
			break
		}
		cond, err := l.Lower(next.Cond, ctx.WithParent(next).ExpectingConditional(true))
		if err != nil {
			return nil, err
		}
		then, err := l.Lower(next.Then, ctx.WithParent(next).ExpectingConditional(false))
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, jpql.When{Cond: cond, Then: retype(then, c.T)})
		cur = next.Else
	}
	els, err := l.Lower(cur, ctx.WithParent(c).ExpectingConditional(false))
	if err != nil {
		return nil, err
	}
	out.Else = retype(els, c.T)
	return out, nil
}

// concat replays a concatenation recipe as one CONCAT call. Constant
// arguments are folded into the surrounding text.
func (l *Lowerer) concat(s *symbolic.StringConcat, ctx symbolic.Context) (jpql.Expression, error) {
	var parts []jpql.Expression
	text := ""
	pending := false
	flush := func() {
		if pending {
			parts = append(parts, &jpql.Literal{Value: text, T: ir.String})
		}
		text, pending = "", false
	}

	for _, p := range s.Pieces() {
		if p.Arg == nil {
			text += p.Text
			pending = true
			continue
		}
		if c, ok := p.Arg.(*symbolic.Constant); ok && c.Val != nil {
			if str, ok := constantText(c); ok {
				text += str
				pending = true
				continue
			}
		}
		t := p.Arg.Type()
		if !t.IsStringLike() && t.Kind != ir.KindObject {
			return nil, ir.NewTypeMismatch("cannot concatenate a %s", t).WithExpr(symbolic.Format(p.Arg))
		}
		e, err := l.Lower(p.Arg, ctx.WithParent(s).ExpectingConditional(false).AcceptingCharSequence())
		if err != nil {
			return nil, err
		}
		flush()
		parts = append(parts, e)
	}
	flush()

	switch len(parts) {
	case 0:
		return &jpql.Literal{Value: "", T: ir.String}, nil
	case 1:
		return parts[0], nil
	}
	return &jpql.FunctionCall{Name: "CONCAT", Args: parts}, nil
}
