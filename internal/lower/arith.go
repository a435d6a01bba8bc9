package lower

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/symbolic"
)

var arithOps = map[symbolic.Op]jpql.BinaryOp{
	symbolic.OpAdd: jpql.OpAdd,
	symbolic.OpSub: jpql.OpSub,
	symbolic.OpMul: jpql.OpMul,
	symbolic.OpDiv: jpql.OpDiv,
}

var compareOps = map[symbolic.Op]jpql.BinaryOp{
	symbolic.OpEq: jpql.OpEq,
	symbolic.OpNe: jpql.OpNe,
	symbolic.OpLt: jpql.OpLt,
	symbolic.OpLe: jpql.OpLe,
	symbolic.OpGt: jpql.OpGt,
	symbolic.OpGe: jpql.OpGe,
}

// arith lowers an arithmetic operation. Both operands are promoted to a
// common type and literal operands are re-typed so that they render in its
// form.
func (l *Lowerer) arith(b *symbolic.BinaryOp, ctx symbolic.Context) (jpql.Expression, error) {
	t, err := ir.Promote(b.Left.Type(), b.Right.Type())
	if err != nil {
		return nil, ir.NewTypeMismatch("%v", err).WithExpr(symbolic.Format(b))
	}
	if lit, ok := foldArith(b.Op, b.Left, b.Right, t); ok {
		return lit, nil
	}
	left, right, err := l.operands(b, t, ctx)
	if err != nil {
		return nil, err
	}
	if b.Op == symbolic.OpMod {
		return jpql.Func2("MOD", left, right), nil
	}
	return &jpql.Binary{Op: arithOps[b.Op], Left: left, Right: right}, nil
}

func (l *Lowerer) operands(b *symbolic.BinaryOp, t ir.Type, ctx symbolic.Context) (jpql.Expression, jpql.Expression, error) {
	sub := ctx.WithParent(b).ExpectingConditional(false)
	left, err := l.Lower(b.Left, sub)
	if err != nil {
		return nil, nil, err
	}
	right, err := l.Lower(b.Right, sub)
	if err != nil {
		return nil, nil, err
	}
	return retype(left, t), retype(right, t), nil
}

// compare lowers a comparison. Comparisons with null become null tests and
// a three-way compareTo result tested against zero becomes the direct
// comparison.
func (l *Lowerer) compare(b *symbolic.BinaryOp, ctx symbolic.Context) (jpql.Expression, error) {
	if call, ok := compareToCall(b.Left); ok && isZero(b.Right) {
		return l.compare(&symbolic.BinaryOp{Op: b.Op, Left: call.Receiver, Right: call.Args[0], T: ir.Bool}, ctx)
	}
	if call, ok := compareToCall(b.Right); ok && isZero(b.Left) {
		return l.compare(&symbolic.BinaryOp{Op: b.Op.Swap(), Left: call.Receiver, Right: call.Args[0], T: ir.Bool}, ctx)
	}

	leftNull, rightNull := symbolic.IsNull(b.Left), symbolic.IsNull(b.Right)
	switch {
	case leftNull && rightNull:
		return literalBool(b.Op == symbolic.OpEq || b.Op == symbolic.OpLe || b.Op == symbolic.OpGe), nil
	case leftNull:
		return l.nullTest(b, b.Right, ctx)
	case rightNull:
		return l.nullTest(b, b.Left, ctx)
	}

	if e, ok, err := l.boolLiteralTest(b, ctx); ok || err != nil {
		return e, err
	}

	lt, rt := b.Left.Type(), b.Right.Type()
	if !compatible(lt, rt) {
		return nil, ir.NewTypeMismatch("cannot compare %s with %s", lt, rt).WithExpr(symbolic.Format(b))
	}
	t := lt
	if lt.IsNumeric() && rt.IsNumeric() {
		t, _ = ir.Promote(lt, rt)
		if lit, ok := foldCompare(b.Op, b.Left, b.Right); ok {
			return lit, nil
		}
	}
	left, right, err := l.operands(b, t, ctx)
	if err != nil {
		return nil, err
	}
	return &jpql.Binary{Op: compareOps[b.Op], Left: left, Right: right}, nil
}

func (l *Lowerer) nullTest(b *symbolic.BinaryOp, v symbolic.Value, ctx symbolic.Context) (jpql.Expression, error) {
	var op jpql.UnaryOp
	switch b.Op {
	case symbolic.OpEq:
		op = jpql.OpIsNull
	case symbolic.OpNe:
		op = jpql.OpIsNotNull
	default:
		return nil, ir.NewTypeMismatch("ordering comparison with null").WithExpr(symbolic.Format(b))
	}
	e, err := l.Lower(v, ctx.WithParent(b).ExpectingConditional(false))
	if err != nil {
		return nil, err
	}
	return &jpql.Unary{Op: op, Operand: e}, nil
}

// boolLiteralTest handles a predicate compared with a boolean constant:
// p == true is p and p == false is NOT p. Plain boolean values keep the
// explicit comparison.
func (l *Lowerer) boolLiteralTest(b *symbolic.BinaryOp, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if b.Op != symbolic.OpEq && b.Op != symbolic.OpNe {
		return nil, false, nil
	}
	other, k := b.Left, b.Right
	want, ok := symbolic.BoolValue(k)
	if !ok {
		other, k = b.Right, b.Left
		if want, ok = symbolic.BoolValue(k); !ok {
			return nil, false, nil
		}
	}
	if !isPredicate(other) {
		return nil, false, nil
	}
	e, err := l.Lower(other, ctx.WithParent(b).ExpectingConditional(true))
	if err != nil {
		return nil, true, err
	}
	if want != (b.Op == symbolic.OpEq) {
		e = negate(e)
	}
	return e, true, nil
}

// isPredicate reports whether v is a condition rather than a boolean
// value read from a row or a parameter.
func isPredicate(v symbolic.Value) bool {
	switch n := v.(type) {
	case *symbolic.BinaryOp:
		return n.Op.IsComparison() || n.Op.IsLogical()
	case *symbolic.UnaryOp:
		return n.Op == symbolic.OpNot
	case *symbolic.MethodCall:
		return n.T == ir.Bool
	}
	return false
}

func compatible(a, b ir.Type) bool {
	switch {
	case a.Kind == b.Kind:
		return true
	case a.Kind == ir.KindObject || b.Kind == ir.KindObject:
		return true
	case a.IsNumeric() && b.IsNumeric():
		return true
	case a.IsStringLike() && b.IsStringLike():
		return true
	case a.IsTemporal() && b.IsTemporal():
		return true
	}
	return false
}

func (l *Lowerer) neg(u *symbolic.UnaryOp, ctx symbolic.Context) (jpql.Expression, error) {
	if !u.Operand.Type().IsNumeric() {
		return nil, ir.NewTypeMismatch("cannot negate %s", u.Operand.Type()).WithExpr(symbolic.Format(u))
	}
	if c, ok := u.Operand.(*symbolic.Constant); ok {
		switch v := c.Val.(type) {
		case int64:
			return &jpql.Literal{Value: -v, T: c.T}, nil
		case float64:
			return &jpql.Literal{Value: -v, T: c.T}, nil
		}
	}
	e, err := l.Lower(u.Operand, ctx.WithParent(u).ExpectingConditional(false))
	if err != nil {
		return nil, err
	}
	return &jpql.Unary{Op: jpql.OpNeg, Operand: e}, nil
}

// cast lowers a type change. The query language has no casts, so only
// changes that keep the value's meaning are accepted.
func (l *Lowerer) cast(c *symbolic.Cast, ctx symbolic.Context) (jpql.Expression, error) {
	from := c.Operand.Type()
	sub := ctx.WithParent(c)
	switch {
	case c.T.Kind == ir.KindCharSequence:
		if !ctx.AcceptsCharSequence {
			return nil, ir.NewTypeMismatch("a char sequence is not accepted here").WithExpr(symbolic.Format(c))
		}
		return l.lower(c.Operand, sub)
	case from == c.T, c.T.Kind == ir.KindObject, from.Kind == ir.KindObject:
		return l.lower(c.Operand, sub)
	case from.IsNumeric() && c.T.IsNumeric():
		e, err := l.lower(c.Operand, sub)
		if err != nil {
			return nil, err
		}
		return retype(e, c.T), nil
	case from.IsStringLike() && c.T.IsStringLike():
		return l.lower(c.Operand, sub)
	}
	return nil, ir.NewTypeMismatch("cannot convert %s to %s", from, c.T).WithExpr(symbolic.Format(c))
}

// retype gives a numeric literal the type t, so that an integer combined
// with a floating operand renders as 2.0.
func retype(e jpql.Expression, t ir.Type) jpql.Expression {
	lit, ok := e.(*jpql.Literal)
	if !ok || !t.IsNumeric() || lit.T == t {
		return e
	}
	switch v := lit.Value.(type) {
	case int64:
		if t.Kind == ir.KindInt {
			v = int64(int32(v))
		}
		return &jpql.Literal{Value: v, T: t}
	case float64:
		if t.IsIntegral() {
			return &jpql.Literal{Value: int64(v), T: t}
		}
		return &jpql.Literal{Value: v, T: t}
	}
	return e
}

// foldArith evaluates an operation on two fixed-width numeric constants.
// Division by zero is left to the engine.
func foldArith(op symbolic.Op, l, r symbolic.Value, t ir.Type) (*jpql.Literal, bool) {
	lc, ok := l.(*symbolic.Constant)
	if !ok {
		return nil, false
	}
	rc, ok := r.(*symbolic.Constant)
	if !ok {
		return nil, false
	}

	if t.IsIntegral() {
		a, ok1 := lc.Val.(int64)
		b, ok2 := rc.Val.(int64)
		if !ok1 || !ok2 {
			return nil, false
		}
		var n int64
		switch op {
		case symbolic.OpAdd:
			n = a + b
		case symbolic.OpSub:
			n = a - b
		case symbolic.OpMul:
			n = a * b
		case symbolic.OpDiv, symbolic.OpMod:
			if b == 0 {
				return nil, false
			}
			if op == symbolic.OpDiv {
				n = a / b
			} else {
				n = a % b
			}
		default:
			return nil, false
		}
		if t.Kind == ir.KindInt {
			n = int64(int32(n))
		}
		return &jpql.Literal{Value: n, T: t}, true
	}

	if t.IsFloating() {
		a, ok1 := asFloat(lc.Val)
		b, ok2 := asFloat(rc.Val)
		if !ok1 || !ok2 {
			return nil, false
		}
		var f float64
		switch op {
		case symbolic.OpAdd:
			f = a + b
		case symbolic.OpSub:
			f = a - b
		case symbolic.OpMul:
			f = a * b
		case symbolic.OpDiv:
			f = a / b
		case symbolic.OpMod:
			f = math.Mod(a, b)
		default:
			return nil, false
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		if t.Kind == ir.KindFloat {
			f = float64(float32(f))
		}
		return &jpql.Literal{Value: f, T: t}, true
	}
	return nil, false
}

func foldCompare(op symbolic.Op, l, r symbolic.Value) (*jpql.Literal, bool) {
	lc, ok := l.(*symbolic.Constant)
	if !ok {
		return nil, false
	}
	rc, ok := r.(*symbolic.Constant)
	if !ok {
		return nil, false
	}
	a, ok1 := asFloat(lc.Val)
	b, ok2 := asFloat(rc.Val)
	if !ok1 || !ok2 {
		return nil, false
	}
	var res bool
	switch op {
	case symbolic.OpEq:
		res = a == b
	case symbolic.OpNe:
		res = a != b
	case symbolic.OpLt:
		res = a < b
	case symbolic.OpLe:
		res = a <= b
	case symbolic.OpGt:
		res = a > b
	case symbolic.OpGe:
		res = a >= b
	}
	return literalBool(res), true
}

func literalBool(b bool) *jpql.Literal {
	if b {
		return jpql.True()
	}
	return jpql.False()
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isZero(v symbolic.Value) bool {
	n, ok := symbolic.IntValue(v)
	return ok && n == 0
}

func compareToCall(v symbolic.Value) (*symbolic.MethodCall, bool) {
	call, ok := v.(*symbolic.MethodCall)
	if !ok || call.Method != "compareTo" || call.Receiver == nil || len(call.Args) != 1 {
		return nil, false
	}
	return call, true
}

// constantText is the string conversion applied when a constant is
// concatenated.
func constantText(c *symbolic.Constant) (string, bool) {
	switch v := c.Val.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		bits := 64
		if c.T.Kind == ir.KindFloat {
			bits = 32
		}
		s := strconv.FormatFloat(v, 'f', -1, bits)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s, true
	case *apd.Decimal:
		return v.Text('f'), true
	case *apd.BigInt:
		return v.String(), true
	case symbolic.EnumConstant:
		return v.Name, true
	}
	return "", false
}
