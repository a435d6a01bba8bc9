package lower

import (
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// methodFunc lowers one recognised method. ok is false when the call does
// not match after all, for example because of its argument count.
type methodFunc func(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (e jpql.Expression, ok bool, err error)

// The method tables are filled in init: their entries lower their
// operands through Lower, which consults the tables again.
var (
	// stringMethods apply to string and char sequence receivers.
	stringMethods map[string]methodFunc

	// temporalMethods apply to date, time, timestamp and calendar receivers.
	temporalMethods map[string]methodFunc

	// decimalMethods apply to BigDecimal and BigInteger receivers.
	decimalMethods map[string]methodFunc

	// staticMethods are keyed by owner and method name.
	staticMethods map[string]methodFunc
)

func init() {
	stringMethods = map[string]methodFunc{
		"length":      unaryFunc("LENGTH"),
		"toUpperCase": unaryFunc("UPPER"),
		"toLowerCase": unaryFunc("LOWER"),
		"trim":        unaryFunc("TRIM"),
		"concat":      stringConcat,
		"isEmpty":     stringIsEmpty,
		"substring":   stringSubstring,
		"contains":    stringContains,
		"startsWith":  stringStartsWith,
		"endsWith":    stringEndsWith,
		"indexOf":     stringIndexOf,
	}
	temporalMethods = map[string]methodFunc{
		"before": temporalCompare(symbolic.OpLt),
		"after":  temporalCompare(symbolic.OpGt),
	}
	decimalMethods = map[string]methodFunc{
		"add":         decimalArith(symbolic.OpAdd),
		"subtract":    decimalArith(symbolic.OpSub),
		"multiply":    decimalArith(symbolic.OpMul),
		"divide":      decimalArith(symbolic.OpDiv),
		"negate":      decimalNegate,
		"abs":         unaryFunc("ABS"),
		"doubleValue": convertReceiver,
		"floatValue":  convertReceiver,
		"longValue":   convertReceiver,
		"intValue":    convertReceiver,
	}
	staticMethods = map[string]methodFunc{
		"Math.abs":           staticFunc("ABS"),
		"Math.sqrt":          staticFunc("SQRT"),
		"BigDecimal.valueOf": convertArg,
		"BigInteger.valueOf": convertArg,
	}
}

var tupleGetters = map[string]int{
	"getOne": 0, "getTwo": 1, "getThree": 2, "getFour": 3, "getFive": 4,
}

// call lowers a method call the interpreter kept. Recognised library
// methods map to operators and functions; a configured custom function is
// tried next; everything else is unsupported.
func (l *Lowerer) call(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, error) {
	e, ok, err := l.builtin(m, ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return e, nil
	}
	if name, ok := l.Options.CustomFunctions[m.Owner+"."+m.Method]; ok {
		return l.intrinsic(name, m, ctx)
	}
	return nil, ir.NewUnsupportedOperation("method %s.%s has no query equivalent", m.Owner, m.Method).WithExpr(symbolic.Format(m))
}

func (l *Lowerer) builtin(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if m.IsStatic() {
		if fn, ok := staticMethods[m.Owner+"."+m.Method]; ok {
			return fn(l, m, ctx)
		}
		return nil, false, nil
	}

	if m.Method == "equals" && len(m.Args) == 1 {
		return l.equals(m, ctx)
	}

	rt := m.Receiver.Type()
	var table map[string]methodFunc
	switch {
	case rt.Kind == ir.KindTuple:
		return l.tupleElement(m, ctx)
	case rt.IsStringLike():
		table = stringMethods
	case rt.IsTemporal():
		table = temporalMethods
	case rt.Kind == ir.KindDecimal || rt.Kind == ir.KindBigInteger:
		table = decimalMethods
	case rt.Kind == ir.KindCollection && m.Method == "contains" && len(m.Args) == 1:
		return l.memberOf(m, ctx)
	}
	if fn, ok := table[m.Method]; ok {
		return fn(l, m, ctx)
	}
	return nil, false, nil
}

// equals lowers x.equals(y) to x = y when the in-memory and query notions
// of equality agree for the receiver's type.
func (l *Lowerer) equals(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	rt := m.Receiver.Type()
	switch {
	case rt.IsStringLike(), rt.IsNumeric(), rt.IsTemporal(), rt.Kind == ir.KindEnum, rt.Kind == ir.KindBool:
	case rt.Kind == ir.KindEntity:
		if !l.Options.ObjectEqualsSafe {
			return nil, false, ir.NewUnsupportedOperation("entity equality is not enabled").WithExpr(symbolic.Format(m))
		}
	default:
		if !l.Options.AllEqualsSafe {
			return nil, false, ir.NewUnsupportedOperation("equality on %s is not enabled", rt).WithExpr(symbolic.Format(m))
		}
	}
	e, err := l.compare(&symbolic.BinaryOp{Op: symbolic.OpEq, Left: m.Receiver, Right: m.Args[0], T: ir.Bool}, ctx)
	return e, true, err
}

func (l *Lowerer) tupleElement(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	i, ok := tupleGetters[m.Method]
	if !ok || len(m.Args) != 0 {
		return nil, false, nil
	}
	recv, err := l.lower(m.Receiver, ctx.WithParent(m).ExpectingConditional(false))
	if err != nil {
		return nil, false, err
	}
	tup, ok := recv.(*jpql.Tuple)
	if !ok || i >= len(tup.Elems) {
		return nil, false, ir.NewUnsupportedOperation("%s on a row without element %d", m.Method, i+1).WithExpr(symbolic.Format(m))
	}
	return tup.Elems[i], true, nil
}

func (l *Lowerer) memberOf(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if !l.Options.CollectionContainsSafe {
		return nil, false, ir.NewUnsupportedOperation("collection membership is not enabled").WithExpr(symbolic.Format(m))
	}
	recv, args, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	return &jpql.Binary{Op: jpql.OpMemberOf, Left: args[0], Right: recv}, true, nil
}

// intrinsic calls a custom engine function with the receiver, if any,
// followed by the arguments.
func (l *Lowerer) intrinsic(name string, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, error) {
	var args []jpql.Expression
	if !m.IsStatic() {
		recv, err := l.Lower(m.Receiver, ctx.WithParent(m).ExpectingConditional(false))
		if err != nil {
			return nil, err
		}
		args = append(args, recv)
	}
	for _, a := range m.Args {
		e, err := l.Lower(a, ctx.WithParent(m).ExpectingConditional(false))
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return jpql.Intrinsic(name, args...), nil
}

// callOperands lowers the receiver and arguments of m as values.
func (l *Lowerer) callOperands(m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, []jpql.Expression, error) {
	sub := ctx.WithParent(m).ExpectingConditional(false)
	var recv jpql.Expression
	if !m.IsStatic() {
		var err error
		if recv, err = l.Lower(m.Receiver, sub); err != nil {
			return nil, nil, err
		}
	}
	args := make([]jpql.Expression, len(m.Args))
	for i, a := range m.Args {
		e, err := l.Lower(a, sub)
		if err != nil {
			return nil, nil, err
		}
		args[i] = e
	}
	return recv, args, nil
}

func unaryFunc(name string) methodFunc {
	return func(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
		if len(m.Args) != 0 {
			return nil, false, nil
		}
		recv, _, err := l.callOperands(m, ctx)
		if err != nil {
			return nil, false, err
		}
		return jpql.Func1(name, recv), true, nil
	}
}

func staticFunc(name string) methodFunc {
	return func(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
		if len(m.Args) != 1 {
			return nil, false, nil
		}
		_, args, err := l.callOperands(m, ctx)
		if err != nil {
			return nil, false, err
		}
		return jpql.Func1(name, args[0]), true, nil
	}
}

func stringConcat(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 {
		return nil, false, nil
	}
	recv, args, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	return jpql.Func2("CONCAT", recv, args[0]), true, nil
}

func stringIsEmpty(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 0 {
		return nil, false, nil
	}
	recv, _, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	zero := &jpql.Literal{Value: int64(0), T: ir.Int}
	return &jpql.Binary{Op: jpql.OpEq, Left: jpql.Func1("LENGTH", recv), Right: zero}, true, nil
}

// stringSubstring maps zero-based begin/end indexes to SUBSTRING's
// one-based start and length.
func stringSubstring(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 && len(m.Args) != 2 {
		return nil, false, nil
	}
	sub := ctx.WithParent(m).ExpectingConditional(false)
	recv, err := l.Lower(m.Receiver, sub)
	if err != nil {
		return nil, false, err
	}
	begin := m.Args[0]
	start, err := l.Lower(&symbolic.BinaryOp{Op: symbolic.OpAdd, Left: begin, Right: symbolic.Int(1), T: ir.Int}, sub)
	if err != nil {
		return nil, false, err
	}
	if len(m.Args) == 1 {
		return jpql.Func2("SUBSTRING", recv, start), true, nil
	}
	length, err := l.Lower(&symbolic.BinaryOp{Op: symbolic.OpSub, Left: m.Args[1], Right: begin, T: ir.Int}, sub)
	if err != nil {
		return nil, false, err
	}
	return jpql.Func3("SUBSTRING", recv, start, length), true, nil
}

func stringContains(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 {
		return nil, false, nil
	}
	sub := ctx.WithParent(m).ExpectingConditional(false)
	recv, err := l.Lower(m.Receiver, sub)
	if err != nil {
		return nil, false, err
	}
	needle, err := l.Lower(m.Args[0], sub.AcceptingCharSequence())
	if err != nil {
		return nil, false, err
	}
	zero := &jpql.Literal{Value: int64(0), T: ir.Int}
	return &jpql.Binary{Op: jpql.OpGt, Left: jpql.Func2("LOCATE", needle, recv), Right: zero}, true, nil
}

// stringStartsWith matches the argument at position one. LIKE would read
// '%' and '_' in the argument as wildcards.
func stringStartsWith(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 {
		return nil, false, nil
	}
	recv, args, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	one := &jpql.Literal{Value: int64(1), T: ir.Int}
	return &jpql.Binary{Op: jpql.OpEq, Left: jpql.Func2("LOCATE", args[0], recv), Right: one}, true, nil
}

// stringEndsWith compares the trailing LENGTH(arg) characters with the
// argument.
func stringEndsWith(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 {
		return nil, false, nil
	}
	recv, args, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	one := &jpql.Literal{Value: int64(1), T: ir.Int}
	start := &jpql.Binary{
		Op:    jpql.OpAdd,
		Left:  &jpql.Binary{Op: jpql.OpSub, Left: jpql.Func1("LENGTH", recv), Right: jpql.Func1("LENGTH", args[0])},
		Right: one,
	}
	tail := jpql.Func2("SUBSTRING", jpql.Copy(recv), start)
	return &jpql.Binary{Op: jpql.OpEq, Left: tail, Right: jpql.Copy(args[0])}, true, nil
}

func stringIndexOf(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 || !m.Args[0].Type().IsStringLike() {
		return nil, false, nil
	}
	recv, args, err := l.callOperands(m, ctx)
	if err != nil {
		return nil, false, err
	}
	one := &jpql.Literal{Value: int64(1), T: ir.Int}
	return &jpql.Binary{Op: jpql.OpSub, Left: jpql.Func2("LOCATE", args[0], recv), Right: one}, true, nil
}

func temporalCompare(op symbolic.Op) methodFunc {
	return func(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
		if len(m.Args) != 1 {
			return nil, false, nil
		}
		e, err := l.compare(&symbolic.BinaryOp{Op: op, Left: m.Receiver, Right: m.Args[0], T: ir.Bool}, ctx)
		return e, true, err
	}
}

func decimalArith(op symbolic.Op) methodFunc {
	return func(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
		if len(m.Args) != 1 {
			return nil, false, nil
		}
		b := &symbolic.BinaryOp{Op: op, Left: m.Receiver, Right: m.Args[0], T: m.T}
		e, err := l.arith(b, ctx)
		return e, true, err
	}
}

func decimalNegate(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 0 {
		return nil, false, nil
	}
	e, err := l.neg(&symbolic.UnaryOp{Op: symbolic.OpNeg, Operand: m.Receiver, T: m.T}, ctx)
	return e, true, err
}

// convertReceiver handles doubleValue and friends: the value is unchanged
// apart from its type.
func convertReceiver(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 0 {
		return nil, false, nil
	}
	e, err := l.cast(&symbolic.Cast{Operand: m.Receiver, T: m.T}, ctx)
	return e, true, err
}

// convertArg handles BigDecimal.valueOf and BigInteger.valueOf.
func convertArg(l *Lowerer, m *symbolic.MethodCall, ctx symbolic.Context) (jpql.Expression, bool, error) {
	if len(m.Args) != 1 {
		return nil, false, nil
	}
	e, err := l.cast(&symbolic.Cast{Operand: m.Args[0], T: m.T}, ctx)
	return e, true, err
}
