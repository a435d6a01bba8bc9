package interp

import (
	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
)

var zeroTests = map[bytecode.Opcode]symbolic.Op{
	bytecode.OpIfEq: symbolic.OpEq,
	bytecode.OpIfNe: symbolic.OpNe,
	bytecode.OpIfLt: symbolic.OpLt,
	bytecode.OpIfGe: symbolic.OpGe,
	bytecode.OpIfGt: symbolic.OpGt,
	bytecode.OpIfLe: symbolic.OpLe,
}

var pairTests = map[bytecode.Opcode]symbolic.Op{
	bytecode.OpIfCmpEq:  symbolic.OpEq,
	bytecode.OpIfCmpNe:  symbolic.OpNe,
	bytecode.OpIfCmpLt:  symbolic.OpLt,
	bytecode.OpIfCmpGe:  symbolic.OpGe,
	bytecode.OpIfCmpGt:  symbolic.OpGt,
	bytecode.OpIfCmpLe:  symbolic.OpLe,
	bytecode.OpIfACmpEq: symbolic.OpEq,
	bytecode.OpIfACmpNe: symbolic.OpNe,
}

// branch executes a jump. Conditional jumps fork c: the jump side carries
// the branch condition and the fall-through side its negation. Sides whose
// condition folds to false are not queued.
func (m *machine) branch(c *continuation, ins bytecode.Instruction) error {
	target := ins.Arg
	if target <= c.pc {
		return ir.NewUnsupportedOperation("backward branch from %d to %d: loops are not supported", c.pc, target)
	}
	if ins.Op == bytecode.OpGoto {
		c.pc = target
		m.enqueue(c)
		return nil
	}

	cond, err := m.condition(c, ins.Op)
	if err != nil {
		return err
	}
	if b, ok := symbolic.BoolValue(cond); ok {
		if b {
			c.pc = target
		} else {
			c.pc++
		}
		m.enqueue(c)
		return nil
	}

	m.enqueue(c.fork(target, cond))
	m.enqueue(c.fork(c.pc+1, symbolic.Negate(cond)))
	return nil
}

// condition pops the operands of a conditional jump and returns the
// condition under which the jump is taken.
func (m *machine) condition(c *continuation, op bytecode.Opcode) (symbolic.Value, error) {
	switch op {
	case bytecode.OpIfNull, bytecode.OpIfNonNull:
		v, err := c.pop()
		if err != nil {
			return nil, err
		}
		cmp := symbolic.OpEq
		if op == bytecode.OpIfNonNull {
			cmp = symbolic.OpNe
		}
		return nullTest(cmp, v), nil
	}

	if cmp, ok := zeroTests[op]; ok {
		v, err := c.pop()
		if err != nil {
			return nil, err
		}
		return testAgainst(cmp, v, symbolic.Int(0)), nil
	}

	if cmp, ok := pairTests[op]; ok {
		vs, err := c.popN(2)
		if err != nil {
			return nil, err
		}
		return testAgainst(cmp, vs[0], vs[1]), nil
	}
	return nil, ir.NewUnsupportedBytecode("%s is not a conditional branch", op)
}

func nullTest(op symbolic.Op, v symbolic.Value) symbolic.Value {
	if c, ok := v.(*symbolic.Constant); ok {
		return symbolic.Bool((c.Val == nil) == (op == symbolic.OpEq))
	}
	return symbolic.Compare(op, v, symbolic.Null(v.Type()))
}

// testAgainst builds the condition l <op> r, recognising the forms compiled
// code uses for booleans and three-way comparisons.
func testAgainst(op symbolic.Op, l, r symbolic.Value) symbolic.Value {
	// x.compareTo(y) <op> 0 is x <op> y.
	if isZero(r) {
		if call, ok := asCompareTo(l); ok {
			return symbolic.Compare(op, call.Receiver, call.Args[0])
		}
	}
	if isZero(l) {
		if call, ok := asCompareTo(r); ok {
			return symbolic.Compare(op.Swap(), call.Receiver, call.Args[0])
		}
	}

	// Booleans are compared against the integers 0 and 1.
	if b, ok := boolTest(op, l, r); ok {
		return b
	}
	if b, ok := boolTest(op.Swap(), r, l); ok {
		return b
	}

	if symbolic.IsNull(l) {
		return nullTest(op, r)
	}
	if symbolic.IsNull(r) {
		return nullTest(op, l)
	}

	if lc, ok := symbolic.IntValue(l); ok {
		if rc, ok := symbolic.IntValue(r); ok {
			return symbolic.Bool(compareInts(op, lc, rc))
		}
	}
	return symbolic.Compare(op, l, r)
}

// boolTest normalises a comparison between a boolean and an integer
// constant to the boolean or its negation.
func boolTest(op symbolic.Op, b, n symbolic.Value) (symbolic.Value, bool) {
	if b.Type() != ir.Bool {
		return nil, false
	}
	k, ok := symbolic.IntValue(n)
	if !ok || (k != 0 && k != 1) {
		return nil, false
	}
	// With b read as 0 or 1, decide the comparison for b true and b false.
	whenTrue := compareInts(op, 1, k)
	whenFalse := compareInts(op, 0, k)
	switch {
	case whenTrue && whenFalse:
		return symbolic.True, true
	case !whenTrue && !whenFalse:
		return symbolic.False, true
	case whenTrue:
		return b, true
	default:
		return symbolic.Negate(b), true
	}
}

func compareInts(op symbolic.Op, a, b int64) bool {
	switch op {
	case symbolic.OpEq:
		return a == b
	case symbolic.OpNe:
		return a != b
	case symbolic.OpLt:
		return a < b
	case symbolic.OpLe:
		return a <= b
	case symbolic.OpGt:
		return a > b
	case symbolic.OpGe:
		return a >= b
	}
	return false
}

func isZero(v symbolic.Value) bool {
	n, ok := symbolic.IntValue(v)
	return ok && n == 0
}

func asCompareTo(v symbolic.Value) (*symbolic.MethodCall, bool) {
	call, ok := v.(*symbolic.MethodCall)
	if !ok || call.Method != "compareTo" || call.Receiver == nil || len(call.Args) != 1 {
		return nil, false
	}
	return call, true
}
