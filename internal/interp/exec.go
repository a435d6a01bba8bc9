package interp

import (
	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// step executes the instruction at c.pc and queues the successor
// continuations.
func (m *machine) step(c *continuation) error {
	if c.pc < 0 || c.pc >= len(m.prog.Code) {
		return ir.NewUnsupportedBytecode("execution ran past the end of the code at %d", c.pc)
	}
	ins := m.prog.Code[c.pc]

	if ins.Op.Unsupported() {
		return ir.NewUnsupportedOperation("%s at %d has no query equivalent", ins.Op, c.pc)
	}
	if ins.Op.IsBranch() {
		return m.branch(c, ins)
	}
	if ins.Op == bytecode.OpReturn {
		return m.ret(c)
	}
	if err := m.exec(c, ins); err != nil {
		return err
	}
	c.pc++
	m.enqueue(c)
	return nil
}

// exec applies a sequential instruction to c.
func (m *machine) exec(c *continuation, ins bytecode.Instruction) error {
	switch ins.Op {
	case bytecode.OpNop:
	case bytecode.OpNull:
		c.push(symbolic.Null(ir.Object))
	case bytecode.OpIConst:
		c.push(symbolic.Int(int64(ins.Arg)))
	case bytecode.OpLdc:
		v, err := poolValue(m.prog.Pool[ins.Arg])
		if err != nil {
			return err
		}
		c.push(v)

	case bytecode.OpLoad:
		v := c.locals[ins.Arg]
		if v == nil {
			return ir.NewUnsupportedBytecode("load of unassigned slot %d at %d", ins.Arg, c.pc)
		}
		c.push(v)
	case bytecode.OpStore:
		v, err := c.pop()
		if err != nil {
			return err
		}
		c.locals[ins.Arg] = v

	case bytecode.OpPop:
		_, err := c.pop()
		return err
	case bytecode.OpDup:
		v, err := c.pop()
		if err != nil {
			return err
		}
		c.push(v)
		c.push(v)
	case bytecode.OpSwap:
		vs, err := c.popN(2)
		if err != nil {
			return err
		}
		c.push(vs[1])
		c.push(vs[0])

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpRem:
		vs, err := c.popN(2)
		if err != nil {
			return err
		}
		v, err := arithmetic(arithOps[ins.Op], vs[0], vs[1])
		if err != nil {
			return err
		}
		c.push(v)
	case bytecode.OpNeg:
		v, err := c.pop()
		if err != nil {
			return err
		}
		if !v.Type().IsNumeric() {
			return ir.NewTypeMismatch("cannot negate %s", v.Type()).WithExpr(symbolic.Format(v))
		}
		c.push(&symbolic.UnaryOp{Op: symbolic.OpNeg, Operand: v, T: v.Type()})
	case bytecode.OpCmp:
		vs, err := c.popN(2)
		if err != nil {
			return err
		}
		if _, err := ir.Promote(vs[0].Type(), vs[1].Type()); err != nil {
			return ir.NewTypeMismatch("%v", err).WithExpr(symbolic.Format(vs[0]))
		}
		c.push(compareTo(vs[0], vs[1]))

	case bytecode.OpGetField:
		base, err := c.pop()
		if err != nil {
			return err
		}
		v, err := m.getField(base, m.prog.Pool[ins.Arg].Member)
		if err != nil {
			return err
		}
		c.push(v)
	case bytecode.OpGetStatic:
		v, err := m.getStatic(m.prog.Pool[ins.Arg].Member)
		if err != nil {
			return err
		}
		c.push(v)
	case bytecode.OpInvokeVirtual, bytecode.OpInvokeInterface, bytecode.OpInvokeStatic:
		return m.invoke(c, ins.Op == bytecode.OpInvokeStatic, m.prog.Pool[ins.Arg].Member)

	case bytecode.OpNewTuple:
		vs, err := c.popN(ins.Argc)
		if err != nil {
			return err
		}
		c.push(&symbolic.Tuple{Elems: vs})
	case bytecode.OpConcat:
		recipe := m.prog.Pool[ins.Arg].Str
		vs, err := c.popN(ins.Argc)
		if err != nil {
			return err
		}
		s := &symbolic.StringConcat{Recipe: recipe, Args: vs}
		if s.ArgCount() != ins.Argc {
			return ir.NewUnsupportedBytecode("concat recipe has %d argument slots but %d arguments at %d", s.ArgCount(), ins.Argc, c.pc)
		}
		c.push(s)

	case bytecode.OpCheckCast, bytecode.OpConvert:
		v, err := c.pop()
		if err != nil {
			return err
		}
		t, err := ir.ParseType(m.prog.Pool[ins.Arg].Str)
		if err != nil {
			return ir.NewUnsupportedBytecode("%s at %d: %v", ins.Op, c.pc, err)
		}
		c.push(convert(v, m.env.Schema.Resolve(t)))
	case bytecode.OpInstanceOf:
		v, err := c.pop()
		if err != nil {
			return err
		}
		t, err := ir.ParseType(m.prog.Pool[ins.Arg].Str)
		if err != nil {
			return ir.NewUnsupportedBytecode("%s at %d: %v", ins.Op, c.pc, err)
		}
		if m.env.Schema.Resolve(t) != v.Type() {
			return ir.NewUnsupportedOperation("instanceof %s on a %s", t, v.Type()).WithExpr(symbolic.Format(v))
		}
		// A value of the tested static type is an instance unless null.
		c.push(symbolic.Compare(symbolic.OpNe, v, symbolic.Null(v.Type())))

	default:
		return ir.NewUnsupportedBytecode("unexpected %s at %d", ins.Op, c.pc)
	}
	return nil
}

// ret records the value on top of the stack as a completed path.
func (m *machine) ret(c *continuation) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	if c.ctx.ExpectingBoolean {
		v = asBoolean(v)
	}
	m.result.Paths = append(m.result.Paths, Path{Conds: c.conds, Value: v})
	return nil
}

// asBoolean reads the integer constants 0 and 1 as booleans. Compiled code
// represents boolean results that way.
func asBoolean(v symbolic.Value) symbolic.Value {
	if n, ok := symbolic.IntValue(v); ok && v.Type() == ir.Int && (n == 0 || n == 1) {
		return symbolic.Bool(n == 1)
	}
	return v
}

var arithOps = map[bytecode.Opcode]symbolic.Op{
	bytecode.OpAdd: symbolic.OpAdd,
	bytecode.OpSub: symbolic.OpSub,
	bytecode.OpMul: symbolic.OpMul,
	bytecode.OpDiv: symbolic.OpDiv,
	bytecode.OpRem: symbolic.OpMod,
}

func arithmetic(op symbolic.Op, l, r symbolic.Value) (symbolic.Value, error) {
	t, err := ir.Promote(l.Type(), r.Type())
	if err != nil {
		return nil, ir.NewTypeMismatch("%s: %v", op, err).WithExpr(symbolic.Format(l))
	}
	return &symbolic.BinaryOp{Op: op, Left: l, Right: r, T: t}, nil
}

// compareTo represents a three-way comparison result. A conditional branch
// on it becomes the direct comparison of its operands.
func compareTo(l, r symbolic.Value) symbolic.Value {
	return &symbolic.MethodCall{
		Receiver: l,
		Owner:    l.Type().String(),
		Method:   "compareTo",
		Args:     []symbolic.Value{r},
		T:        ir.Int,
	}
}

// convert changes the static type of v. Numeric constants are converted
// in place; everything else is wrapped in a Cast.
func convert(v symbolic.Value, t ir.Type) symbolic.Value {
	if v.Type() == t || t == ir.Object {
		return v
	}
	if symbolic.IsNull(v) {
		return symbolic.Null(t)
	}
	if c, ok := v.(*symbolic.Constant); ok && t.IsNumeric() {
		switch val := c.Val.(type) {
		case int64:
			switch {
			case t.IsIntegral():
				return &symbolic.Constant{Val: val, T: t}
			case t.IsFloating():
				return &symbolic.Constant{Val: float64(val), T: t}
			}
		case float64:
			switch {
			case t.IsIntegral():
				return &symbolic.Constant{Val: int64(val), T: t}
			case t.IsFloating():
				return &symbolic.Constant{Val: val, T: t}
			}
		}
	}
	return &symbolic.Cast{Operand: v, T: t}
}

func poolValue(c bytecode.Constant) (symbolic.Value, error) {
	switch c.Tag {
	case bytecode.TagInt:
		return symbolic.Int(c.Int), nil
	case bytecode.TagLong:
		return symbolic.Long(c.Int), nil
	case bytecode.TagDouble:
		return symbolic.Double(c.Float), nil
	case bytecode.TagString:
		return symbolic.String(c.Str), nil
	case bytecode.TagNull:
		return symbolic.Null(ir.Object), nil
	case bytecode.TagBool:
		return symbolic.Bool(c.Bool), nil
	case bytecode.TagDecimal:
		return symbolic.Decimal(c.Decimal), nil
	case bytecode.TagBigInt:
		return symbolic.BigInt(c.BigInt), nil
	}
	return nil, ir.NewUnsupportedBytecode("constant of kind %s cannot be loaded", c.Tag)
}
