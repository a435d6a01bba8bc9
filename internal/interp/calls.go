package interp

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// boxTypes are the wrapper owners whose valueOf and xxxValue methods only
// box or unbox.
var boxTypes = map[string]bool{
	"Integer": true, "Long": true, "Double": true, "Float": true,
	"Boolean": true, "Short": true, "Byte": true,
}

// tupleGetters read the elements of a Tuple by position.
var tupleGetters = map[string]int{
	"getOne": 0, "getTwo": 1, "getThree": 2, "getFour": 3, "getFive": 4,
}

func (m *machine) getField(base symbolic.Value, member bytecode.Member) (symbolic.Value, error) {
	t, err := member.FieldType()
	if err != nil {
		return nil, ir.NewUnsupportedBytecode("getfield %s: %v", member, err)
	}
	if base.Type().Kind == ir.KindEntity {
		if ent, ok := m.env.Schema.Entity(base.Type().Name); ok {
			f, ok := ent.Fields[member.Name]
			if !ok {
				return nil, ir.NewUnsupportedOperation("%s has no mapped field %s", ent.Name, member.Name).WithExpr(symbolic.Format(base))
			}
			t = f.Type
		}
	}
	return &symbolic.FieldAccess{Base: base, Field: member.Name, T: m.env.Schema.Resolve(t)}, nil
}

// staticConstants are the static fields of library types with a literal
// value.
var staticConstants = map[string]func() symbolic.Value{
	"BigDecimal.ZERO": func() symbolic.Value { return symbolic.Decimal(apd.New(0, 0)) },
	"BigDecimal.ONE":  func() symbolic.Value { return symbolic.Decimal(apd.New(1, 0)) },
	"BigDecimal.TEN":  func() symbolic.Value { return symbolic.Decimal(apd.New(10, 0)) },
	"BigInteger.ZERO": func() symbolic.Value { return symbolic.BigInt(apd.NewBigInt(0)) },
	"BigInteger.ONE":  func() symbolic.Value { return symbolic.BigInt(apd.NewBigInt(1)) },
	"BigInteger.TEN":  func() symbolic.Value { return symbolic.BigInt(apd.NewBigInt(10)) },
	"Boolean.TRUE":    func() symbolic.Value { return symbolic.True },
	"Boolean.FALSE":   func() symbolic.Value { return symbolic.False },
}

func (m *machine) getStatic(member bytecode.Member) (symbolic.Value, error) {
	e, ok := m.env.Schema.Enum(member.Owner)
	if !ok {
		e, ok = m.env.Schema.Enum(shortName(member.Owner))
	}
	if ok {
		if !e.HasValue(member.Name) {
			return nil, ir.NewUnsupportedOperation("enum %s has no constant %s", e.Name, member.Name)
		}
		return symbolic.Enum(ir.EnumType(e.Name), e.Qualified, member.Name), nil
	}
	if mk, ok := staticConstants[shortName(member.Owner)+"."+member.Name]; ok {
		return mk(), nil
	}
	return nil, ir.NewUnsupportedOperation("static field %s.%s cannot be read in a query", member.Owner, member.Name)
}

// invoke pops the receiver and arguments of a call and pushes its result.
// Entity getters become field reads; boxing calls are transparent; other
// calls are kept as MethodCall nodes for lowering to translate.
func (m *machine) invoke(c *continuation, static bool, member bytecode.Member) error {
	argTypes, ret, err := member.Signature()
	if err != nil {
		return ir.NewUnsupportedBytecode("invoke %s: %v", member, err)
	}
	args, err := c.popN(len(argTypes))
	if err != nil {
		return err
	}
	var recv symbolic.Value
	if !static {
		if recv, err = c.pop(); err != nil {
			return err
		}
	}
	if ret.Kind == ir.KindVoid {
		return ir.NewUnsupportedOperation("call to %s.%s returns no value", member.Owner, member.Name)
	}
	ret = m.env.Schema.Resolve(ret)

	if recv != nil && len(args) == 0 {
		if v, ok := m.accessor(recv, member.Name); ok {
			c.push(v)
			return nil
		}
	}
	if boxTypes[shortName(member.Owner)] {
		switch {
		case static && member.Name == "valueOf" && len(args) == 1:
			c.push(convert(args[0], ret))
			return nil
		case !static && strings.HasSuffix(member.Name, "Value") && len(args) == 0:
			c.push(convert(recv, ret))
			return nil
		}
	}

	c.push(&symbolic.MethodCall{
		Receiver: recv,
		Owner:    shortName(member.Owner),
		Method:   member.Name,
		Args:     args,
		T:        ret,
	})
	return nil
}

// accessor resolves a no-argument call on an entity or tuple to a field
// or element read.
func (m *machine) accessor(recv symbolic.Value, method string) (symbolic.Value, bool) {
	if tup, ok := recv.(*symbolic.Tuple); ok {
		i, ok := tupleGetters[method]
		if ok && i < len(tup.Elems) {
			return tup.Elems[i], true
		}
		return nil, false
	}
	t := recv.Type()
	if t.Kind != ir.KindEntity {
		return nil, false
	}
	ent, ok := m.env.Schema.Entity(t.Name)
	if !ok {
		return nil, false
	}
	f, ok := ent.Getter(method)
	if !ok {
		return nil, false
	}
	return &symbolic.FieldAccess{Base: recv, Field: f.Name, T: m.env.Schema.Resolve(f.Type)}, true
}

// shortName strips a package qualifier: java.math.BigDecimal is
// BigDecimal.
func shortName(owner string) string {
	if i := strings.LastIndexByte(owner, '.'); i >= 0 {
		return owner[i+1:]
	}
	return owner
}
