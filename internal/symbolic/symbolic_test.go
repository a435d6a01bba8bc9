package symbolic

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/ir"
)

var customer = ir.EntityType("Customer")

func field(name string, t ir.Type) *FieldAccess {
	return &FieldAccess{Base: &Arg{Index: 0, T: customer}, Field: name, T: t}
}

func equalsCall(recv, arg Value) *MethodCall {
	return &MethodCall{Receiver: recv, Owner: "java.lang.Object", Method: "equals", Args: []Value{arg}, T: ir.Bool}
}

func TestEqual_Structural(t *testing.T) {
	a := Compare(OpLt, field("salary", ir.Int), Int(212))
	b := Compare(OpLt, field("salary", ir.Int), Int(212))
	c := Compare(OpLt, field("salary", ir.Int), Long(212))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c), "int and long constants differ by type")
	assert.False(t, Equal(a, Negate(a)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestEqual_Constants(t *testing.T) {
	d1, _, err := apd.NewFromString("1.50")
	require.NoError(t, err)
	d2, _, err := apd.NewFromString("1.50")
	require.NoError(t, err)

	assert.True(t, Equal(Decimal(d1), Decimal(d2)))
	assert.True(t, Equal(Double(2.0), Double(2.0)))
	assert.False(t, Equal(Double(2.0), Int(2)))
	assert.True(t, Equal(Null(ir.String), Null(ir.String)))
	assert.False(t, Equal(Null(ir.String), String("")))

	big := ir.EnumType("ItemType")
	assert.True(t, Equal(Enum(big, "shop.ItemType", "BIG"), Enum(big, "shop.ItemType", "BIG")))
	assert.False(t, Equal(Enum(big, "shop.ItemType", "BIG"), Enum(big, "shop.ItemType", "SMALL")))
}

func TestHash_ConsistentWithEqual(t *testing.T) {
	build := func() Value {
		return And(
			equalsCall(field("country", ir.String), &ParamRef{Slot: 0, T: ir.String}),
			Compare(OpGe, field("debt", ir.Int), Int(0)),
		)
	}
	a, b := build(), build()
	require.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))
	assert.Len(t, Hash(a), 64)

	other := Compare(OpGe, field("debt", ir.Int), Int(1))
	assert.NotEqual(t, Hash(a), Hash(other))
}

func TestHash_FloatBitsDistinguish(t *testing.T) {
	assert.NotEqual(t, Hash(Double(0.1)), Hash(Double(0.2)))
	assert.Equal(t, Hash(Double(0.5)), Hash(Double(0.5)))
}

func TestNegate(t *testing.T) {
	lt := Compare(OpLt, field("salary", ir.Int), Int(10))

	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{"true", True, False},
		{"false", False, True},
		{"comparison inverted", lt, Compare(OpGe, field("salary", ir.Int), Int(10))},
		{"double negation", Negate(equalsCall(field("name", ir.String), String("Bob"))), equalsCall(field("name", ir.String), String("Bob"))},
		{"opaque wrapped", field("hasFreeShipping", ir.Bool), &UnaryOp{Op: OpNot, Operand: field("hasFreeShipping", ir.Bool), T: ir.Bool}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Negate(tt.in)
			assert.True(t, Equal(tt.want, got), "got %s", Format(got))
		})
	}
}

func TestAnd_Folding(t *testing.T) {
	x := Compare(OpGt, field("debt", ir.Int), Int(0))
	y := equalsCall(field("name", ir.String), String("Alice"))

	assert.Same(t, x, And(True, x))
	assert.Same(t, x, And(x, True))
	assert.Same(t, False, And(x, False))
	assert.True(t, Equal(x, And(x, x)))
	assert.Same(t, False, And(x, Negate(x)))

	both := And(x, y)
	assert.Equal(t, []Value{x, y}, Conjuncts(both))
	assert.True(t, Equal(both, And(both, y)))
}

func TestOr_AbsorbsComplements(t *testing.T) {
	uk := equalsCall(field("country", ir.String), &ParamRef{Slot: 0, T: ir.String})
	canada := equalsCall(field("country", ir.String), &ParamRef{Slot: 1, T: ir.String})
	alice := equalsCall(field("name", ir.String), String("Alice"))

	// Path conditions of:
	//   if country == uk: true
	//   else if country == canada: false
	//   else: name == "alice"
	got := Or(uk, And(And(Negate(uk), Negate(canada)), alice))

	want := Or(uk, And(Negate(canada), alice))
	assert.True(t, Equal(want, got), "got %s", Format(got))

	// Reversed order simplifies the earlier disjunct.
	got = Or(And(Negate(uk), alice), uk)
	assert.True(t, Equal(Or(alice, uk), got), "got %s", Format(got))
}

func TestOr_Folding(t *testing.T) {
	x := Compare(OpGt, field("debt", ir.Int), Int(0))

	assert.Same(t, x, Or(False, x))
	assert.Same(t, True, Or(x, True))
	assert.Same(t, True, Or(x, Negate(x)))
	assert.True(t, Equal(x, Or(x, x)))
	assert.Same(t, False, OrAll())
	assert.Same(t, True, AndAll())
}

func TestStringConcat_Pieces(t *testing.T) {
	name := field("name", ir.String)
	city := field("city", ir.String)
	s := &StringConcat{Recipe: "Hello \x01, from \x01", Args: []Value{name, city}}

	assert.Equal(t, 2, s.ArgCount())
	assert.Equal(t, []Piece{
		{Text: "Hello "},
		{Arg: name},
		{Text: ", from "},
		{Arg: city},
	}, s.Pieces())

	leading := &StringConcat{Recipe: "\x01\x01", Args: []Value{name, city}}
	assert.Equal(t, []Piece{{Arg: name}, {Arg: city}}, leading.Pieces())
	assert.Equal(t, ir.String, leading.Type())
}

func TestFormat(t *testing.T) {
	v := &Conditional{
		Cond: Compare(OpLt, field("salary", ir.Int), &ParamRef{Slot: 0, T: ir.Int}),
		Then: String("low"),
		Else: Null(ir.String),
		T:    ir.String,
	}
	assert.Equal(t, `((arg0.salary < captured0) ? "low" : null)`, Format(v))

	tup := &Tuple{Elems: []Value{&Arg{Index: 0, T: customer}, field("name", ir.String)}}
	assert.Equal(t, "(arg0, arg0.name)", Format(tup))
	assert.Equal(t, "!arg0.hasFreeShipping", Format(Negate(field("hasFreeShipping", ir.Bool))))
}

func TestContext_Derivations(t *testing.T) {
	parent := field("name", ir.String)
	base := With(parent, true)

	cs := base.AcceptingCharSequence()
	assert.True(t, cs.AcceptsCharSequence)
	assert.False(t, base.AcceptsCharSequence, "derivation must not change the original")

	v := base.ExpectingConditional(false)
	assert.False(t, v.ExpectingBoolean)
	assert.True(t, base.ExpectingBoolean)

	moved := base.WithParent(nil)
	assert.Nil(t, moved.Parent)
	assert.Same(t, parent, base.Parent)
	assert.Equal(t, base, base.Copy())
}
