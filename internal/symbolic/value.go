package symbolic

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

// Value is a node of the symbolic expression tree reconstructed from a
// closure body.
//
// This is a sealed interface - only types in this package implement it.
// Nodes are immutable once built; rewrites construct new nodes and share
// the untouched subtrees.
type Value interface {
	// Type is the static type of the value.
	Type() ir.Type
	symbolicValue()
}

// Constant is a literal. Val is nil, bool, int64, float64, string,
// *apd.Decimal, *apd.BigInt or EnumConstant.
type Constant struct {
	Val any
	T   ir.Type
}

// EnumConstant is the value of an enum Constant. Type is the qualified
// enum name used in query text.
type EnumConstant struct {
	Type string
	Name string
}

// FieldAccess reads a mapped field of an entity-valued expression.
type FieldAccess struct {
	Base  Value
	Field string
	T     ir.Type
}

// MethodCall is a call that the interpreter could not resolve to a field
// read. Receiver is nil for static calls.
type MethodCall struct {
	Receiver Value
	Owner    string
	Method   string
	Args     []Value
	T        ir.Type
}

// StringConcat is a string built from a recipe. Each RecipeArg rune in
// Recipe is replaced by the next element of Args; the rest of the recipe is
// literal text.
type StringConcat struct {
	Recipe string
	Args   []Value
}

// RecipeArg marks an argument position in a StringConcat recipe.
const RecipeArg = '\x01'

// BinaryOp is an arithmetic, comparison or logical operation.
type BinaryOp struct {
	Op    Op
	Left  Value
	Right Value
	T     ir.Type
}

// UnaryOp is a negation (OpNeg) or logical not (OpNot).
type UnaryOp struct {
	Op      Op
	Operand Value
	T       ir.Type
}

// Cast changes the static type of its operand.
type Cast struct {
	Operand Value
	T       ir.Type
}

// Tuple is a fixed-arity aggregate, produced when a closure returns a pair
// or other composite.
type Tuple struct {
	Elems []Value
}

// ParamRef is a captured variable. It becomes a query parameter.
type ParamRef struct {
	Slot int
	T    ir.Type
}

// Arg is a closure argument: the row the query ranges over.
type Arg struct {
	Index int
	T     ir.Type
}

// Conditional selects Then when Cond holds and Else otherwise. It is built
// where diverging control-flow paths rejoin with different values.
type Conditional struct {
	Cond Value
	Then Value
	Else Value
	T    ir.Type
}

func (c *Constant) Type() ir.Type    { return c.T }
func (f *FieldAccess) Type() ir.Type { return f.T }
func (m *MethodCall) Type() ir.Type  { return m.T }
func (*StringConcat) Type() ir.Type  { return ir.String }
func (b *BinaryOp) Type() ir.Type    { return b.T }
func (u *UnaryOp) Type() ir.Type     { return u.T }
func (c *Cast) Type() ir.Type        { return c.T }
func (*Tuple) Type() ir.Type         { return ir.Tuple }
func (p *ParamRef) Type() ir.Type    { return p.T }
func (a *Arg) Type() ir.Type         { return a.T }
func (c *Conditional) Type() ir.Type { return c.T }
func (*Constant) symbolicValue()     {}
func (*FieldAccess) symbolicValue()  {}
func (*MethodCall) symbolicValue()   {}
func (*StringConcat) symbolicValue() {}
func (*BinaryOp) symbolicValue()     {}
func (*UnaryOp) symbolicValue()      {}
func (*Cast) symbolicValue()         {}
func (*Tuple) symbolicValue()        {}
func (*ParamRef) symbolicValue()     {}
func (*Arg) symbolicValue()          {}
func (*Conditional) symbolicValue()  {}

// IsStatic reports whether the call has no receiver.
func (m *MethodCall) IsStatic() bool {
	return m.Receiver == nil
}

// WithArgs returns a copy of the concatenation with new arguments and the
// same recipe.
func (s *StringConcat) WithArgs(args []Value) *StringConcat {
	return &StringConcat{Recipe: s.Recipe, Args: append([]Value(nil), args...)}
}

// Piece is one segment of a StringConcat recipe: either literal Text or an
// argument.
type Piece struct {
	Text string
	Arg  Value
}

// Pieces splits the recipe into literal segments and arguments in order.
// Empty literal segments are omitted.
func (s *StringConcat) Pieces() []Piece {
	var pieces []Piece
	next := 0
	start := 0
	for i, r := range s.Recipe {
		if r != RecipeArg {
			continue
		}
		if i > start {
			pieces = append(pieces, Piece{Text: s.Recipe[start:i]})
		}
		if next < len(s.Args) {
			pieces = append(pieces, Piece{Arg: s.Args[next]})
		}
		next++
		start = i + 1
	}
	if start < len(s.Recipe) {
		pieces = append(pieces, Piece{Text: s.Recipe[start:]})
	}
	return pieces
}

// ArgCount returns the number of argument positions in the recipe.
func (s *StringConcat) ArgCount() int {
	n := 0
	for _, r := range s.Recipe {
		if r == RecipeArg {
			n++
		}
	}
	return n
}

// Constructors for constants.

var (
	True  = &Constant{Val: true, T: ir.Bool}
	False = &Constant{Val: false, T: ir.Bool}
)

func Int(n int64) *Constant      { return &Constant{Val: n, T: ir.Int} }
func Long(n int64) *Constant     { return &Constant{Val: n, T: ir.Long} }
func Double(f float64) *Constant { return &Constant{Val: f, T: ir.Double} }
func String(s string) *Constant  { return &Constant{Val: s, T: ir.String} }
func Null(t ir.Type) *Constant   { return &Constant{Val: nil, T: t} }
func Decimal(d *apd.Decimal) *Constant {
	return &Constant{Val: d, T: ir.Decimal}
}
func BigInt(b *apd.BigInt) *Constant {
	return &Constant{Val: b, T: ir.BigInteger}
}

// Bool returns the shared True or False constant.
func Bool(b bool) *Constant {
	if b {
		return True
	}
	return False
}

// Enum returns an enum constant of type t rendered as qualified.name.
func Enum(t ir.Type, qualified, name string) *Constant {
	return &Constant{Val: EnumConstant{Type: qualified, Name: name}, T: t}
}

// IsNull reports whether v is the null constant.
func IsNull(v Value) bool {
	c, ok := v.(*Constant)
	return ok && c.Val == nil
}

// BoolValue reports the value of a boolean constant.
func BoolValue(v Value) (value, ok bool) {
	c, isConst := v.(*Constant)
	if !isConst {
		return false, false
	}
	b, ok := c.Val.(bool)
	return b, ok
}

// IntValue reports the value of an integral constant.
func IntValue(v Value) (int64, bool) {
	c, isConst := v.(*Constant)
	if !isConst {
		return 0, false
	}
	n, ok := c.Val.(int64)
	return n, ok
}

// IsTrue reports whether v is the constant true.
func IsTrue(v Value) bool {
	b, ok := BoolValue(v)
	return ok && b
}

// IsFalse reports whether v is the constant false.
func IsFalse(v Value) bool {
	b, ok := BoolValue(v)
	return ok && !b
}
