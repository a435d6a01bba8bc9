package jpql

import "github.com/roach88/lambdaq/internal/ir"

// Expression is a node of a query expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Nodes are pointers: the generator keys parameters and sources by node
// identity, so a node that is referenced twice keeps one parameter ordinal
// and a Copy gets its own.
type Expression interface {
	jpqlExpression()
}

// Source is a range variable: an entity in the FROM clause. Its alias is
// assigned by the generator.
type Source struct {
	Entity string
}

// Path reads a field chain from a source. A path with no fields denotes the
// entity itself.
type Path struct {
	Source *Source
	Fields []string
}

// Literal is a constant written into the query text. Value is nil, bool,
// int64, float64, string, *apd.Decimal, *apd.BigInt or EnumValue. T decides
// the spelling of numbers: an int64 with a floating type renders as 2.0.
type Literal struct {
	Value any
	T     ir.Type
}

// EnumValue is an enum constant, rendered as Type.Name.
type EnumValue struct {
	Type string
	Name string
}

// Param is a query parameter bound to a captured value: slot Slot of the
// closure that produced clause Clause.
type Param struct {
	Clause int
	Slot   int
	T      ir.Type
}

// Binary is an arithmetic operation, a comparison or a logical connective.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Unary is NOT, unary minus, IS NULL or IS NOT NULL.
type Unary struct {
	Op      UnaryOp
	Operand Expression
}

// FunctionCall is a call to a built-in function, or to an engine-specific
// function through the function('NAME', ...) escape when Intrinsic is set.
type FunctionCall struct {
	Name      string
	Args      []Expression
	Intrinsic bool
}

// CaseWhen is a searched CASE expression.
type CaseWhen struct {
	Whens []When
	Else  Expression
}

// When is one WHEN ... THEN ... arm.
type When struct {
	Cond Expression
	Then Expression
}

// Tuple is a select list of several expressions. It may only appear as the
// top-level select expression.
type Tuple struct {
	Elems []Expression
}

func (*Path) jpqlExpression()         {}
func (*Literal) jpqlExpression()      {}
func (*Param) jpqlExpression()        {}
func (*Binary) jpqlExpression()       {}
func (*Unary) jpqlExpression()        {}
func (*FunctionCall) jpqlExpression() {}
func (*CaseWhen) jpqlExpression()     {}
func (*Tuple) jpqlExpression()        {}

// BinaryOp is the operator of a Binary node.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpMemberOf
	OpAnd
	OpOr
)

var binarySymbols = [...]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpEq:       "=",
	OpNe:       "<>",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpLike:     "LIKE",
	OpMemberOf: "MEMBER OF",
	OpAnd:      "AND",
	OpOr:       "OR",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binarySymbols) {
		return "?"
	}
	return binarySymbols[op]
}

// IsComparison reports whether op is a predicate over two values.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpMemberOf
}

// Invert returns the comparison that holds exactly when op does not. ok is
// false for operators without an inverse spelling.
func (op BinaryOp) Invert() (inv BinaryOp, ok bool) {
	switch op {
	case OpEq:
		return OpNe, true
	case OpNe:
		return OpEq, true
	case OpLt:
		return OpGe, true
	case OpGe:
		return OpLt, true
	case OpGt:
		return OpLe, true
	case OpLe:
		return OpGt, true
	}
	return op, false
}

// UnaryOp is the operator of a Unary node.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpIsNull
	OpIsNotNull
)

// IsPredicate reports whether e is a boolean-valued expression in the query
// language: a comparison, a connective, NOT or a null test.
func IsPredicate(e Expression) bool {
	switch n := e.(type) {
	case *Binary:
		return n.Op.IsComparison() || n.Op == OpAnd || n.Op == OpOr
	case *Unary:
		return n.Op != OpNeg
	}
	return false
}

// Convenience constructors.

// NewPath returns a path from src through fields.
func NewPath(src *Source, fields ...string) *Path {
	return &Path{Source: src, Fields: fields}
}

// Func1 calls a built-in function of one argument.
func Func1(name string, a Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: []Expression{a}}
}

// Func2 calls a built-in function of two arguments.
func Func2(name string, a, b Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: []Expression{a, b}}
}

// Func3 calls a built-in function of three arguments.
func Func3(name string, a, b, c Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: []Expression{a, b, c}}
}

// Intrinsic calls an engine-specific function by name.
func Intrinsic(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: args, Intrinsic: true}
}

// True and False return boolean literals.
func True() *Literal  { return &Literal{Value: true, T: ir.Bool} }
func False() *Literal { return &Literal{Value: false, T: ir.Bool} }

// IsBoolLiteral reports whether e is a TRUE or FALSE literal.
func IsBoolLiteral(e Expression) bool {
	l, ok := e.(*Literal)
	if !ok {
		return false
	}
	_, ok = l.Value.(bool)
	return ok
}
