package symbolic

import "fmt"

// Op is a symbolic operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
)

var opSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
	OpNeg: "-",
	OpNot: "!",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opSymbols) {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return opSymbols[op]
}

// IsArithmetic reports whether op is a binary arithmetic operator.
func (op Op) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// IsComparison reports whether op compares its operands.
func (op Op) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op is a boolean connective.
func (op Op) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Invert returns the comparison that holds exactly when op does not.
func (op Op) Invert() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpGe:
		return OpLt
	case OpGt:
		return OpLe
	case OpLe:
		return OpGt
	}
	return op
}

// Swap returns the comparison with its operands exchanged.
func (op Op) Swap() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpGt:
		return OpLt
	case OpLe:
		return OpGe
	case OpGe:
		return OpLe
	}
	return op
}
