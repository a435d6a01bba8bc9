package symbolic

import "github.com/roach88/lambdaq/internal/ir"

// Compare builds a boolean comparison.
func Compare(op Op, left, right Value) Value {
	return &BinaryOp{Op: op, Left: left, Right: right, T: ir.Bool}
}

// Negate returns the logical complement of a boolean value. Comparisons are
// inverted, double negation is removed and constants are folded; anything
// else is wrapped in OpNot.
func Negate(v Value) Value {
	switch val := v.(type) {
	case *Constant:
		if b, ok := val.Val.(bool); ok {
			return Bool(!b)
		}
	case *BinaryOp:
		if val.Op.IsComparison() {
			return &BinaryOp{Op: val.Op.Invert(), Left: val.Left, Right: val.Right, T: ir.Bool}
		}
	case *UnaryOp:
		if val.Op == OpNot {
			return val.Operand
		}
	}
	return &UnaryOp{Op: OpNot, Operand: v, T: ir.Bool}
}

// Conjuncts flattens a chain of OpAnd nodes.
func Conjuncts(v Value) []Value {
	return flatten(v, OpAnd)
}

// Disjuncts flattens a chain of OpOr nodes.
func Disjuncts(v Value) []Value {
	return flatten(v, OpOr)
}

func flatten(v Value, op Op) []Value {
	if b, ok := v.(*BinaryOp); ok && b.Op == op {
		return append(flatten(b.Left, op), flatten(b.Right, op)...)
	}
	return []Value{v}
}

// And builds the conjunction of two conditions, folding constants,
// duplicates and contradictions.
func And(a, b Value) Value {
	switch {
	case IsTrue(a):
		return b
	case IsTrue(b):
		return a
	case IsFalse(a) || IsFalse(b):
		return False
	}
	left := Conjuncts(a)
	var kept []Value
	for _, c := range Conjuncts(b) {
		if containsValue(left, Negate(c)) {
			return False
		}
		if !containsValue(left, c) && !containsValue(kept, c) {
			kept = append(kept, c)
		}
	}
	return chain(OpAnd, append(left, kept...))
}

// AndAll folds And over the values; an empty list is true.
func AndAll(vs ...Value) Value {
	var out Value = True
	for _, v := range vs {
		out = And(out, v)
	}
	return out
}

// Or builds the disjunction of two conditions. Besides folding constants
// and duplicates it applies absorption of complements: in a OR (NOT a AND b)
// the NOT a is dropped, giving a OR b.
func Or(a, b Value) Value {
	switch {
	case IsFalse(a):
		return b
	case IsFalse(b):
		return a
	case IsTrue(a) || IsTrue(b):
		return True
	}
	left := Disjuncts(a)
	var kept []Value
	for _, d := range Disjuncts(b) {
		d = dropComplements(d, left)
		if IsTrue(d) {
			return True
		}
		if containsValue(left, Negate(d)) {
			return True
		}
		if !containsValue(left, d) && !containsValue(kept, d) {
			kept = append(kept, d)
		}
	}
	// Earlier disjuncts can be simplified by later ones as well.
	for i, d := range left {
		left[i] = dropComplements(d, kept)
	}
	return chain(OpOr, append(left, kept...))
}

// OrAll folds Or over the values; an empty list is false.
func OrAll(vs ...Value) Value {
	var out Value = False
	for _, v := range vs {
		out = Or(out, v)
	}
	return out
}

// dropComplements removes from the conjunction d every conjunct that is the
// complement of one of the disjuncts.
func dropComplements(d Value, disjuncts []Value) Value {
	conj := Conjuncts(d)
	if len(conj) < 2 {
		return d
	}
	var kept []Value
	for _, c := range conj {
		if containsValue(disjuncts, Negate(c)) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == len(conj) {
		return d
	}
	return chain(OpAnd, kept)
}

// chain rebuilds a left-associated chain of a logical operator.
func chain(op Op, vs []Value) Value {
	if len(vs) == 0 {
		if op == OpAnd {
			return True
		}
		return False
	}
	out := vs[0]
	for _, v := range vs[1:] {
		out = &BinaryOp{Op: op, Left: out, Right: v, T: ir.Bool}
	}
	return out
}

func containsValue(vs []Value, v Value) bool {
	for _, x := range vs {
		if Equal(x, v) {
			return true
		}
	}
	return false
}
