package jpql

import (
	"fmt"
	"strconv"

	"github.com/roach88/lambdaq/internal/ir"
)

// Precedence orders operator binding strength. A child is parenthesised
// when its precedence is lower than the scope it is generated in.
type Precedence int

const (
	Unrestricted Precedence = iota
	PrecOr
	PrecAnd
	PrecNot
	PrecComparison
	PrecAdditive
	PrecMultiplicative
	PrecUnaryMinus
	PrecPrimary
)

// PrecedenceOf returns the binding strength of e's top-level operator.
func PrecedenceOf(e Expression) Precedence {
	switch n := e.(type) {
	case *Binary:
		switch {
		case n.Op == OpOr:
			return PrecOr
		case n.Op == OpAnd:
			return PrecAnd
		case n.Op.IsComparison():
			return PrecComparison
		case n.Op == OpAdd || n.Op == OpSub:
			return PrecAdditive
		default:
			return PrecMultiplicative
		}
	case *Unary:
		switch n.Op {
		case OpNot:
			return PrecNot
		case OpNeg:
			return PrecUnaryMinus
		default:
			return PrecComparison
		}
	case *Tuple:
		return Unrestricted
	}
	return PrecPrimary
}

// Prepare registers the parameters, sources and intrinsic functions of e.
// Parameters receive ordinals in first-seen order.
func Prepare(st *GenerationState, e Expression) error {
	if st.phase != Preparing {
		return fmt.Errorf("prepare called while %s", st.phase)
	}
	return prepare(st, e)
}

func prepare(st *GenerationState, e Expression) error {
	switch n := e.(type) {
	case nil:
		return fmt.Errorf("nil expression")
	case *Path:
		if n.Source == nil {
			return fmt.Errorf("path %v has no source", n.Fields)
		}
		st.RegisterSource(n.Source)
	case *Literal:
	case *Param:
		st.registerParam(n)
	case *Binary:
		if err := prepare(st, n.Left); err != nil {
			return err
		}
		return prepare(st, n.Right)
	case *Unary:
		return prepare(st, n.Operand)
	case *FunctionCall:
		if n.Intrinsic {
			st.intrinsics[n.Name] = true
		}
		return prepareAll(st, n.Args)
	case *CaseWhen:
		for _, w := range n.Whens {
			if err := prepare(st, w.Cond); err != nil {
				return err
			}
			if err := prepare(st, w.Then); err != nil {
				return err
			}
		}
		if n.Else != nil {
			return prepare(st, n.Else)
		}
	case *Tuple:
		return prepareAll(st, n.Elems)
	default:
		return fmt.Errorf("unknown expression %T", e)
	}
	return nil
}

func prepareAll(st *GenerationState, es []Expression) error {
	for _, e := range es {
		if err := prepare(st, e); err != nil {
			return err
		}
	}
	return nil
}

// Generate writes e to the state's buffer. e is parenthesised when its
// precedence is lower than scope.
func Generate(st *GenerationState, e Expression, scope Precedence) error {
	if st.phase != Generating {
		return fmt.Errorf("generate called while %s", st.phase)
	}
	return generate(st, e, scope)
}

// GenerateSelectList writes a select expression. Unlike Generate it
// accepts a Tuple, whose elements become the comma-separated select list.
func GenerateSelectList(st *GenerationState, e Expression) error {
	if st.phase != Generating {
		return fmt.Errorf("generate called while %s", st.phase)
	}
	if tup, ok := e.(*Tuple); ok {
		return generateList(st, tup.Elems)
	}
	return generate(st, e, Unrestricted)
}

func generate(st *GenerationState, e Expression, scope Precedence) error {
	if _, ok := e.(*Tuple); ok {
		return ir.NewUnsupportedOperation("a tuple can only be selected, not used in an expression")
	}
	if PrecedenceOf(e) < scope {
		st.write("(")
		if err := generateBare(st, e); err != nil {
			return err
		}
		st.write(")")
		return nil
	}
	return generateBare(st, e)
}

func generateBare(st *GenerationState, e Expression) error {
	switch n := e.(type) {
	case *Path:
		alias, ok := st.Alias(n.Source)
		if !ok {
			return fmt.Errorf("source %s was not prepared", n.Source.Entity)
		}
		st.write(alias)
		for _, f := range n.Fields {
			st.write(".")
			st.write(f)
		}
	case *Literal:
		text, err := FormatLiteral(n)
		if err != nil {
			return err
		}
		st.write(text)
	case *Param:
		ordinal, ok := st.ParamOrdinal(n)
		if !ok {
			return fmt.Errorf("parameter for slot %d was not prepared", n.Slot)
		}
		st.write(":param" + strconv.Itoa(ordinal))
	case *Binary:
		return generateBinary(st, n)
	case *Unary:
		return generateUnary(st, n)
	case *FunctionCall:
		if n.Intrinsic {
			st.write("function(")
			st.write(quote(n.Name))
			if len(n.Args) > 0 {
				st.write(", ")
			}
		} else {
			st.write(n.Name)
			st.write("(")
		}
		if err := generateList(st, n.Args); err != nil {
			return err
		}
		st.write(")")
	case *CaseWhen:
		st.write("CASE")
		for _, w := range n.Whens {
			st.write(" WHEN ")
			if err := generate(st, w.Cond, Unrestricted); err != nil {
				return err
			}
			st.write(" THEN ")
			if err := generate(st, w.Then, Unrestricted); err != nil {
				return err
			}
		}
		if n.Else != nil {
			st.write(" ELSE ")
			if err := generate(st, n.Else, Unrestricted); err != nil {
				return err
			}
		}
		st.write(" END")
	default:
		return fmt.Errorf("unknown expression %T", e)
	}
	return nil
}

func generateBinary(st *GenerationState, n *Binary) error {
	own := PrecedenceOf(n)
	right := own
	if n.Op == OpSub || n.Op == OpDiv || n.Op.IsComparison() {
		right = own + 1
	}
	if err := generate(st, n.Left, own); err != nil {
		return err
	}
	st.write(" " + n.Op.String() + " ")
	return generate(st, n.Right, right)
}

func generateUnary(st *GenerationState, n *Unary) error {
	switch n.Op {
	case OpNot:
		st.write("NOT ")
		return generate(st, n.Operand, PrecNot)
	case OpNeg:
		st.write("-")
		if isNegativeLiteral(n.Operand) {
			st.write("(")
			defer st.write(")")
		}
		return generate(st, n.Operand, PrecUnaryMinus)
	case OpIsNull, OpIsNotNull:
		if err := generate(st, n.Operand, PrecComparison+1); err != nil {
			return err
		}
		if n.Op == OpIsNull {
			st.write(" IS NULL")
		} else {
			st.write(" IS NOT NULL")
		}
		return nil
	}
	return fmt.Errorf("unknown unary operator %d", n.Op)
}

func generateList(st *GenerationState, es []Expression) error {
	for i, e := range es {
		if i > 0 {
			st.write(", ")
		}
		if err := generate(st, e, Unrestricted); err != nil {
			return err
		}
	}
	return nil
}
