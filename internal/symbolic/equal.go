package symbolic

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

// Equal reports whether two trees are structurally identical: same node
// kinds, operators, types and constants, recursively.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.T == y.T && constKey(x.Val) == constKey(y.Val)
	case *FieldAccess:
		y, ok := b.(*FieldAccess)
		return ok && x.Field == y.Field && x.T == y.T && Equal(x.Base, y.Base)
	case *MethodCall:
		y, ok := b.(*MethodCall)
		return ok && x.Owner == y.Owner && x.Method == y.Method && x.T == y.T &&
			Equal(x.Receiver, y.Receiver) && equalAll(x.Args, y.Args)
	case *StringConcat:
		y, ok := b.(*StringConcat)
		return ok && x.Recipe == y.Recipe && equalAll(x.Args, y.Args)
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		return ok && x.Op == y.Op && x.T == y.T && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryOp:
		y, ok := b.(*UnaryOp)
		return ok && x.Op == y.Op && x.T == y.T && Equal(x.Operand, y.Operand)
	case *Cast:
		y, ok := b.(*Cast)
		return ok && x.T == y.T && Equal(x.Operand, y.Operand)
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalAll(x.Elems, y.Elems)
	case *ParamRef:
		y, ok := b.(*ParamRef)
		return ok && x.Slot == y.Slot && x.T == y.T
	case *Arg:
		y, ok := b.(*Arg)
		return ok && x.Index == y.Index && x.T == y.T
	case *Conditional:
		y, ok := b.(*Conditional)
		return ok && x.T == y.T && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	}
	return false
}

// EqualAll reports whether two value lists are pairwise equal.
func EqualAll(a, b []Value) bool {
	return equalAll(a, b)
}

func equalAll(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// constKey is the identity of a constant's value. Equal and Encode both
// use it, which keeps Equal and Hash consistent.
func constKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool:" + strconv.FormatBool(val)
	case int64:
		return "int:" + strconv.FormatInt(val, 10)
	case float64:
		return "float:" + strconv.FormatUint(math.Float64bits(val), 16)
	case string:
		return "str:" + val
	case *apd.Decimal:
		return "dec:" + val.String()
	case *apd.BigInt:
		return "big:" + val.String()
	case EnumConstant:
		return "enum:" + val.Type + "." + val.Name
	default:
		return fmt.Sprintf("other:%T:%v", v, v)
	}
}

// Hash returns the structural hash of a tree. Equal trees have equal
// hashes.
func Hash(v Value) string {
	id, err := ir.HashCanonical(ir.DomainSymbolic, Encode(v))
	if err != nil {
		// Encode emits only strings, integers, arrays and objects.
		panic(err)
	}
	return id
}

// Encode returns the canonical IR form of a tree.
func Encode(v Value) ir.IRValue {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}
	case *Constant:
		return node("const", val.T, ir.IRObject{"value": ir.IRString(constKey(val.Val))})
	case *FieldAccess:
		return node("field", val.T, ir.IRObject{"base": Encode(val.Base), "field": ir.IRString(val.Field)})
	case *MethodCall:
		return node("call", val.T, ir.IRObject{
			"receiver": Encode(val.Receiver),
			"owner":    ir.IRString(val.Owner),
			"method":   ir.IRString(val.Method),
			"args":     encodeAll(val.Args),
		})
	case *StringConcat:
		return node("concat", ir.String, ir.IRObject{"recipe": ir.IRString(val.Recipe), "args": encodeAll(val.Args)})
	case *BinaryOp:
		return node("binary", val.T, ir.IRObject{
			"op":    ir.IRString(val.Op.String()),
			"left":  Encode(val.Left),
			"right": Encode(val.Right),
		})
	case *UnaryOp:
		return node("unary", val.T, ir.IRObject{"op": ir.IRString(val.Op.String()), "operand": Encode(val.Operand)})
	case *Cast:
		return node("cast", val.T, ir.IRObject{"operand": Encode(val.Operand)})
	case *Tuple:
		return node("tuple", ir.Tuple, ir.IRObject{"elems": encodeAll(val.Elems)})
	case *ParamRef:
		return node("param", val.T, ir.IRObject{"slot": ir.IRInt(val.Slot)})
	case *Arg:
		return node("arg", val.T, ir.IRObject{"index": ir.IRInt(val.Index)})
	case *Conditional:
		return node("cond", val.T, ir.IRObject{
			"cond": Encode(val.Cond),
			"then": Encode(val.Then),
			"else": Encode(val.Else),
		})
	}
	return ir.IRObject{"kind": ir.IRString(fmt.Sprintf("unknown:%T", v))}
}

func node(kind string, t ir.Type, fields ir.IRObject) ir.IRObject {
	fields["kind"] = ir.IRString(kind)
	fields["type"] = ir.EncodeType(t)
	return fields
}

func encodeAll(vs []Value) ir.IRArray {
	arr := make(ir.IRArray, len(vs))
	for i, v := range vs {
		arr[i] = Encode(v)
	}
	return arr
}
