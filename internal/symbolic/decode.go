package symbolic

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

var binaryOps = func() map[string]Op {
	m := make(map[string]Op)
	for op := OpAdd; op <= OpOr; op++ {
		m[op.String()] = op
	}
	return m
}()

var unaryOps = map[string]Op{
	OpNeg.String(): OpNeg,
	OpNot.String(): OpNot,
}

// Decode rebuilds a tree from the canonical form produced by Encode.
func Decode(v ir.IRValue) (Value, error) {
	if _, ok := v.(ir.IRNull); ok {
		return nil, nil
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("node: expected object, got %T", v)
	}
	kind, err := str(obj, "kind")
	if err != nil {
		return nil, err
	}
	t, err := ir.DecodeType(obj["type"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	switch kind {
	case "const":
		key, err := str(obj, "value")
		if err != nil {
			return nil, err
		}
		val, err := decodeConst(key)
		if err != nil {
			return nil, err
		}
		if b, ok := val.(bool); ok && t == ir.Bool {
			return Bool(b), nil
		}
		return &Constant{Val: val, T: t}, nil
	case "field":
		base, err := Decode(obj["base"])
		if err != nil {
			return nil, fmt.Errorf("field base: %w", err)
		}
		name, err := str(obj, "field")
		if err != nil {
			return nil, err
		}
		return &FieldAccess{Base: base, Field: name, T: t}, nil
	case "call":
		recv, err := Decode(obj["receiver"])
		if err != nil {
			return nil, fmt.Errorf("call receiver: %w", err)
		}
		owner, err := str(obj, "owner")
		if err != nil {
			return nil, err
		}
		method, err := str(obj, "method")
		if err != nil {
			return nil, err
		}
		args, err := decodeAll(obj["args"])
		if err != nil {
			return nil, fmt.Errorf("call %s.%s: %w", owner, method, err)
		}
		return &MethodCall{Receiver: recv, Owner: owner, Method: method, Args: args, T: t}, nil
	case "concat":
		recipe, err := str(obj, "recipe")
		if err != nil {
			return nil, err
		}
		args, err := decodeAll(obj["args"])
		if err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
		return &StringConcat{Recipe: recipe, Args: args}, nil
	case "binary":
		sym, err := str(obj, "op")
		if err != nil {
			return nil, err
		}
		op, ok := binaryOps[sym]
		if !ok {
			return nil, fmt.Errorf("binary: unknown operator %q", sym)
		}
		left, err := Decode(obj["left"])
		if err != nil {
			return nil, fmt.Errorf("binary %s left: %w", sym, err)
		}
		right, err := Decode(obj["right"])
		if err != nil {
			return nil, fmt.Errorf("binary %s right: %w", sym, err)
		}
		return &BinaryOp{Op: op, Left: left, Right: right, T: t}, nil
	case "unary":
		sym, err := str(obj, "op")
		if err != nil {
			return nil, err
		}
		op, ok := unaryOps[sym]
		if !ok {
			return nil, fmt.Errorf("unary: unknown operator %q", sym)
		}
		operand, err := Decode(obj["operand"])
		if err != nil {
			return nil, fmt.Errorf("unary %s: %w", sym, err)
		}
		return &UnaryOp{Op: op, Operand: operand, T: t}, nil
	case "cast":
		operand, err := Decode(obj["operand"])
		if err != nil {
			return nil, fmt.Errorf("cast: %w", err)
		}
		return &Cast{Operand: operand, T: t}, nil
	case "tuple":
		elems, err := decodeAll(obj["elems"])
		if err != nil {
			return nil, fmt.Errorf("tuple: %w", err)
		}
		return &Tuple{Elems: elems}, nil
	case "param":
		slot, err := integer(obj, "slot")
		if err != nil {
			return nil, err
		}
		return &ParamRef{Slot: slot, T: t}, nil
	case "arg":
		index, err := integer(obj, "index")
		if err != nil {
			return nil, err
		}
		return &Arg{Index: index, T: t}, nil
	case "cond":
		var parts [3]Value
		for i, name := range []string{"cond", "then", "else"} {
			p, err := Decode(obj[name])
			if err != nil {
				return nil, fmt.Errorf("conditional %s: %w", name, err)
			}
			parts[i] = p
		}
		return &Conditional{Cond: parts[0], Then: parts[1], Else: parts[2], T: t}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", kind)
}

func decodeConst(key string) (any, error) {
	if key == "null" {
		return nil, nil
	}
	tag, body, ok := strings.Cut(key, ":")
	if !ok {
		return nil, fmt.Errorf("constant: malformed value %q", key)
	}
	switch tag {
	case "bool":
		return strconv.ParseBool(body)
	case "int":
		return strconv.ParseInt(body, 10, 64)
	case "float":
		bits, err := strconv.ParseUint(body, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("constant: %w", err)
		}
		return math.Float64frombits(bits), nil
	case "str":
		return body, nil
	case "dec":
		d, _, err := apd.NewFromString(body)
		if err != nil {
			return nil, fmt.Errorf("constant: %w", err)
		}
		return d, nil
	case "big":
		b, ok := new(apd.BigInt).SetString(body, 10)
		if !ok {
			return nil, fmt.Errorf("constant: invalid integer %q", body)
		}
		return b, nil
	case "enum":
		i := strings.LastIndexByte(body, '.')
		if i < 0 {
			return nil, fmt.Errorf("constant: malformed enum %q", body)
		}
		return EnumConstant{Type: body[:i], Name: body[i+1:]}, nil
	}
	return nil, fmt.Errorf("constant: unknown tag %q", tag)
}

func decodeAll(v ir.IRValue) ([]Value, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]Value, len(arr))
	for i, elem := range arr {
		d, err := Decode(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func str(obj ir.IRObject, key string) (string, error) {
	s, ok := obj[key].(ir.IRString)
	if !ok {
		return "", fmt.Errorf("node: %q is %T, want string", key, obj[key])
	}
	return string(s), nil
}

func integer(obj ir.IRObject, key string) (int, error) {
	n, ok := obj[key].(ir.IRInt)
	if !ok {
		return 0, fmt.Errorf("node: %q is %T, want integer", key, obj[key])
	}
	return int(n), nil
}
