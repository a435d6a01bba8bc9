package symbolic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Format renders a tree in a compact source-like notation for logs and
// error messages.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Constant:
		b.WriteString(formatConst(val.Val))
	case *FieldAccess:
		format(b, val.Base)
		b.WriteString(".")
		b.WriteString(val.Field)
	case *MethodCall:
		if val.Receiver != nil {
			format(b, val.Receiver)
		} else {
			b.WriteString(val.Owner)
		}
		b.WriteString(".")
		b.WriteString(val.Method)
		formatList(b, "(", val.Args, ")")
	case *StringConcat:
		b.WriteString("concat")
		b.WriteString("(")
		for i, p := range val.Pieces() {
			if i > 0 {
				b.WriteString(", ")
			}
			if p.Arg != nil {
				format(b, p.Arg)
			} else {
				b.WriteString(strconv.Quote(p.Text))
			}
		}
		b.WriteString(")")
	case *BinaryOp:
		b.WriteString("(")
		format(b, val.Left)
		fmt.Fprintf(b, " %s ", val.Op)
		format(b, val.Right)
		b.WriteString(")")
	case *UnaryOp:
		b.WriteString(val.Op.String())
		format(b, val.Operand)
	case *Cast:
		fmt.Fprintf(b, "(%s)", val.T)
		format(b, val.Operand)
	case *Tuple:
		formatList(b, "(", val.Elems, ")")
	case *ParamRef:
		fmt.Fprintf(b, "captured%d", val.Slot)
	case *Arg:
		fmt.Fprintf(b, "arg%d", val.Index)
	case *Conditional:
		b.WriteString("(")
		format(b, val.Cond)
		b.WriteString(" ? ")
		format(b, val.Then)
		b.WriteString(" : ")
		format(b, val.Else)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "%T", v)
	}
}

func formatList(b *strings.Builder, open string, vs []Value, closing string) {
	b.WriteString(open)
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, v)
	}
	b.WriteString(closing)
}

func formatConst(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case *apd.Decimal:
		return val.String() + "d"
	case *apd.BigInt:
		return val.String() + "n"
	case EnumConstant:
		return val.Type + "." + val.Name
	default:
		return fmt.Sprint(val)
	}
}
