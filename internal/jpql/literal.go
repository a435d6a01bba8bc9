package jpql

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

// FormatLiteral returns the query-text spelling of a literal.
//
// Strings are single-quoted with embedded quotes doubled; backslashes have
// no special meaning. Floating values always carry a fractional part so
// they are not read back as integers.
func FormatLiteral(l *Literal) (string, error) {
	switch v := l.Value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		if l.T.IsFloating() {
			return formatFloat(float64(v), l.T)
		}
		return strconv.FormatInt(v, 10), nil
	case float64:
		return formatFloat(v, l.T)
	case string:
		return quote(v), nil
	case *apd.Decimal:
		return v.Text('f'), nil
	case *apd.BigInt:
		return v.String(), nil
	case EnumValue:
		return v.Type + "." + v.Name, nil
	}
	return "", ir.NewTypeMismatch("no literal form for %T", l.Value)
}

// formatFloat spells f with the fewest digits that read back as the same
// value of t's width.
func formatFloat(f float64, t ir.Type) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ir.NewTypeMismatch("no literal form for %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, floatBits(t))
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func floatBits(t ir.Type) int {
	if t.Kind == ir.KindFloat {
		return 32
	}
	return 64
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isNegativeLiteral(e Expression) bool {
	l, ok := e.(*Literal)
	if !ok {
		return false
	}
	switch v := l.Value.(type) {
	case int64:
		return v < 0
	case float64:
		return v < 0 || math.Signbit(v)
	case *apd.Decimal:
		return v.Negative
	case *apd.BigInt:
		return v.Sign() < 0
	}
	return false
}

// literalKey identifies a literal value for structural comparison.
func literalKey(v any) string {
	switch val := v.(type) {
	case *apd.Decimal:
		return "dec:" + val.String()
	case *apd.BigInt:
		return "big:" + val.String()
	case float64:
		return "float:" + strconv.FormatUint(math.Float64bits(val), 16)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
