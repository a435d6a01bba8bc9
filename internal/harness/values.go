package harness

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
)

// convertValue converts a YAML-parsed value to the Go value a captured
// variable of type t holds.
func convertValue(s *ir.Schema, t ir.Type, val any) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch t.Kind {
	case ir.KindString, ir.KindCharSequence:
		v, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", val)
		}
		return v, nil
	case ir.KindBool:
		v, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", val)
		}
		return v, nil
	case ir.KindInt, ir.KindLong:
		switch v := val.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
		return nil, fmt.Errorf("expected integer, got %v", val)
	case ir.KindFloat, ir.KindDouble:
		switch v := val.(type) {
		case int:
			return float64(v), nil
		case float64:
			return v, nil
		}
		return nil, fmt.Errorf("expected number, got %T", val)
	case ir.KindDecimal:
		d, _, err := apd.NewFromString(fmt.Sprint(val))
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %v: %w", val, err)
		}
		return d, nil
	case ir.KindBigInteger:
		var b apd.BigInt
		if _, ok := b.SetString(fmt.Sprint(val), 10); !ok {
			return nil, fmt.Errorf("invalid integer %v", val)
		}
		return &b, nil
	case ir.KindEnum:
		name, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected enum constant name, got %T", val)
		}
		e, ok := s.Enum(t.Name)
		if !ok {
			return nil, fmt.Errorf("unknown enum %s", t.Name)
		}
		if !e.HasValue(name) {
			return nil, fmt.Errorf("%s has no constant %s", e.Name, name)
		}
		return jpql.EnumValue{Type: e.Qualified, Name: name}, nil
	}
	return nil, fmt.Errorf("values of type %s cannot be captured in a scenario", t)
}

// literal returns the query-text form of a parameter value.
func literal(t ir.Type, v any) string {
	switch n := v.(type) {
	case int:
		v = int64(n)
	}
	s, err := jpql.FormatLiteral(&jpql.Literal{Value: v, T: t})
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return s
}
