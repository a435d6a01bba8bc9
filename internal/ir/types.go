package ir

import (
	"fmt"
	"strings"
)

// Kind is the static category of a value flowing through a closure.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindDecimal
	KindBigInteger
	KindString
	KindCharSequence
	KindDate
	KindTime
	KindTimestamp
	KindCalendar
	KindEnum
	KindEntity
	KindBytes
	KindCollection
	KindObject
	KindTuple
)

var kindNames = map[Kind]string{
	KindVoid:         "void",
	KindBool:         "boolean",
	KindInt:          "int",
	KindLong:         "long",
	KindFloat:        "float",
	KindDouble:       "double",
	KindDecimal:      "decimal",
	KindBigInteger:   "biginteger",
	KindString:       "string",
	KindCharSequence: "charsequence",
	KindDate:         "date",
	KindTime:         "time",
	KindTimestamp:    "timestamp",
	KindCalendar:     "calendar",
	KindEnum:         "enum",
	KindEntity:       "entity",
	KindBytes:        "bytes",
	KindCollection:   "collection",
	KindObject:       "object",
	KindTuple:        "tuple",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// builtinTypes maps descriptor spellings to kinds. Java-style names are
// accepted alongside the short forms so descriptors read naturally.
var builtinTypes = map[string]Kind{
	"void":         KindVoid,
	"boolean":      KindBool,
	"bool":         KindBool,
	"Boolean":      KindBool,
	"int":          KindInt,
	"Integer":      KindInt,
	"long":         KindLong,
	"Long":         KindLong,
	"float":        KindFloat,
	"Float":        KindFloat,
	"double":       KindDouble,
	"Double":       KindDouble,
	"decimal":      KindDecimal,
	"BigDecimal":   KindDecimal,
	"biginteger":   KindBigInteger,
	"BigInteger":   KindBigInteger,
	"string":       KindString,
	"String":       KindString,
	"charsequence": KindCharSequence,
	"CharSequence": KindCharSequence,
	"date":         KindDate,
	"Date":         KindDate,
	"time":         KindTime,
	"Time":         KindTime,
	"timestamp":    KindTimestamp,
	"Timestamp":    KindTimestamp,
	"calendar":     KindCalendar,
	"Calendar":     KindCalendar,
	"bytes":        KindBytes,
	"collection":   KindCollection,
	"Collection":   KindCollection,
	"object":       KindObject,
	"Object":       KindObject,
	"tuple":        KindTuple,
	"Pair":         KindTuple,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a static type descriptor. Name is set for entities and enums
// (the schema name) and is empty otherwise.
type Type struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name,omitempty"`
}

// Convenience descriptors for the builtin kinds.
var (
	Void         = Type{Kind: KindVoid}
	Bool         = Type{Kind: KindBool}
	Int          = Type{Kind: KindInt}
	Long         = Type{Kind: KindLong}
	Float        = Type{Kind: KindFloat}
	Double       = Type{Kind: KindDouble}
	Decimal      = Type{Kind: KindDecimal}
	BigInteger   = Type{Kind: KindBigInteger}
	String       = Type{Kind: KindString}
	CharSequence = Type{Kind: KindCharSequence}
	Date         = Type{Kind: KindDate}
	Time         = Type{Kind: KindTime}
	Timestamp    = Type{Kind: KindTimestamp}
	Calendar     = Type{Kind: KindCalendar}
	Object       = Type{Kind: KindObject}
	Collection   = Type{Kind: KindCollection}
	Tuple        = Type{Kind: KindTuple}
)

// EntityType returns the descriptor of a mapped entity.
func EntityType(name string) Type {
	return Type{Kind: KindEntity, Name: name}
}

// EnumType returns the descriptor of an enum.
func EnumType(name string) Type {
	return Type{Kind: KindEnum, Name: name}
}

// ParseType resolves a descriptor spelling. Names that are not builtin
// become KindObject types carrying the name; Schema.Resolve turns those
// into entities or enums.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Type{}, fmt.Errorf("empty type name")
	}
	if k, ok := builtinTypes[s]; ok {
		return Type{Kind: k}, nil
	}
	for _, r := range s {
		if !(r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return Type{}, fmt.Errorf("invalid type name %q", s)
		}
	}
	return Type{Kind: KindObject, Name: s}, nil
}

func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Kind.String()
}

// IsNumeric reports whether arithmetic is defined on t.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case KindInt, KindLong, KindFloat, KindDouble, KindDecimal, KindBigInteger:
		return true
	}
	return false
}

// IsIntegral reports whether t is a fixed-width integer.
func (t Type) IsIntegral() bool {
	return t.Kind == KindInt || t.Kind == KindLong
}

// IsFloating reports whether t is a binary floating point type.
func (t Type) IsFloating() bool {
	return t.Kind == KindFloat || t.Kind == KindDouble
}

// IsTemporal reports whether t is one of the date or time kinds.
func (t Type) IsTemporal() bool {
	switch t.Kind {
	case KindDate, KindTime, KindTimestamp, KindCalendar:
		return true
	}
	return false
}

// IsStringLike reports whether t is a string or a char sequence.
func (t Type) IsStringLike() bool {
	return t.Kind == KindString || t.Kind == KindCharSequence
}

// Promote returns the common representation of a binary arithmetic or
// comparison operand pair. The ordering is integral < floating < decimal;
// big integers absorb integral operands and widen to decimal with anything
// fractional. Promote is commutative.
func Promote(a, b Type) (Type, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Type{}, fmt.Errorf("cannot promote %s and %s", a, b)
	}
	if a.Kind > b.Kind {
		a, b = b, a
	}
	switch {
	case a.Kind == b.Kind:
		return a, nil
	case b.Kind == KindBigInteger && a.IsIntegral():
		return BigInteger, nil
	case b.Kind == KindBigInteger:
		return Decimal, nil
	default:
		// Kinds are declared in widening order for the remaining cases.
		return b, nil
	}
}
