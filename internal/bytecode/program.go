package bytecode

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

// ConstTag identifies the kind of a constant pool entry.
type ConstTag byte

const (
	TagInt     ConstTag = 1
	TagDouble  ConstTag = 2
	TagString  ConstTag = 3
	TagNull    ConstTag = 4
	TagBool    ConstTag = 5
	TagDecimal ConstTag = 6
	TagBigInt  ConstTag = 7
	TagMember  ConstTag = 8
	TagLong    ConstTag = 9
	TagType    ConstTag = 10
)

var tagNames = map[ConstTag]string{
	TagInt:     "int",
	TagDouble:  "double",
	TagString:  "string",
	TagNull:    "null",
	TagBool:    "bool",
	TagDecimal: "decimal",
	TagBigInt:  "bigint",
	TagMember:  "member",
	TagLong:    "long",
	TagType:    "type",
}

func (t ConstTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", byte(t))
}

// Constant is a constant pool entry. Only the field matching Tag is set;
// TagString and TagType use Str.
type Constant struct {
	Tag     ConstTag
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	Decimal *apd.Decimal
	BigInt  *apd.BigInt
	Member  Member
}

// Member references a field or method: Owner.Name with a descriptor. Field
// descriptors are a single type name; method descriptors have the form
// (T1,T2)R.
type Member struct {
	Owner string
	Name  string
	Desc  string
}

func (m Member) String() string {
	return m.Owner + "." + m.Name + ":" + m.Desc
}

// IsMethod reports whether the descriptor is a method signature.
func (m Member) IsMethod() bool {
	return strings.HasPrefix(m.Desc, "(")
}

// Signature parses a method descriptor into argument and return types.
func (m Member) Signature() ([]ir.Type, ir.Type, error) {
	if !m.IsMethod() {
		return nil, ir.Type{}, fmt.Errorf("%s is not a method descriptor", m.Desc)
	}
	closeIdx := strings.IndexByte(m.Desc, ')')
	if closeIdx < 0 {
		return nil, ir.Type{}, fmt.Errorf("malformed method descriptor %q", m.Desc)
	}
	var args []ir.Type
	if inner := strings.TrimSpace(m.Desc[1:closeIdx]); inner != "" {
		for _, part := range strings.Split(inner, ",") {
			t, err := ir.ParseType(part)
			if err != nil {
				return nil, ir.Type{}, fmt.Errorf("descriptor %q: %w", m.Desc, err)
			}
			args = append(args, t)
		}
	}
	ret, err := ir.ParseType(m.Desc[closeIdx+1:])
	if err != nil {
		return nil, ir.Type{}, fmt.Errorf("descriptor %q: %w", m.Desc, err)
	}
	return args, ret, nil
}

// FieldType parses a field descriptor.
func (m Member) FieldType() (ir.Type, error) {
	if m.IsMethod() {
		return ir.Type{}, fmt.Errorf("%s is a method descriptor", m.Desc)
	}
	return ir.ParseType(m.Desc)
}

// Instruction is a decoded instruction. Arg holds the single operand (an
// immediate, pool index, local slot or branch target); Argc is set for
// instructions that also carry an argument count.
type Instruction struct {
	Op   Opcode
	Arg  int
	Argc int
}

// Program is a decoded closure body.
type Program struct {
	MaxLocals int
	Pool      []Constant
	Code      []Instruction
}

// Const returns the pool entry referenced by the instruction at pc.
func (p *Program) Const(pc int) Constant {
	return p.Pool[p.Code[pc].Arg]
}

// Validate checks operand ranges and pool tags. Every failure is an
// unsupported bytecode error.
func (p *Program) Validate() error {
	if len(p.Code) == 0 {
		return ir.NewUnsupportedBytecode("empty instruction stream")
	}
	for i, c := range p.Pool {
		if _, ok := tagNames[c.Tag]; !ok {
			return ir.NewUnsupportedBytecode("unknown constant tag %d at pool index %d", byte(c.Tag), i)
		}
		if c.Tag == TagDecimal && c.Decimal == nil || c.Tag == TagBigInt && c.BigInt == nil {
			return ir.NewUnsupportedBytecode("missing %s value at pool index %d", c.Tag, i)
		}
	}
	for pc, ins := range p.Code {
		if !ins.Op.Valid() {
			return ir.NewUnsupportedBytecode("unknown opcode 0x%02x at %d", byte(ins.Op), pc)
		}
		info := opTable[ins.Op]
		switch info.operand {
		case operandImm8:
			if ins.Arg < -128 || ins.Arg > 127 {
				return ir.NewUnsupportedBytecode("%s immediate %d out of range at %d", ins.Op, ins.Arg, pc)
			}
		case operandSlot:
			if ins.Arg < 0 || ins.Arg >= p.MaxLocals {
				return ir.NewUnsupportedBytecode("%s slot %d out of range at %d", ins.Op, ins.Arg, pc)
			}
		case operandTarget:
			if ins.Arg < 0 || ins.Arg >= len(p.Code) {
				return ir.NewUnsupportedBytecode("%s target %d out of range at %d", ins.Op, ins.Arg, pc)
			}
		case operandPool, operandPoolArgc:
			if ins.Arg < 0 || ins.Arg >= len(p.Pool) {
				return ir.NewUnsupportedBytecode("%s pool index %d out of range at %d", ins.Op, ins.Arg, pc)
			}
			if tag := p.Pool[ins.Arg].Tag; !slices.Contains(info.pool, tag) {
				return ir.NewUnsupportedBytecode("%s cannot reference a %s constant at %d", ins.Op, tag, pc)
			}
		}
		if info.operand == operandPoolArgc || info.operand == operandArgc {
			if ins.Argc < 0 || ins.Argc > 255 {
				return ir.NewUnsupportedBytecode("%s argument count %d out of range at %d", ins.Op, ins.Argc, pc)
			}
		}
	}
	return nil
}
