package bytecode

import "fmt"

// Opcode identifies an instruction.
type Opcode byte

// The supported instruction subset. Branch targets are instruction indices;
// only forward branches are accepted by the interpreter.
const (
	OpNop Opcode = iota
	OpNull
	OpIConst
	OpLdc
	OpLoad
	OpStore
	OpPop
	OpDup
	OpSwap
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpCmp
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfCmpEq
	OpIfCmpNe
	OpIfCmpLt
	OpIfCmpGe
	OpIfCmpGt
	OpIfCmpLe
	OpIfACmpEq
	OpIfACmpNe
	OpIfNull
	OpIfNonNull
	OpGoto
	OpGetField
	OpGetStatic
	OpInvokeVirtual
	OpInvokeStatic
	OpInvokeInterface
	OpNewTuple
	OpCheckCast
	OpInstanceOf
	OpConcat
	OpConvert
	OpReturn

	// Recognised so that they can be reported precisely, never translated.
	OpInvokeDynamic
	OpMonitorEnter
	OpPutField
	OpThrow

	opCount
)

// operandKind describes how an instruction's operands are laid out.
type operandKind int

const (
	operandNone     operandKind = iota
	operandImm8                 // signed 8-bit immediate
	operandPool                 // u16 constant pool index
	operandSlot                 // u16 local slot
	operandTarget               // u32 instruction index
	operandPoolArgc             // u16 pool index + u8 argument count
	operandArgc                 // u8 argument count
)

type opInfo struct {
	name    string
	operand operandKind
	// pool is the set of constant tags acceptable for pool operands.
	pool []ConstTag
}

var valueTags = []ConstTag{TagInt, TagLong, TagDouble, TagString, TagNull, TagBool, TagDecimal, TagBigInt}

var opTable = [opCount]opInfo{
	OpNop:             {"nop", operandNone, nil},
	OpNull:            {"aconst_null", operandNone, nil},
	OpIConst:          {"iconst", operandImm8, nil},
	OpLdc:             {"ldc", operandPool, valueTags},
	OpLoad:            {"load", operandSlot, nil},
	OpStore:           {"store", operandSlot, nil},
	OpPop:             {"pop", operandNone, nil},
	OpDup:             {"dup", operandNone, nil},
	OpSwap:            {"swap", operandNone, nil},
	OpAdd:             {"add", operandNone, nil},
	OpSub:             {"sub", operandNone, nil},
	OpMul:             {"mul", operandNone, nil},
	OpDiv:             {"div", operandNone, nil},
	OpRem:             {"rem", operandNone, nil},
	OpNeg:             {"neg", operandNone, nil},
	OpCmp:             {"cmp", operandNone, nil},
	OpIfEq:            {"ifeq", operandTarget, nil},
	OpIfNe:            {"ifne", operandTarget, nil},
	OpIfLt:            {"iflt", operandTarget, nil},
	OpIfGe:            {"ifge", operandTarget, nil},
	OpIfGt:            {"ifgt", operandTarget, nil},
	OpIfLe:            {"ifle", operandTarget, nil},
	OpIfCmpEq:         {"if_cmpeq", operandTarget, nil},
	OpIfCmpNe:         {"if_cmpne", operandTarget, nil},
	OpIfCmpLt:         {"if_cmplt", operandTarget, nil},
	OpIfCmpGe:         {"if_cmpge", operandTarget, nil},
	OpIfCmpGt:         {"if_cmpgt", operandTarget, nil},
	OpIfCmpLe:         {"if_cmple", operandTarget, nil},
	OpIfACmpEq:        {"if_acmpeq", operandTarget, nil},
	OpIfACmpNe:        {"if_acmpne", operandTarget, nil},
	OpIfNull:          {"ifnull", operandTarget, nil},
	OpIfNonNull:       {"ifnonnull", operandTarget, nil},
	OpGoto:            {"goto", operandTarget, nil},
	OpGetField:        {"getfield", operandPool, []ConstTag{TagMember}},
	OpGetStatic:       {"getstatic", operandPool, []ConstTag{TagMember}},
	OpInvokeVirtual:   {"invokevirtual", operandPool, []ConstTag{TagMember}},
	OpInvokeStatic:    {"invokestatic", operandPool, []ConstTag{TagMember}},
	OpInvokeInterface: {"invokeinterface", operandPool, []ConstTag{TagMember}},
	OpNewTuple:        {"new_tuple", operandArgc, nil},
	OpCheckCast:       {"checkcast", operandPool, []ConstTag{TagType}},
	OpInstanceOf:      {"instanceof", operandPool, []ConstTag{TagType}},
	OpConcat:          {"concat", operandPoolArgc, []ConstTag{TagString}},
	OpConvert:         {"convert", operandPool, []ConstTag{TagType}},
	OpReturn:          {"return", operandNone, nil},
	OpInvokeDynamic:   {"invokedynamic", operandPool, []ConstTag{TagMember}},
	OpMonitorEnter:    {"monitorenter", operandNone, nil},
	OpPutField:        {"putfield", operandPool, []ConstTag{TagMember}},
	OpThrow:           {"athrow", operandNone, nil},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opCount)
	for op := Opcode(0); op < opCount; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < opCount
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(0x%02x)", byte(op))
	}
	return opTable[op].name
}

// IsBranch reports whether op transfers control to its target operand.
func (op Opcode) IsBranch() bool {
	return op.Valid() && opTable[op].operand == operandTarget
}

// IsConditional reports whether op is a two-way branch.
func (op Opcode) IsConditional() bool {
	return op.IsBranch() && op != OpGoto
}

// IsInvoke reports whether op is a method call.
func (op Opcode) IsInvoke() bool {
	switch op {
	case OpInvokeVirtual, OpInvokeStatic, OpInvokeInterface, OpInvokeDynamic:
		return true
	}
	return false
}

// Unsupported reports whether op is decoded only to be rejected.
func (op Opcode) Unsupported() bool {
	return op >= OpInvokeDynamic && op < opCount
}
