package bytecode

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/lambdaq/internal/ir"
)

// Magic and Version identify the binary closure format.
const (
	Magic   = "LQBC"
	Version = 1
)

// Decode parses a binary closure body. Malformed input of any kind is an
// unsupported bytecode error; a successfully decoded program has passed
// Validate.
func Decode(data []byte) (*Program, error) {
	r := &reader{data: data}
	if string(r.bytes(len(Magic))) != Magic {
		return nil, ir.NewUnsupportedBytecode("bad magic")
	}
	if v := r.u8(); v != Version {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ir.NewUnsupportedBytecode("unsupported format version %d", v)
	}

	p := &Program{MaxLocals: int(r.u16())}

	nconst := int(r.u16())
	for i := 0; i < nconst && r.err == nil; i++ {
		c, err := r.constant()
		if err != nil {
			return nil, err
		}
		p.Pool = append(p.Pool, c)
	}

	ninstr := int(r.u32())
	for i := 0; i < ninstr && r.err == nil; i++ {
		op := Opcode(r.u8())
		if !op.Valid() {
			if r.err != nil {
				break
			}
			return nil, ir.NewUnsupportedBytecode("unknown opcode 0x%02x at %d", byte(op), i)
		}
		ins := Instruction{Op: op}
		switch opTable[op].operand {
		case operandImm8:
			ins.Arg = int(int8(r.u8()))
		case operandPool, operandSlot:
			ins.Arg = int(r.u16())
		case operandTarget:
			ins.Arg = int(r.u32())
		case operandPoolArgc:
			ins.Arg = int(r.u16())
			ins.Argc = int(r.u8())
		case operandArgc:
			ins.Argc = int(r.u8())
		}
		p.Code = append(p.Code, ins)
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		return nil, ir.NewUnsupportedBytecode("%d trailing bytes", len(data)-r.off)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode serializes a program to the binary closure format.
func Encode(p *Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	w := &writer{}
	w.buf.WriteString(Magic)
	w.u8(Version)
	w.u16(p.MaxLocals)
	w.u16(len(p.Pool))
	for _, c := range p.Pool {
		w.constant(c)
	}
	w.u32(len(p.Code))
	for _, ins := range p.Code {
		w.u8(byte(ins.Op))
		switch opTable[ins.Op].operand {
		case operandImm8:
			w.u8(byte(int8(ins.Arg)))
		case operandPool, operandSlot:
			w.u16(ins.Arg)
		case operandTarget:
			w.u32(ins.Arg)
		case operandPoolArgc:
			w.u16(ins.Arg)
			w.u8(byte(ins.Argc))
		case operandArgc:
			w.u8(byte(ins.Argc))
		}
	}
	return w.buf.Bytes(), nil
}

// reader is a cursor over the input that records the first error and turns
// every later read into a no-op.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = ir.NewUnsupportedBytecode("truncated stream at offset %d", r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() byte {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.bytes(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) str() string {
	return string(r.bytes(int(r.u32())))
}

func (r *reader) constant() (Constant, error) {
	c := Constant{Tag: ConstTag(r.u8())}
	switch c.Tag {
	case TagInt, TagLong:
		c.Int = int64(r.u64())
	case TagDouble:
		c.Float = math.Float64frombits(r.u64())
	case TagString, TagType:
		c.Str = r.str()
	case TagNull:
	case TagBool:
		c.Bool = r.u8() != 0
	case TagDecimal:
		s := r.str()
		if r.err != nil {
			break
		}
		d, _, err := apd.NewFromString(s)
		if err != nil {
			return c, ir.NewUnsupportedBytecode("invalid decimal constant %q", s)
		}
		c.Decimal = d
	case TagBigInt:
		s := r.str()
		if r.err != nil {
			break
		}
		b, ok := new(apd.BigInt).SetString(s, 10)
		if !ok {
			return c, ir.NewUnsupportedBytecode("invalid big integer constant %q", s)
		}
		c.BigInt = b
	case TagMember:
		c.Member = Member{Owner: r.str(), Name: r.str(), Desc: r.str()}
	default:
		if r.err == nil {
			return c, ir.NewUnsupportedBytecode("unknown constant tag %d", byte(c.Tag))
		}
	}
	return c, r.err
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v byte) {
	w.buf.WriteByte(v)
}

func (w *writer) u16(v int) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(v)))
}

func (w *writer) u32(v int) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(v)))
}

func (w *writer) u64(v uint64) {
	w.buf.Write(binary.BigEndian.AppendUint64(nil, v))
}

func (w *writer) str(s string) {
	w.u32(len(s))
	w.buf.WriteString(s)
}

func (w *writer) constant(c Constant) {
	w.u8(byte(c.Tag))
	switch c.Tag {
	case TagInt, TagLong:
		w.u64(uint64(c.Int))
	case TagDouble:
		w.u64(math.Float64bits(c.Float))
	case TagString, TagType:
		w.str(c.Str)
	case TagBool:
		if c.Bool {
			w.u8(1)
		} else {
			w.u8(0)
		}
	case TagDecimal:
		w.str(c.Decimal.String())
	case TagBigInt:
		w.str(c.BigInt.String())
	case TagMember:
		w.str(c.Member.Owner)
		w.str(c.Member.Name)
		w.str(c.Member.Desc)
	}
}
