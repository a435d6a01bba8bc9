package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// AsmError reports a malformed assembly line.
type AsmError struct {
	Line    int
	Message string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Assemble parses the text form of a closure body. One instruction per
// line; "name:" lines define branch labels; "#" starts a comment. A
// ".locals N" directive sets the local slot count, which otherwise defaults
// to one past the highest slot referenced.
//
//	load 1
//	getfield Customer.country:String
//	ldc string "UK"
//	invokevirtual String.equals:(Object)boolean
//	return
func Assemble(src string) (*Program, error) {
	a := &assembler{
		labels: make(map[string]int),
		pool:   make(map[string]int),
		prog:   &Program{MaxLocals: -1},
	}

	type fixup struct {
		pc    int
		label string
		line  int
	}
	var fixups []fixup
	maxSlot := -1

	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		if name, ok := strings.CutSuffix(line, ":"); ok && !strings.ContainsAny(name, " \t\"") {
			if _, dup := a.labels[name]; dup {
				return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("duplicate label %q", name)}
			}
			a.labels[name] = len(a.prog.Code)
			continue
		}

		mnemonic, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if mnemonic == ".locals" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 {
				return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("invalid .locals %q", rest)}
			}
			a.prog.MaxLocals = n
			continue
		}

		op, ok := opByName[mnemonic]
		if !ok {
			return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("unknown instruction %q", mnemonic)}
		}
		ins := Instruction{Op: op}

		var err error
		switch opTable[op].operand {
		case operandNone:
			if rest != "" {
				err = fmt.Errorf("%s takes no operand", op)
			}
		case operandImm8:
			ins.Arg, err = strconv.Atoi(rest)
		case operandSlot:
			ins.Arg, err = strconv.Atoi(rest)
			if err == nil && ins.Arg > maxSlot {
				maxSlot = ins.Arg
			}
		case operandTarget:
			if rest == "" {
				err = fmt.Errorf("%s requires a label", op)
			}
			fixups = append(fixups, fixup{pc: len(a.prog.Code), label: rest, line: lineNo})
		case operandArgc:
			ins.Argc, err = strconv.Atoi(rest)
		case operandPool:
			ins.Arg, err = a.poolOperand(op, rest)
		case operandPoolArgc:
			ins.Arg, ins.Argc, err = a.concatOperand(rest)
		}
		if err != nil {
			return nil, &AsmError{Line: lineNo, Message: err.Error()}
		}
		a.prog.Code = append(a.prog.Code, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, f := range fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, &AsmError{Line: f.line, Message: fmt.Sprintf("undefined label %q", f.label)}
		}
		a.prog.Code[f.pc].Arg = target
	}

	if a.prog.MaxLocals < 0 {
		a.prog.MaxLocals = maxSlot + 1
	}
	if err := a.prog.Validate(); err != nil {
		return nil, err
	}
	return a.prog, nil
}

// MustAssemble is like Assemble but panics on error.
// Use only in tests or with known-good sources.
func MustAssemble(src string) *Program {
	p, err := Assemble(src)
	if err != nil {
		panic(err)
	}
	return p
}

type assembler struct {
	labels map[string]int
	pool   map[string]int
	prog   *Program
}

// intern adds c to the pool once per distinct key.
func (a *assembler) intern(key string, c Constant) int {
	if idx, ok := a.pool[key]; ok {
		return idx
	}
	idx := len(a.prog.Pool)
	a.prog.Pool = append(a.prog.Pool, c)
	a.pool[key] = idx
	return idx
}

func (a *assembler) poolOperand(op Opcode, rest string) (int, error) {
	switch op {
	case OpLdc:
		c, err := parseLiteral(rest)
		if err != nil {
			return 0, err
		}
		return a.intern("v:"+rest, c), nil
	case OpCheckCast, OpInstanceOf, OpConvert:
		if rest == "" {
			return 0, fmt.Errorf("%s requires a type", op)
		}
		return a.intern("t:"+rest, Constant{Tag: TagType, Str: rest}), nil
	default:
		m, err := parseMember(rest)
		if err != nil {
			return 0, err
		}
		return a.intern("m:"+m.String(), Constant{Tag: TagMember, Member: m}), nil
	}
}

func (a *assembler) concatOperand(rest string) (int, int, error) {
	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return 0, 0, fmt.Errorf("concat requires a quoted recipe")
	}
	recipe, _ := strconv.Unquote(quoted)
	argc, err := strconv.Atoi(strings.TrimSpace(rest[len(quoted):]))
	if err != nil {
		return 0, 0, fmt.Errorf("concat requires an argument count")
	}
	return a.intern("s:"+recipe, Constant{Tag: TagString, Str: recipe}), argc, nil
}

// parseLiteral parses "kind value" as used by ldc.
func parseLiteral(s string) (Constant, error) {
	kind, val, _ := strings.Cut(s, " ")
	val = strings.TrimSpace(val)
	switch kind {
	case "null":
		return Constant{Tag: TagNull}, nil
	case "int", "long":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid %s literal %q", kind, val)
		}
		if kind == "int" {
			return Constant{Tag: TagInt, Int: n}, nil
		}
		return Constant{Tag: TagLong, Int: n}, nil
	case "double":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid double literal %q", val)
		}
		return Constant{Tag: TagDouble, Float: f}, nil
	case "bool":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid bool literal %q", val)
		}
		return Constant{Tag: TagBool, Bool: b}, nil
	case "string":
		str, err := strconv.Unquote(val)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid string literal %s", val)
		}
		return Constant{Tag: TagString, Str: str}, nil
	case "decimal":
		d, _, err := apd.NewFromString(val)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid decimal literal %q", val)
		}
		return Constant{Tag: TagDecimal, Decimal: d}, nil
	case "bigint":
		b, ok := new(apd.BigInt).SetString(val, 10)
		if !ok {
			return Constant{}, fmt.Errorf("invalid bigint literal %q", val)
		}
		return Constant{Tag: TagBigInt, BigInt: b}, nil
	default:
		return Constant{}, fmt.Errorf("unknown literal kind %q", kind)
	}
}

// parseMember parses Owner.name:descriptor. The owner may itself be
// qualified; the last dot before the colon separates the member name.
func parseMember(s string) (Member, error) {
	ref, desc, ok := strings.Cut(s, ":")
	if !ok || desc == "" {
		return Member{}, fmt.Errorf("member %q requires a descriptor", s)
	}
	dot := strings.LastIndexByte(ref, '.')
	if dot <= 0 || dot == len(ref)-1 {
		return Member{}, fmt.Errorf("member %q must be Owner.name", ref)
	}
	return Member{Owner: ref[:dot], Name: ref[dot+1:], Desc: desc}, nil
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

// Disassemble renders a program in the text form accepted by Assemble.
// Branch targets are rendered as labels named after their instruction index.
func Disassemble(p *Program) string {
	targets := make(map[int]bool)
	for _, ins := range p.Code {
		if ins.Op.IsBranch() {
			targets[ins.Arg] = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".locals %d\n", p.MaxLocals)
	for pc, ins := range p.Code {
		if targets[pc] {
			fmt.Fprintf(&b, "L%d:\n", pc)
		}
		b.WriteString("\t")
		b.WriteString(ins.Op.String())
		if operand := formatOperand(p, ins); operand != "" {
			b.WriteString(" ")
			b.WriteString(operand)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatOperand(p *Program, ins Instruction) string {
	if !ins.Op.Valid() {
		return ""
	}
	switch opTable[ins.Op].operand {
	case operandImm8, operandSlot:
		return strconv.Itoa(ins.Arg)
	case operandTarget:
		return fmt.Sprintf("L%d", ins.Arg)
	case operandArgc:
		return strconv.Itoa(ins.Argc)
	case operandPoolArgc:
		return fmt.Sprintf("%s %d", strconv.Quote(p.Pool[ins.Arg].Str), ins.Argc)
	case operandPool:
		return formatConstant(p.Pool[ins.Arg])
	}
	return ""
}

func formatConstant(c Constant) string {
	switch c.Tag {
	case TagNull:
		return "null"
	case TagInt:
		return "int " + strconv.FormatInt(c.Int, 10)
	case TagLong:
		return "long " + strconv.FormatInt(c.Int, 10)
	case TagDouble:
		return "double " + strconv.FormatFloat(c.Float, 'g', -1, 64)
	case TagBool:
		return "bool " + strconv.FormatBool(c.Bool)
	case TagString:
		return "string " + strconv.Quote(c.Str)
	case TagDecimal:
		return "decimal " + c.Decimal.String()
	case TagBigInt:
		return "bigint " + c.BigInt.String()
	case TagType:
		return c.Str
	case TagMember:
		return c.Member.String()
	}
	return ""
}
