// Package bytecode reads and writes compiled closure bodies.
//
// A closure body is a small stack-machine program: a constant pool, a local
// slot count and a list of instructions. The binary layout (big-endian) is
//
//	magic "LQBC" | version u8 | maxLocals u16 | nconst u16 | constants |
//	ninstr u32 | instructions
//
// Decode and Encode convert between bytes and Program; Assemble and
// Disassemble convert between Program and a line-oriented text form used by
// tests, scenario files and the CLI.
//
// The reader only checks structure. Whether an instruction can be
// translated is decided by the interpreter, which rejects the recognised
// but unsupported opcodes (invokedynamic, monitorenter, putfield, athrow).
package bytecode
