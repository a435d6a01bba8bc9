package translate

import (
	"github.com/roach88/lambdaq/internal/ir"
)

// Closure is a compiled closure body with the static types of its
// arguments and the types and values of the variables it captured.
type Closure struct {
	// Code is the binary instruction stream, as read by bytecode.Decode.
	Code []byte

	// Args are the closure argument types. Query clauses take one
	// argument, the row.
	Args []ir.Type

	// Captured are the captured variables, in local slot order.
	Captured []Captured
}

// Captured is a variable captured by a closure. Its value is bound as a
// query parameter and never inlined into the text.
type Captured struct {
	Type  ir.Type
	Value any
}

// ID returns the closure identity. Captured values do not contribute, so
// the same closure capturing different values has one identity.
func (c Closure) ID() string {
	return ir.ClosureID(c.Code, c.Args, c.CapturedTypes())
}

// CapturedTypes returns the types of the captured variables.
func (c Closure) CapturedTypes() []ir.Type {
	types := make([]ir.Type, len(c.Captured))
	for i, v := range c.Captured {
		types[i] = v.Type
	}
	return types
}
