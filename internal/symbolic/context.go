package symbolic

// Context is passed down while a tree is interpreted or lowered and records
// what the enclosing expression expects of a sub-expression.
//
// Context is a value type. Derivations return modified copies, so a context
// handed to one branch can never be changed by another.
type Context struct {
	// Parent is the enclosing node, if any. It is a reference for
	// inspection only.
	Parent Value

	// ExpectingBoolean is set when the sub-expression is used as a
	// condition (a filter, a branch, an operand of AND/OR/NOT) rather than
	// as a value.
	ExpectingBoolean bool

	// AcceptsCharSequence is set when the consumer can take any character
	// sequence, not only a string.
	AcceptsCharSequence bool
}

// With returns a context for a child of parent.
func With(parent Value, expectingBoolean bool) Context {
	return Context{Parent: parent, ExpectingBoolean: expectingBoolean}
}

// Copy returns an independent copy of c.
func (c Context) Copy() Context {
	return c
}

// AcceptingCharSequence returns a copy of c that accepts char sequences.
func (c Context) AcceptingCharSequence() Context {
	c.AcceptsCharSequence = true
	return c
}

// WithParent returns a copy of c with a different parent.
func (c Context) WithParent(parent Value) Context {
	c.Parent = parent
	return c
}

// ExpectingConditional returns a copy of c with ExpectingBoolean set to b.
func (c Context) ExpectingConditional(b bool) Context {
	c.ExpectingBoolean = b
	return c
}
