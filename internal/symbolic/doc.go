// Package symbolic defines the expression tree the interpreter rebuilds
// from a closure body, and the boolean algebra used to combine the path
// conditions of its branches.
//
// Trees are immutable and compared structurally with Equal; Hash gives a
// content-addressed identity consistent with Equal.
package symbolic
