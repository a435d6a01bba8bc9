// Package lower turns symbolic values into query expressions.
//
// A Lowerer is bound to one query source and one clause. Lowering is driven
// by the symbolic.Context of each sub-expression: a boolean that is used as
// a condition must come out as a predicate, and a predicate used as a value
// must come out as a CASE expression yielding 1 or 0. Method calls on
// library types are mapped through a fixed table; anything else either
// matches a configured engine function or fails with an
// UnsupportedOperation error naming the sub-expression.
package lower
