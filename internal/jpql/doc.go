// Package jpql is the target query language: an expression tree, a
// two-phase generator and single-source SELECT composition.
//
// Generation runs in two phases over a GenerationState. Prepare walks every
// clause in text order and registers parameters, range variables and
// engine-specific functions; Generate then emits the text, adding
// parentheses only where operator precedence requires them.
//
// Key design constraints:
//   - Parameters are keyed by node identity: a node that appears in both
//     the select list and ORDER BY renders the same :paramN twice
//   - String literals double embedded quotes and nothing else
//   - Floating literals always carry a fractional part
package jpql
