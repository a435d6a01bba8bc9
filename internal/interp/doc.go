// Package interp replays a closure body with symbolic values.
//
// The interpreter follows every feasible control-flow path of the
// instruction stream, tracking the conditions under which each path is
// taken, and returns the value each path produces. Result.Reconcile folds
// those paths into the one expression the closure computes.
//
// Only forward branches are accepted; a backward branch means a loop and is
// rejected as an unsupported operation.
package interp
