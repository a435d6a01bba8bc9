package interp

import (
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// Reconcile combines the return paths into the single value the closure
// computes.
//
// In a boolean context the result is the disjunction over paths of the path
// condition and the returned value; paths returning false disappear. In a
// value context equal results collapse, tuples are combined element by
// element and differing results become a Conditional chain keyed on each
// path's condition, with the last path as the fallback.
func (r *Result) Reconcile(ctx symbolic.Context) (symbolic.Value, error) {
	if len(r.Dropped) > 0 {
		// The failed paths could have contributed to the result.
		return nil, r.Dropped[0]
	}
	if len(r.Paths) == 0 {
		return nil, ir.NewUnsupportedBytecode("closure has no return path")
	}
	if ctx.ExpectingBoolean {
		return reconcileBoolean(r.Paths)
	}
	return reconcileValues(r.Paths)
}

func reconcileBoolean(paths []Path) (symbolic.Value, error) {
	var out symbolic.Value = symbolic.False
	for _, p := range paths {
		v := asBoolean(p.Value)
		if v.Type() != ir.Bool {
			return nil, ir.NewTypeMismatch("condition returns %s, not boolean", v.Type()).WithExpr(symbolic.Format(v))
		}
		out = symbolic.Or(out, symbolic.And(p.Condition(), v))
	}
	return out, nil
}

func reconcileValues(paths []Path) (symbolic.Value, error) {
	first := paths[0].Value
	allEqual := true
	for _, p := range paths[1:] {
		if !symbolic.Equal(first, p.Value) {
			allEqual = false
			break
		}
	}
	if allEqual {
		return first, nil
	}

	if _, ok := first.(*symbolic.Tuple); ok {
		return reconcileTuples(paths)
	}
	for _, p := range paths {
		if _, ok := p.Value.(*symbolic.Tuple); ok {
			return nil, ir.NewIrreconcilableBranches("one branch returns a tuple and another a %s", first.Type())
		}
	}

	t, err := commonType(paths)
	if err != nil {
		return nil, err
	}
	last := len(paths) - 1
	out := paths[last].Value
	for i := last - 1; i >= 0; i-- {
		out = &symbolic.Conditional{
			Cond: paths[i].Condition(),
			Then: paths[i].Value,
			Else: out,
			T:    t,
		}
	}
	return out, nil
}

func reconcileTuples(paths []Path) (symbolic.Value, error) {
	arity := len(paths[0].Value.(*symbolic.Tuple).Elems)
	for _, p := range paths {
		tup, ok := p.Value.(*symbolic.Tuple)
		if !ok {
			return nil, ir.NewIrreconcilableBranches("one branch returns a tuple and another a %s", p.Value.Type())
		}
		if len(tup.Elems) != arity {
			return nil, ir.NewIrreconcilableBranches("branches return tuples of %d and %d elements", arity, len(tup.Elems))
		}
	}

	elems := make([]symbolic.Value, arity)
	for i := range elems {
		column := make([]Path, len(paths))
		for j, p := range paths {
			column[j] = Path{Conds: p.Conds, Value: p.Value.(*symbolic.Tuple).Elems[i]}
		}
		v, err := reconcileValues(column)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &symbolic.Tuple{Elems: elems}, nil
}

// commonType returns the type of a merge of the path values. Null
// constants take any type; numeric types are promoted.
func commonType(paths []Path) (ir.Type, error) {
	var t ir.Type
	have := false
	for _, p := range paths {
		if symbolic.IsNull(p.Value) {
			continue
		}
		vt := p.Value.Type()
		switch {
		case !have:
			t, have = vt, true
		case vt == t:
		case vt.IsNumeric() && t.IsNumeric():
			promoted, err := ir.Promote(t, vt)
			if err != nil {
				return ir.Type{}, ir.NewIrreconcilableBranches("%v", err)
			}
			t = promoted
		default:
			return ir.Type{}, ir.NewIrreconcilableBranches("branches return %s and %s", t, vt).WithExpr(symbolic.Format(p.Value))
		}
	}
	if !have {
		return paths[0].Value.Type(), nil
	}
	return t, nil
}
