package jpql

// Equal reports whether two expressions are structurally identical. Sources
// compare by identity; parameters compare by what they bind.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Path:
		y, ok := b.(*Path)
		if !ok || x.Source != y.Source || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i] != y.Fields[i] {
				return false
			}
		}
		return true
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.T == y.T && literalKey(x.Value) == literalKey(y.Value)
	case *Param:
		y, ok := b.(*Param)
		return ok && *x == *y
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *FunctionCall:
		y, ok := b.(*FunctionCall)
		return ok && x.Name == y.Name && x.Intrinsic == y.Intrinsic && equalAll(x.Args, y.Args)
	case *CaseWhen:
		y, ok := b.(*CaseWhen)
		if !ok || len(x.Whens) != len(y.Whens) || !Equal(x.Else, y.Else) {
			return false
		}
		for i := range x.Whens {
			if !Equal(x.Whens[i].Cond, y.Whens[i].Cond) || !Equal(x.Whens[i].Then, y.Whens[i].Then) {
				return false
			}
		}
		return true
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalAll(x.Elems, y.Elems)
	}
	return false
}

func equalAll(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of e. Every node is new, so parameters in the
// copy receive their own ordinals; sources are shared.
func Copy(e Expression) Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *Path:
		return &Path{Source: n.Source, Fields: append([]string(nil), n.Fields...)}
	case *Literal:
		cp := *n
		return &cp
	case *Param:
		cp := *n
		return &cp
	case *Binary:
		return &Binary{Op: n.Op, Left: Copy(n.Left), Right: Copy(n.Right)}
	case *Unary:
		return &Unary{Op: n.Op, Operand: Copy(n.Operand)}
	case *FunctionCall:
		return &FunctionCall{Name: n.Name, Args: copyAll(n.Args), Intrinsic: n.Intrinsic}
	case *CaseWhen:
		whens := make([]When, len(n.Whens))
		for i, w := range n.Whens {
			whens[i] = When{Cond: Copy(w.Cond), Then: Copy(w.Then)}
		}
		return &CaseWhen{Whens: whens, Else: Copy(n.Else)}
	case *Tuple:
		return &Tuple{Elems: copyAll(n.Elems)}
	}
	return e
}

func copyAll(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = Copy(e)
	}
	return out
}
