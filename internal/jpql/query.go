package jpql

import (
	"fmt"
	"strings"

	"github.com/roach88/lambdaq/internal/ir"
)

// Ordering is one ORDER BY key.
type Ordering struct {
	Expr Expression
	Desc bool
}

// SelectQuery is a single-source query. A nil Select selects the entity
// itself.
type SelectQuery struct {
	From    *Source
	Select  Expression
	Where   Expression
	OrderBy []Ordering
}

// ParamBinding ties a parameter ordinal to the captured value it binds.
type ParamBinding struct {
	Ordinal int     `json:"ordinal"`
	Clause  int     `json:"clause"`
	Slot    int     `json:"slot"`
	Type    ir.Type `json:"type"`
}

// Rendered is the output of rendering a query.
type Rendered struct {
	Text       string            `json:"text"`
	Params     []ParamBinding    `json:"params"`
	Aliases    map[string]string `json:"aliases"`
	Intrinsics []string          `json:"intrinsics,omitempty"`
}

// Render generates the query text:
//
//	SELECT <list> FROM <Entity> <alias>[ WHERE <cond>][ ORDER BY <key> ASC|DESC, ...]
//
// Clauses are prepared in text order, so parameter ordinals increase from
// left to right.
func (q *SelectQuery) Render() (*Rendered, error) {
	if q.From == nil {
		return nil, fmt.Errorf("query has no FROM source")
	}
	sel := q.Select
	if sel == nil {
		sel = NewPath(q.From)
	}

	st := NewGenerationState()
	st.RegisterSource(q.From)
	if err := Prepare(st, sel); err != nil {
		return nil, fmt.Errorf("prepare select: %w", err)
	}
	if q.Where != nil {
		if err := Prepare(st, q.Where); err != nil {
			return nil, fmt.Errorf("prepare where: %w", err)
		}
	}
	for i, o := range q.OrderBy {
		if err := Prepare(st, o.Expr); err != nil {
			return nil, fmt.Errorf("prepare order key %d: %w", i, err)
		}
	}
	if n := len(st.Sources()); n > 1 {
		return nil, fmt.Errorf("query references %d sources, only %s is in scope", n, q.From.Entity)
	}

	st.StartGenerating()
	st.write("SELECT ")
	if err := GenerateSelectList(st, sel); err != nil {
		return nil, err
	}
	alias, _ := st.Alias(q.From)
	st.write(" FROM " + q.From.Entity + " " + alias)
	if q.Where != nil {
		st.write(" WHERE ")
		if err := Generate(st, q.Where, Unrestricted); err != nil {
			return nil, err
		}
	}
	for i, o := range q.OrderBy {
		if i == 0 {
			st.write(" ORDER BY ")
		} else {
			st.write(", ")
		}
		if err := Generate(st, o.Expr, Unrestricted); err != nil {
			return nil, err
		}
		if o.Desc {
			st.write(" DESC")
		} else {
			st.write(" ASC")
		}
	}

	out := &Rendered{
		Text:       st.Text(),
		Aliases:    map[string]string{alias: q.From.Entity},
		Intrinsics: st.Intrinsics(),
	}
	for i, p := range st.Params() {
		out.Params = append(out.Params, ParamBinding{Ordinal: i, Clause: p.Clause, Slot: p.Slot, Type: p.T})
	}
	return out, nil
}

// String renders e on its own for logs and errors. Sources are aliased in
// order of appearance.
func String(e Expression) string {
	st := NewGenerationState()
	if err := Prepare(st, e); err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	st.StartGenerating()
	if err := GenerateSelectList(st, e); err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return st.Text()
}

// DebugString returns the text with parameters replaced by the literal
// forms of the given values, for logging. Values are indexed by ordinal.
func (r *Rendered) DebugString(values []any) string {
	text := r.Text
	// Replace higher ordinals first so :param1 does not clobber :param10.
	for i := len(r.Params) - 1; i >= 0; i-- {
		p := r.Params[i]
		lit := "?"
		if p.Ordinal < len(values) {
			if s, err := FormatLiteral(&Literal{Value: values[p.Ordinal], T: p.Type}); err == nil {
				lit = s
			}
		}
		text = strings.ReplaceAll(text, fmt.Sprintf(":param%d", p.Ordinal), lit)
	}
	return text
}
