package translate

import (
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
)

// Result is a built query.
type Result struct {
	// RunID correlates the log lines of this build.
	RunID string `json:"run_id"`

	// QueryKey identifies the query shape; builds that differ only in
	// captured values share it.
	QueryKey string `json:"query_key"`

	Entity string `json:"entity"`
	Text   string `json:"text"`

	// Params are in ordinal order: Params[i] binds :param<i>.
	Params []Param `json:"params"`

	// Aliases maps each alias in Text to its entity.
	Aliases map[string]string `json:"aliases"`

	// Intrinsics lists the engine-specific functions Text calls.
	Intrinsics []string `json:"intrinsics,omitempty"`

	// Warnings lists constructs outside the portable subset of the query
	// language.
	Warnings []string `json:"warnings,omitempty"`

	// Residual lists the clauses that were not translated, in order. The
	// caller applies them to the rows the query returns.
	Residual []Residual `json:"residual,omitempty"`

	// PageSize is the automatic page size to fetch results with.
	PageSize int `json:"page_size"`

	rendered *jpql.Rendered
}

// Param is a query parameter: the captured variable in slot Slot of the
// closure of clause Clause.
type Param struct {
	Ordinal int     `json:"ordinal"`
	Clause  int     `json:"clause"`
	Slot    int     `json:"slot"`
	Type    ir.Type `json:"type"`
	Value   any     `json:"value"`
}

// Residual is a clause left for in-process evaluation. Reason is set on
// the clause that failed to translate; the clauses after it are residual
// because they depend on its result.
type Residual struct {
	Index  int                  `json:"index"`
	Clause Clause               `json:"-"`
	Reason *ir.TranslationError `json:"reason,omitempty"`
}

// Complete reports whether every clause was translated.
func (r *Result) Complete() bool {
	return len(r.Residual) == 0
}

// Values returns the parameter values in ordinal order.
func (r *Result) Values() []any {
	values := make([]any, len(r.Params))
	for i, p := range r.Params {
		values[i] = p.Value
	}
	return values
}

// DebugString returns Text with each parameter replaced by its value, for
// logs. The output is not meant to be executed.
func (r *Result) DebugString() string {
	if r.rendered == nil {
		return r.Text
	}
	values := r.Values()
	for i, v := range values {
		values[i] = literalValue(v)
	}
	return r.rendered.DebugString(values)
}

// literalValue widens Go numeric values to the forms literals are built
// from.
func literalValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}
