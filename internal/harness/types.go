package harness

import (
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/translate"
)

// TraceEvent records the outcome of one query.
type TraceEvent struct {
	Query  string `json:"query"`
	RunID  string `json:"run_id"`
	Entity string `json:"entity"`

	// Text and Debug are empty when the build failed.
	Text  string `json:"text,omitempty"`
	Debug string `json:"debug,omitempty"`

	// Params are the literal forms of the parameter values.
	Params []string `json:"params,omitempty"`

	Residual int      `json:"residual"`
	Warnings []string `json:"warnings,omitempty"`

	// Reason is the error code of the first residual clause.
	Reason string `json:"reason,omitempty"`

	// Error is the error code of a failed build.
	Error string `json:"error,omitempty"`

	// QueryKey depends on encoding versions, so it is kept out of golden
	// files.
	QueryKey string `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per query, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	Errors []string `json:"errors,omitempty"`

	// Cache is the translation cache state after the last query.
	Cache translate.CacheStats `json:"cache"`

	// Stored counts what reached the durable store.
	Stored store.Stats `json:"stored"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a query outcome.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Event returns the trace event of the named query.
func (r *Result) Event(query string) (TraceEvent, bool) {
	for _, ev := range r.Trace {
		if ev.Query == query {
			return ev, true
		}
	}
	return TraceEvent{}, false
}
