package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/schema"
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/testutil"
	"github.com/roach88/lambdaq/internal/translate"
)

// Harness executes the queries of one scenario.
type Harness struct {
	store      *store.Store
	translator *translate.Translator
	logger     *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sends translation logs to l. By default they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store, which backs both
// the translation cache and the query log. Run IDs are fixed so results
// are reproducible.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	rc := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&rc)
	}

	loaded, errs := schema.Load(scenario.Schema, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	defaults, err := applyHints(config.New(config.WithLogger(rc.logger)), scenario.Hints)
	if err != nil {
		return nil, err
	}

	prefix := scenario.RunID
	if prefix == "" {
		prefix = DefaultRunID
	}

	cache := translate.NewCache(translate.WithDurable(st), translate.WithCacheLogger(rc.logger))
	h := &Harness{
		store: st,
		translator: translate.New(loaded.Schema, defaults,
			translate.WithCache(cache),
			translate.WithRunIDGenerator(testutil.NewSequentialRunIDs(prefix)),
			translate.WithQueryLog(st)),
		logger: rc.logger,
	}

	result := NewResult()
	for i, step := range scenario.Queries {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i, step.Name, err)
		}
		result.AddTrace(ev)
		if step.Expect != nil {
			for _, msg := range checkExpect(step, ev) {
				result.AddError(msg)
			}
		}
		h.logger.Info("query step completed",
			"step", i,
			"query", step.Name,
			"run_id", ev.RunID,
			"residual", ev.Residual,
			"error", ev.Error,
		)
	}
	result.Cache = cache.Stats()
	if result.Stored, err = h.store.Stats(ctx); err != nil {
		return nil, fmt.Errorf("failed to read store stats: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func applyHints(o config.Options, hints map[string]any) (config.Options, error) {
	names := make([]string, 0, len(hints))
	for name := range hints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		next, ok := o.WithHint(name, hints[name])
		if !ok {
			return o, fmt.Errorf("invalid hint %s=%v", name, hints[name])
		}
		o = next
	}
	return o, nil
}

// execute builds one query. Translation failures are recorded in the
// event; other errors abort the scenario.
func (h *Harness) execute(ctx context.Context, step QueryStep) (TraceEvent, error) {
	ev := TraceEvent{Query: step.Name, Entity: step.Entity}

	q, err := NewQuery(h.translator, step)
	if err != nil {
		return ev, err
	}

	res, err := q.Build(ctx)
	if err != nil {
		terr, ok := ir.AsTranslationError(err)
		if !ok {
			return ev, err
		}
		ev.Error = string(terr.Code)
		return ev, nil
	}

	ev.RunID = res.RunID
	ev.QueryKey = res.QueryKey
	ev.Text = res.Text
	ev.Debug = res.DebugString()
	ev.Warnings = res.Warnings
	ev.Residual = len(res.Residual)
	if len(res.Residual) > 0 && res.Residual[0].Reason != nil {
		ev.Reason = string(res.Residual[0].Reason.Code)
	}
	for _, p := range res.Params {
		ev.Params = append(ev.Params, literal(p.Type, p.Value))
	}
	return ev, nil
}

// NewQuery composes the query a step describes: its entity, its hints
// and its clauses in order.
func NewQuery(t *translate.Translator, step QueryStep) (*translate.Query, error) {
	q, err := t.From(step.Entity)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(step.Hints) {
		var ok bool
		if q, ok = q.WithHint(name, step.Hints[name]); !ok {
			return nil, fmt.Errorf("invalid hint %s=%v", name, step.Hints[name])
		}
	}

	for i, cs := range step.Clauses {
		kind, err := translate.ParseClauseKind(cs.Kind)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		c, err := NewClosure(t.Schema(), step.Entity, cs)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		switch kind {
		case translate.ClauseWhere:
			q = q.Where(c)
		case translate.ClauseSelect:
			q = q.Select(c)
		case translate.ClauseSortedBy:
			q = q.SortedBy(c, cs.Descending)
		}
	}
	return q, nil
}

// NewClosure assembles a clause and converts its captured values. entity
// is the argument type when the clause lists none.
func NewClosure(s *ir.Schema, entity string, cs ClauseStep) (translate.Closure, error) {
	prog, err := bytecode.Assemble(cs.Code)
	if err != nil {
		return translate.Closure{}, fmt.Errorf("assemble: %w", err)
	}
	code, err := bytecode.Encode(prog)
	if err != nil {
		return translate.Closure{}, fmt.Errorf("encode: %w", err)
	}

	c := translate.Closure{Code: code}
	if len(cs.Args) == 0 {
		c.Args = []ir.Type{ir.EntityType(entity)}
	}
	for _, a := range cs.Args {
		t, err := parseType(s, a)
		if err != nil {
			return c, fmt.Errorf("arg: %w", err)
		}
		c.Args = append(c.Args, t)
	}
	for i, cv := range cs.Captured {
		t, err := parseType(s, cv.Type)
		if err != nil {
			return c, fmt.Errorf("captured[%d]: %w", i, err)
		}
		v, err := convertValue(s, t, cv.Value)
		if err != nil {
			return c, fmt.Errorf("captured[%d]: %w", i, err)
		}
		c.Captured = append(c.Captured, translate.Captured{Type: t, Value: v})
	}
	return c, nil
}

func parseType(s *ir.Schema, name string) (ir.Type, error) {
	t, err := ir.ParseType(name)
	if err != nil {
		return t, err
	}
	return s.Resolve(t), nil
}

// checkExpect compares a query outcome with its expect clause.
func checkExpect(step QueryStep, ev TraceEvent) []string {
	var errs []string
	exp := step.Expect
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("query %s: expected %s %v, got %v", step.Name, field, want, got))
	}

	if exp.Error != "" {
		if ev.Error != exp.Error {
			mismatch("error", exp.Error, orNone(ev.Error))
		}
		return errs
	}
	if ev.Error != "" {
		errs = append(errs, fmt.Sprintf("query %s: build failed with %s", step.Name, ev.Error))
		return errs
	}

	if exp.Text != "" && ev.Text != exp.Text {
		mismatch("text", quoteText(exp.Text), quoteText(ev.Text))
	}
	if exp.Debug != "" && ev.Debug != exp.Debug {
		mismatch("debug", quoteText(exp.Debug), quoteText(ev.Debug))
	}
	if exp.Residual != nil && ev.Residual != *exp.Residual {
		mismatch("residual", *exp.Residual, ev.Residual)
	}
	if exp.Params != nil {
		if len(exp.Params) != len(ev.Params) {
			mismatch("param count", len(exp.Params), len(ev.Params))
		} else {
			for i, want := range exp.Params {
				if !paramMatches(want, ev.Params[i]) {
					mismatch(fmt.Sprintf("param %d", i), want, ev.Params[i])
				}
			}
		}
	}
	return errs
}

// paramMatches compares an expected YAML value with the literal form of a
// parameter. Strings match quoted literals; other values match their
// printed form.
func paramMatches(want any, got string) bool {
	switch v := want.(type) {
	case nil:
		return got == "NULL"
	case string:
		return got == "'"+escapeQuotes(v)+"'" || got == v
	case bool:
		if v {
			return got == "TRUE"
		}
		return got == "FALSE"
	case int:
		f, err := strconv.ParseFloat(got, 64)
		return err == nil && f == float64(v)
	case float64:
		f, err := strconv.ParseFloat(got, 64)
		return err == nil && f == v
	}
	return fmt.Sprint(want) == got
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func quoteText(s string) string {
	return fmt.Sprintf("%q", s)
}
