package translate

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/lower"
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// ClauseKind identifies what a clause does to the query.
type ClauseKind int

const (
	ClauseWhere ClauseKind = iota
	ClauseSelect
	ClauseSortedBy
)

var clauseNames = [...]string{
	ClauseWhere:    "where",
	ClauseSelect:   "select",
	ClauseSortedBy: "sortedBy",
}

func (k ClauseKind) String() string {
	if k < 0 || int(k) >= len(clauseNames) {
		return fmt.Sprintf("clause(%d)", int(k))
	}
	return clauseNames[k]
}

// ParseClauseKind parses the name returned by ClauseKind.String.
func ParseClauseKind(s string) (ClauseKind, error) {
	for k, name := range clauseNames {
		if name == s {
			return ClauseKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown clause kind %q", s)
}

// Clause is one step of a query.
type Clause struct {
	Kind    ClauseKind
	Closure Closure

	// Descending applies to ClauseSortedBy.
	Descending bool
}

// Query is a composed query. Queries are immutable: every method returns
// a new Query and leaves the receiver usable.
type Query struct {
	t       *Translator
	entity  string
	clauses []Clause
	opts    config.Options
}

func (q *Query) with(c Clause) *Query {
	next := *q
	next.clauses = append(slices.Clip(q.clauses), c)
	return &next
}

// Where keeps the rows for which the closure returns true.
func (q *Query) Where(c Closure) *Query {
	return q.with(Clause{Kind: ClauseWhere, Closure: c})
}

// Select replaces each row by the closure's result. Later clauses see the
// selected value as their row.
func (q *Query) Select(c Closure) *Query {
	return q.with(Clause{Kind: ClauseSelect, Closure: c})
}

// SortedBy orders rows by the closure's result. The most recently added
// key is the primary one.
func (q *Query) SortedBy(c Closure, descending bool) *Query {
	return q.with(Clause{Kind: ClauseSortedBy, Closure: c, Descending: descending})
}

// WithHint applies a named hint to this query only. It reports false, and
// returns q, when the hint is unknown or its value has the wrong type.
func (q *Query) WithHint(name string, value any) (*Query, bool) {
	opts, ok := q.opts.WithHint(name, value)
	if !ok {
		return q, false
	}
	next := *q
	next.opts = opts
	return &next, true
}

// Entity returns the root entity name.
func (q *Query) Entity() string {
	return q.entity
}

// Clauses returns a copy of the query's clauses in the order added.
func (q *Query) Clauses() []Clause {
	return slices.Clone(q.clauses)
}

// Options returns the options the query is built with.
func (q *Query) Options() config.Options {
	return q.opts
}

// plan is the value-independent part of a built query. Plans are shared
// between every Build of the same query shape.
type plan struct {
	key      string
	rendered *jpql.Rendered
	warnings []string

	// failure is the error of the first untranslatable clause, whose
	// index is residualFrom. residualFrom is len(clauses) when every
	// clause was translated.
	failure      *ir.TranslationError
	residualFrom int
}

// Key returns the query's cache key: the entity, the clause shapes, the
// schema and the options that change the generated text.
func (q *Query) Key() (string, error) {
	clauses := make(ir.IRArray, len(q.clauses))
	for i, c := range q.clauses {
		clauses[i] = ir.IRObject{
			"kind":       ir.IRString(c.Kind.String()),
			"closure":    ir.IRString(c.Closure.ID()),
			"descending": ir.IRBool(c.Descending),
		}
	}
	options := q.opts.Fingerprint()
	options["schema"] = ir.IRString(q.t.schemaHash)
	return ir.QueryKey(q.entity, clauses, options)
}

// Build translates the query. With DieOnError set, the first
// untranslatable clause fails the build with its *ir.TranslationError.
// Otherwise the result lists it and every later clause in Residual.
func (q *Query) Build(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID := q.t.runIDs.Generate()
	log := q.opts.Log().With("run_id", runID, "entity", q.entity)

	key, err := q.Key()
	if err != nil {
		return nil, fmt.Errorf("query key: %w", err)
	}

	var p *plan
	if q.opts.UseCaching {
		var hit bool
		p, hit, err = q.t.cache.plan(ctx, key, func() (*plan, error) { return q.plan(ctx, key) })
		if hit {
			log.Debug("plan cache hit", "query_key", key)
		}
	} else {
		p, err = q.plan(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	if p.failure != nil {
		failed := q.clauses[p.residualFrom]
		if q.opts.DieOnError {
			log.Warn("translation failed",
				"closure_id", p.failure.Closure,
				"clause", failed.Kind.String(),
				"error", p.failure)
			return nil, p.failure
		}
		log.Info("clause left for in-process evaluation",
			"closure_id", p.failure.Closure,
			"clause", failed.Kind.String(),
			"residual", len(q.clauses)-p.residualFrom,
			"reason", p.failure)
	}

	params, err := q.bind(p.rendered.Params)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      runID,
		QueryKey:   key,
		Entity:     q.entity,
		Text:       p.rendered.Text,
		Params:     params,
		Aliases:    p.rendered.Aliases,
		Intrinsics: p.rendered.Intrinsics,
		Warnings:   p.warnings,
		PageSize:   q.opts.PageSize,
		rendered:   p.rendered,
	}
	for i := p.residualFrom; i < len(q.clauses); i++ {
		r := Residual{Index: i, Clause: q.clauses[i]}
		if i == p.residualFrom {
			r.Reason = p.failure
		}
		res.Residual = append(res.Residual, r)
	}

	log.Debug("query generated", "text", res.Text, "params", len(res.Params))
	q.record(ctx, res)
	return res, nil
}

// plan interprets and lowers every clause and renders the query.
func (q *Query) plan(ctx context.Context, key string) (*plan, error) {
	src := &jpql.Source{Entity: q.entity}
	p := &plan{key: key, residualFrom: len(q.clauses)}

	var (
		where []jpql.Expression
		sel   jpql.Expression
		rowBy ir.IRArray
		order []jpql.Ordering
		row   jpql.Expression
	)
	for i, c := range q.clauses {
		e, failure, err := q.lowerClause(ctx, c, rowBy, &lower.Lowerer{
			Options: q.opts,
			Source:  src,
			Clause:  i,
			Row:     row,
		})
		if err != nil {
			return nil, err
		}
		if failure != nil {
			p.failure = failure
			p.residualFrom = i
			break
		}
		switch c.Kind {
		case ClauseWhere:
			if e != nil {
				where = append(where, e)
			}
		case ClauseSelect:
			sel, row = e, e
			rowBy = append(rowBy, ir.IRString(c.Closure.ID()))
		case ClauseSortedBy:
			order = append([]jpql.Ordering{{Expr: e, Desc: c.Descending}}, order...)
		}
	}

	query := &jpql.SelectQuery{From: src, Select: sel, Where: conjunction(where), OrderBy: order}
	rendered, err := query.Render()
	if err != nil {
		return nil, fmt.Errorf("render %s query: %w", q.entity, err)
	}
	p.rendered = rendered
	p.warnings = jpql.Validate(query).Warnings
	return p, nil
}

// lowerClause translates one clause. A nil expression with no failure
// means a where clause that keeps every row. rowBy lists the select
// closures applied before c. Lowering failures are recorded in the
// durable tier when caching is on.
func (q *Query) lowerClause(ctx context.Context, c Clause, rowBy ir.IRArray, l *lower.Lowerer) (jpql.Expression, *ir.TranslationError, error) {
	condition := c.Kind == ClauseWhere
	tr, err := q.t.Interpret(ctx, c.Closure, condition, q.opts)
	if err != nil {
		return nil, nil, err
	}
	if tr.Err != nil {
		return nil, tr.Err, nil
	}
	if condition && symbolic.IsTrue(tr.Value) {
		return nil, nil, nil
	}

	var key string
	if q.opts.UseCaching {
		if key, err = ir.LoweringKey(tr.Key, rowBy, q.opts.Fingerprint()); err != nil {
			return nil, nil, fmt.Errorf("lowering key: %w", err)
		}
		if terr, ok := q.t.cache.loweringFailure(ctx, key); ok {
			return nil, terr, nil
		}
	}

	var e jpql.Expression
	if condition {
		e, err = l.Condition(tr.Value)
	} else {
		e, err = l.Value(tr.Value)
	}
	if err != nil {
		terr, ok := ir.AsTranslationError(err)
		if !ok {
			return nil, nil, fmt.Errorf("lower %s clause: %w", c.Kind, err)
		}
		terr = terr.WithClosure(tr.ClosureID)
		if key != "" {
			q.t.cache.recordLoweringFailure(ctx, key, tr.ClosureID, terr)
		}
		return nil, terr, nil
	}
	return e, nil, nil
}

func conjunction(es []jpql.Expression) jpql.Expression {
	if len(es) == 0 {
		return nil
	}
	out := es[0]
	for _, e := range es[1:] {
		out = &jpql.Binary{Op: jpql.OpAnd, Left: out, Right: e}
	}
	return out
}

// bind pairs each parameter with the captured value it reads.
func (q *Query) bind(bindings []jpql.ParamBinding) ([]Param, error) {
	params := make([]Param, len(bindings))
	for i, b := range bindings {
		if b.Clause < 0 || b.Clause >= len(q.clauses) {
			return nil, fmt.Errorf("parameter %d refers to clause %d of %d", b.Ordinal, b.Clause, len(q.clauses))
		}
		captured := q.clauses[b.Clause].Closure.Captured
		if b.Slot < 0 || b.Slot >= len(captured) {
			return nil, fmt.Errorf("parameter %d refers to captured slot %d of %d", b.Ordinal, b.Slot, len(captured))
		}
		params[i] = Param{
			Ordinal: b.Ordinal,
			Clause:  b.Clause,
			Slot:    b.Slot,
			Type:    b.Type,
			Value:   captured[b.Slot].Value,
		}
	}
	return params, nil
}

func (q *Query) record(ctx context.Context, res *Result) {
	if q.t.queryLog == nil {
		return
	}
	params := make(ir.IRArray, len(res.Params))
	for i, p := range res.Params {
		params[i] = ir.IRObject{
			"ordinal": ir.IRInt(p.Ordinal),
			"clause":  ir.IRInt(p.Clause),
			"slot":    ir.IRInt(p.Slot),
			"type":    ir.EncodeType(p.Type),
		}
	}
	err := q.t.queryLog.WriteQuery(ctx, store.QueryRecord{
		RunID:    res.RunID,
		QueryKey: res.QueryKey,
		Entity:   res.Entity,
		Text:     res.Text,
		Params:   params,
		Residual: len(res.Residual),
	})
	if err != nil {
		q.opts.Log().Warn("query log write failed", "run_id", res.RunID, "error", err)
	}
}
