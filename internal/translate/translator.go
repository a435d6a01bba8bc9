package translate

import (
	"context"
	"fmt"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/interp"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// QueryLog records every built query. *store.Store implements it.
type QueryLog interface {
	WriteQuery(ctx context.Context, q store.QueryRecord) error
}

// Translator builds queries against one schema. It holds no per-query
// state and is safe for concurrent use.
type Translator struct {
	schema     *ir.Schema
	schemaHash string
	opts       config.Options
	cache      *Cache
	runIDs     RunIDGenerator
	queryLog   QueryLog
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithCache shares a cache between translators. By default every
// translator has its own in-memory cache.
func WithCache(c *Cache) TranslatorOption {
	return func(t *Translator) { t.cache = c }
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) TranslatorOption {
	return func(t *Translator) { t.runIDs = g }
}

// WithQueryLog records built queries.
func WithQueryLog(l QueryLog) TranslatorOption {
	return func(t *Translator) { t.queryLog = l }
}

// New returns a translator for schema. opts are the defaults for every
// query; a query may override them with hints.
func New(schema *ir.Schema, opts config.Options, options ...TranslatorOption) *Translator {
	t := &Translator{
		schema:     schema,
		schemaHash: schema.Fingerprint(),
		opts:       opts,
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range options {
		opt(t)
	}
	if t.cache == nil {
		t.cache = NewCache(WithCacheLogger(opts.Log()))
	}
	return t
}

// Schema returns the schema the translator resolves entities against.
func (t *Translator) Schema() *ir.Schema {
	return t.schema
}

// Options returns the default options.
func (t *Translator) Options() config.Options {
	return t.opts
}

// Cache returns the translator's cache.
func (t *Translator) Cache() *Cache {
	return t.cache
}

// Interpret returns the symbolic value a closure computes. condition
// selects the boolean context used for filters. Translation failures are
// reported in Translation.Err, not as an error; the error result is only
// set when ctx is done.
func (t *Translator) Interpret(ctx context.Context, c Closure, condition bool, opts config.Options) (*Translation, error) {
	id := c.ID()
	key := ir.TranslationKey(id, t.schemaHash, condition)
	compute := func() (*Translation, error) {
		return t.interpret(c, id, key, condition, opts), nil
	}

	if !opts.UseCaching {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return compute()
	}
	tr, hit, err := t.cache.translation(ctx, key, id, compute)
	if err != nil {
		return nil, err
	}
	if hit {
		opts.Log().Debug("translation cache hit", "closure_id", id)
	}
	return tr, nil
}

func (t *Translator) interpret(c Closure, id, key string, condition bool, opts config.Options) *Translation {
	tr := &Translation{Key: key, ClosureID: id}
	fail := func(err error) *Translation {
		terr, ok := ir.AsTranslationError(err)
		if !ok {
			terr = ir.NewUnsupportedBytecode("%v", err)
		}
		tr.Err = terr.WithClosure(id)
		return tr
	}

	prog, err := bytecode.Decode(c.Code)
	if err != nil {
		return fail(err)
	}
	env := interp.Env{
		Args:     c.Args,
		Captured: c.CapturedTypes(),
		Schema:   t.schema,
		Context:  symbolic.With(nil, condition),
		MaxSteps: opts.MaxSteps,
	}
	res, err := interp.Run(prog, env)
	if err != nil {
		return fail(err)
	}
	tr.Steps = res.Steps
	v, err := res.Reconcile(env.Context)
	if err != nil {
		return fail(err)
	}
	tr.Value = v
	return tr
}

// From starts a query over entity.
func (t *Translator) From(entity string) (*Query, error) {
	e, ok := t.schema.Entity(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	return &Query{t: t, entity: e.Name, opts: t.opts}, nil
}
