// Package config holds the translator options and loads them from TOML or
// YAML files.
package config

import (
	"log/slog"
	"maps"

	"github.com/roach88/lambdaq/internal/ir"
)

// Defaults.
const (
	DefaultPageSize = 10000
	DefaultMaxSteps = 10000
)

// Options controls translation. Options is a value type: every derivation
// returns a copy and the original is never modified, so one Options can be
// shared by concurrent translations.
type Options struct {
	// PageSize is the number of rows fetched per page when results are
	// paged automatically.
	PageSize int

	// UseCaching enables the translation cache.
	UseCaching bool

	// DieOnError makes an untranslatable clause fail the query. When false
	// the clause is left for the caller to evaluate in-process.
	DieOnError bool

	// ObjectEqualsSafe allows equals() on entities to become =.
	ObjectEqualsSafe bool

	// AllEqualsSafe allows equals() on values of unknown type to become =.
	AllEqualsSafe bool

	// CollectionContainsSafe allows Collection.contains to become MEMBER OF.
	CollectionContainsSafe bool

	// CustomFunctions maps "Owner.method" to the name of an engine-specific
	// function called through function('NAME', ...).
	CustomFunctions map[string]string

	// CachePath is the SQLite file of the durable translation cache. Empty
	// keeps the cache in memory only.
	CachePath string

	// MaxSteps bounds symbolic interpretation of one closure.
	MaxSteps int

	// Logger receives translation logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Option modifies Options.
type Option func(*Options)

// Default returns the default options.
func Default() Options {
	return Options{
		PageSize:               DefaultPageSize,
		UseCaching:             true,
		DieOnError:             true,
		ObjectEqualsSafe:       true,
		AllEqualsSafe:          true,
		CollectionContainsSafe: true,
		MaxSteps:               DefaultMaxSteps,
	}
}

// New returns the default options with opts applied.
func New(opts ...Option) Options {
	return Default().With(opts...)
}

// With returns a copy of o with opts applied.
func (o Options) With(opts ...Option) Options {
	o.CustomFunctions = maps.Clone(o.CustomFunctions)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPageSize sets the automatic page size.
func WithPageSize(n int) Option {
	return func(o *Options) { o.PageSize = n }
}

// WithCaching enables or disables the translation cache.
func WithCaching(on bool) Option {
	return func(o *Options) { o.UseCaching = on }
}

// WithDieOnError chooses between failing and falling back on an
// untranslatable clause.
func WithDieOnError(on bool) Option {
	return func(o *Options) { o.DieOnError = on }
}

// WithObjectEqualsSafe sets ObjectEqualsSafe.
func WithObjectEqualsSafe(on bool) Option {
	return func(o *Options) { o.ObjectEqualsSafe = on }
}

// WithAllEqualsSafe sets AllEqualsSafe.
func WithAllEqualsSafe(on bool) Option {
	return func(o *Options) { o.AllEqualsSafe = on }
}

// WithCollectionContainsSafe sets CollectionContainsSafe.
func WithCollectionContainsSafe(on bool) Option {
	return func(o *Options) { o.CollectionContainsSafe = on }
}

// WithCustomFunction maps a method, written Owner.method, to an
// engine-specific function.
func WithCustomFunction(method, function string) Option {
	return func(o *Options) {
		if o.CustomFunctions == nil {
			o.CustomFunctions = make(map[string]string)
		}
		o.CustomFunctions[method] = function
	}
}

// WithCachePath sets the durable cache file.
func WithCachePath(path string) Option {
	return func(o *Options) { o.CachePath = path }
}

// WithMaxSteps sets the interpretation step budget.
func WithMaxSteps(n int) Option {
	return func(o *Options) { o.MaxSteps = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Log returns the configured logger or slog.Default().
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Fingerprint returns the options that change generated text. It is part
// of the query cache key.
func (o Options) Fingerprint() ir.IRObject {
	funcs := ir.IRObject{}
	for k, v := range o.CustomFunctions {
		funcs[k] = ir.IRString(v)
	}
	return ir.IRObject{
		"objectEqualsSafe":       ir.IRBool(o.ObjectEqualsSafe),
		"allEqualsSafe":          ir.IRBool(o.AllEqualsSafe),
		"collectionContainsSafe": ir.IRBool(o.CollectionContainsSafe),
		"customFunctions":        funcs,
	}
}
