package translate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// Translation is the outcome of interpreting one closure. Exactly one of
// Value and Err is set. A Translation is immutable once cached.
type Translation struct {
	Key       string
	ClosureID string
	Value     symbolic.Value
	Err       *ir.TranslationError
	Steps     int
}

// Durable is a persistent tier behind the in-memory cache. *store.Store
// implements it.
type Durable interface {
	ReadTranslation(ctx context.Context, key string) (store.Translation, bool, error)
	WriteTranslation(ctx context.Context, t store.Translation) (bool, error)
}

// Cache holds interpretation results and composed plans. It is safe for
// concurrent use and may be shared by several translators.
type Cache struct {
	translations group[*Translation]
	plans        group[*plan]
	durable      Durable
	log          *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithDurable backs the cache with a persistent store.
func WithDurable(d Durable) CacheOption {
	return func(c *Cache) { c.durable = d }
}

// WithCacheLogger sets the logger used for durable tier errors.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// NewCache returns an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheStats reports cache occupancy and lookups.
type CacheStats struct {
	Translations int   `json:"translations"`
	Plans        int   `json:"plans"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Translations: c.translations.len(),
		Plans:        c.plans.len(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
	}
}

// Purge drops every in-memory entry. The durable tier is left alone.
func (c *Cache) Purge() {
	c.translations.purge()
	c.plans.purge()
}

// translation returns the cached translation for key, running compute on
// a miss. Only errors that are not translation failures escape; those are
// not cached.
func (c *Cache) translation(ctx context.Context, key, closureID string, compute func() (*Translation, error)) (*Translation, bool, error) {
	t, hit, err := c.translations.do(ctx, key, func() (*Translation, error) {
		if t, ok := c.readDurable(ctx, key); ok {
			return t, nil
		}
		t, err := compute()
		if err != nil {
			return nil, err
		}
		c.writeDurable(ctx, t)
		return t, nil
	})
	c.count(hit)
	return t, hit, err
}

func (c *Cache) plan(ctx context.Context, key string, compute func() (*plan, error)) (*plan, bool, error) {
	p, hit, err := c.plans.do(ctx, key, compute)
	c.count(hit)
	return p, hit, err
}

func (c *Cache) count(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *Cache) readDurable(ctx context.Context, key string) (*Translation, bool) {
	if c.durable == nil {
		return nil, false
	}
	rec, ok, err := c.durable.ReadTranslation(ctx, key)
	if err != nil {
		c.log.Warn("durable cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	t := &Translation{Key: rec.Key, ClosureID: rec.ClosureID, Err: rec.Err, Steps: rec.Steps}
	if rec.Err == nil {
		v, err := symbolic.Decode(rec.Value)
		if err != nil {
			c.log.Warn("durable cache entry unreadable", "key", key, "error", err)
			return nil, false
		}
		t.Value = v
	}
	c.log.Debug("durable cache hit", "key", key, "closure_id", rec.ClosureID)
	return t, true
}

func (c *Cache) writeDurable(ctx context.Context, t *Translation) {
	if c.durable == nil {
		return
	}
	rec := store.Translation{Key: t.Key, ClosureID: t.ClosureID, Err: t.Err, Steps: t.Steps}
	if t.Err == nil {
		rec.Value = symbolic.Encode(t.Value)
	}
	if _, err := c.durable.WriteTranslation(ctx, rec); err != nil {
		c.log.Warn("durable cache write failed", "key", t.Key, "error", err)
	}
}

// loweringFailure returns the lowering failure recorded durably under key.
func (c *Cache) loweringFailure(ctx context.Context, key string) (*ir.TranslationError, bool) {
	if c.durable == nil {
		return nil, false
	}
	rec, ok, err := c.durable.ReadTranslation(ctx, key)
	if err != nil {
		c.log.Warn("durable cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || rec.Err == nil {
		return nil, false
	}
	c.log.Debug("durable lowering failure hit", "key", key, "closure_id", rec.ClosureID)
	return rec.Err, true
}

// recordLoweringFailure persists a failure to lower an interpreted
// closure so later processes fail the clause without lowering it again.
func (c *Cache) recordLoweringFailure(ctx context.Context, key, closureID string, terr *ir.TranslationError) {
	if c.durable == nil {
		return
	}
	rec := store.Translation{Key: key, ClosureID: closureID, Err: terr}
	if _, err := c.durable.WriteTranslation(ctx, rec); err != nil {
		c.log.Warn("durable cache write failed", "key", key, "error", err)
	}
}

// group is a map whose entries are computed at most once at a time per
// key. Callers arriving while a key is being computed wait for that
// computation instead of starting their own.
type group[V any] struct {
	mu       sync.Mutex
	entries  map[string]V
	inflight map[string]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// do returns the entry for key, computing it with fn if absent. The bool
// reports whether the value was already present or being computed. Errors
// from fn are returned to every waiter but not stored.
func (g *group[V]) do(ctx context.Context, key string, fn func() (V, error)) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	g.mu.Lock()
	if v, ok := g.entries[key]; ok {
		g.mu.Unlock()
		return v, true, nil
	}
	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
	if g.inflight == nil {
		g.inflight = make(map[string]*call[V])
	}
	c := &call[V]{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	if c.err == nil {
		if g.entries == nil {
			g.entries = make(map[string]V)
		}
		g.entries[key] = c.val
	}
	delete(g.inflight, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, false, c.err
}

func (g *group[V]) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *group[V]) purge() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = nil
}
