// Package query caches the results of named remote queries.
//
// Each result is stored under its query name and parameter tuple. Concurrent
// identical requests share one in-flight fetch, failures are never cached, and
// entries live until invalidated or until the retention period passes without
// a new fetch.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cryptoverse/internal/infra"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached result: a query name plus its exact parameters.
type Key struct {
	Query  string
	Params string
}

// NewKey builds a key from a query name and its parameter values.
func NewKey(query string, params ...any) Key {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return Key{Query: query, Params: strings.Join(parts, ",")}
}

func (k Key) String() string {
	return k.Query + "(" + k.Params + ")"
}

// Cache holds decoded query results.
type Cache struct {
	store   *gocache.Cache
	group   singleflight.Group
	metrics *infra.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	epoch       uint64            // bumped by Reset
	generations map[string]uint64 // bumped per query by Invalidate
}

type generation struct {
	epoch uint64
	query uint64
}

// New creates a cache. A retention of zero keeps entries until invalidated.
func New(retention time.Duration, metrics *infra.Metrics, logger *slog.Logger) *Cache {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if retention > 0 {
		expiration = retention
		cleanup = 2 * retention
	}

	return &Cache{
		store:       gocache.New(expiration, cleanup),
		metrics:     metrics,
		logger:      logger.With("module", "query_cache"),
		generations: make(map[string]uint64),
	}
}

func (c *Cache) generation(query string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, query: c.generations[query]}
}

// Fetch returns the cached result for key or runs fn to produce it.
//
// Callers asking for the same key while a fetch is running wait for that fetch
// instead of starting their own. The fetch itself is not cancelled when one
// waiting caller gives up; each caller stops waiting when its own ctx ends.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	if v, ok := c.store.Get(k); ok {
		c.metrics.RecordCacheHit()
		return v.(T), nil
	}

	// The flight key carries the generation so a fetch started before an
	// invalidation is never joined by callers arriving after it.
	gen := c.generation(key.Query)
	flight := fmt.Sprintf("%s#%d.%d", k, gen.epoch, gen.query)
	leader := false
	ch := c.group.DoChan(flight, func() (any, error) {
		leader = true
		res, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// An invalidation during the fetch means this result may already be stale.
		if c.generation(key.Query) == gen {
			c.store.SetDefault(k, res)
		} else {
			c.logger.Debug("Discarding result invalidated mid-flight", slog.String("key", k))
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if !leader {
			c.metrics.RecordDeduplicated()
		}
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

// Refetch invalidates key and fetches it again.
func Refetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	c.Invalidate(key)
	return Fetch(ctx, c, key, fn)
}

// Invalidate drops the result cached under key.
func (c *Cache) Invalidate(key Key) {
	k := key.String()
	c.mu.Lock()
	c.generations[key.Query]++
	c.mu.Unlock()

	c.store.Delete(k)
}

// InvalidateQuery drops every cached result of a query, whatever its parameters.
func (c *Cache) InvalidateQuery(query string) {
	c.mu.Lock()
	c.generations[query]++
	c.mu.Unlock()

	prefix := query + "("
	for k := range c.store.Items() {
		if strings.HasPrefix(k, prefix) {
			c.store.Delete(k)
		}
	}
}

// Reset drops every cached result.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.store.Flush()
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
