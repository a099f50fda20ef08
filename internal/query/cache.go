// Package query is the client-side cache of remote collections. Entries are
// keyed by entity type plus scoping parameters; concurrent readers of one key
// share a single fetch, and mutations mark entries stale by key prefix.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kidandcat/portfolio/internal/logger"
)

// Key identifies a cached response, e.g. Key{"backlogs", "project", "7"}.
type Key []string

// K builds a key from arbitrary segments.
func K(parts ...any) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

func (k Key) String() string { return strings.Join(k, "/") }

// HasPrefix reports whether every segment of p matches the start of k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	data      any
	err       error
	hasResult bool
	stale     bool
	inflight  int
	// gen counts invalidations; stored is the gen the current result was
	// fetched under.
	gen       uint64
	stored    uint64
	fetchedAt time.Time
}

type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	group     singleflight.Group
	listeners map[uint64]func(Key)
	nextID    uint64
	now       func() time.Time
	log       *zap.SugaredLogger
}

func NewCache(log *zap.SugaredLogger) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     logger.OrNop(log),
	}
}

// Subscribe registers fn to be called with every key marked stale and
// returns a func that removes it. fn runs outside the cache lock.
func (c *Cache) Subscribe(fn func(Key)) (cancel func()) {
	c.mu.Lock()
	if c.listeners == nil {
		c.listeners = make(map[uint64]func(Key))
	}
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Invalidate marks every entry under prefix stale and returns how many were hit.
// A fetch already in flight for a hit key is no longer shared: the next
// reader starts a new one.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	var hit []Key
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			e.gen++
			hit = append(hit, e.key)
			if e.inflight > 0 {
				c.group.Forget(id)
			}
		}
	}
	listeners := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.log.Debugw("cache invalidated", "prefix", prefix.String(), "entries", len(hit))
	for _, k := range hit {
		for _, fn := range listeners {
			fn(k)
		}
	}
	return len(hit)
}

// Clear drops every entry, e.g. on logout.
// Fetches in flight finish into the dropped entries and are not shared
// with later readers.
func (c *Cache) Clear() {
	c.mu.Lock()
	for id := range c.entries {
		c.group.Forget(id)
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// IsStale reports whether key is cached and marked stale.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return ok && e.stale
}

func (c *Cache) lookup(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		c.entries[id] = e
	}
	return e
}

// snapshot copies the observable state of key. Callers hold no lock.
func (c *Cache) snapshot(key Key) (data any, err error, hasResult, stale, inflight bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return nil, nil, false, false, false
	}
	return e.data, e.err, e.hasResult, e.stale, e.inflight > 0
}

// load runs fetch once per key across concurrent callers and stores the outcome.
func (c *Cache) load(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	id := key.String()

	c.mu.Lock()
	e := c.lookup(key)
	c.mu.Unlock()

	v, err, shared := c.group.Do(id, func() (any, error) {
		c.mu.Lock()
		e.inflight++
		gen := e.gen
		c.mu.Unlock()

		start := c.now()
		data, err := fetch(ctx)

		c.mu.Lock()
		e.inflight--
		// A result fetched under an older gen than the stored one is dropped.
		if !e.hasResult || gen >= e.stored {
			e.stored = gen
			e.hasResult = true
			e.fetchedAt = c.now()
			if err != nil {
				e.err = err
			} else {
				e.data = data
				e.err = nil
			}
			// Invalidated while in flight: keep the result but refetch next time.
			e.stale = e.gen != gen
		}
		c.mu.Unlock()

		if err != nil {
			c.log.Warnw("query failed", "key", id, "error", err)
		} else {
			c.log.Debugw("query fetched", "key", id, "duration", c.now().Sub(start))
		}
		return data, err
	})
	if shared {
		c.log.Debugw("query deduplicated", "key", id)
	}
	return v, err
}
