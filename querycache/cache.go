// Package querycache is a keyed store of immutable query results. Mutations
// never patch an entry: they invalidate its key, subscribers are told, and the
// next reader refetches.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/metrics"
)

// Key names one query, e.g. the job list of an organization for a date.
type Key string

// JobsKey is the key of the job snapshot for orgID on date.
func JobsKey(orgID string, date time.Time) Key {
	return Key(fmt.Sprintf("jobs:%s:%s", orgID, date.UTC().Format("2006-01-02")))
}

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Broadcaster carries invalidations between server instances.
type Broadcaster interface {
	Publish(ctx context.Context, key Key) error
	// Listen calls fn for every invalidation published by another instance until ctx is done.
	Listen(ctx context.Context, fn func(Key)) error
}

type entry struct {
	value     any
	fetchedAt time.Time
}

type Cache struct {
	mu          sync.Mutex
	entries     map[Key]entry
	generations map[Key]uint64
	subscribers map[Key]map[uint64]func(Key)
	nextSub     uint64

	group       singleflight.Group
	broadcaster Broadcaster
}

// New returns an empty cache. broadcaster may be nil for a single instance.
func New(broadcaster Broadcaster) *Cache {
	return &Cache{
		entries:     make(map[Key]entry),
		generations: make(map[Key]uint64),
		subscribers: make(map[Key]map[uint64]func(Key)),
		broadcaster: broadcaster,
	}
}

// Get returns the cached value for key, if any.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// FetchedAt reports when the cached value for key was loaded.
func (c *Cache) FetchedAt(key Key) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.fetchedAt, ok
}

// Refetch loads key through fetch and stores the result. Concurrent refetches
// of the same key share one call; a refetch started after an invalidation never
// joins one started before it, and a result that was invalidated while loading
// is returned but not stored.
func (c *Cache) Refetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	gen := c.generations[key]
	c.mu.Unlock()

	flight := fmt.Sprintf("%s#%d", key, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		value, err := fetch(context.WithoutCancel(ctx))
		metrics.Refetch(err)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generations[key] == gen {
			c.entries[key] = entry{value: value, fetchedAt: time.Now()}
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetOrFetch returns the cached value or refetches it.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return c.Refetch(ctx, key, fetch)
}

// Invalidate drops key, notifies local subscribers before returning, and
// publishes the invalidation to other instances.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.invalidate(key)
	if c.broadcaster == nil {
		return
	}
	if err := c.broadcaster.Publish(ctx, key); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("Failed to broadcast invalidation")
	}
}

func (c *Cache) invalidate(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.generations[key]++
	subs := make([]func(Key), 0, len(c.subscribers[key]))
	for _, fn := range c.subscribers[key] {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
}

// Subscribe registers fn for invalidations of key and returns its cancel func.
func (c *Cache) Subscribe(key Key, fn func(Key)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	if c.subscribers[key] == nil {
		c.subscribers[key] = make(map[uint64]func(Key))
	}
	c.subscribers[key][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers[key], id)
		if len(c.subscribers[key]) == 0 {
			delete(c.subscribers, key)
		}
	}
}

// Run applies invalidations received from other instances until ctx is done.
// Without a broadcaster it just waits for ctx.
func (c *Cache) Run(ctx context.Context) error {
	if c.broadcaster == nil {
		<-ctx.Done()
		return nil
	}
	return c.broadcaster.Listen(ctx, c.invalidate)
}
