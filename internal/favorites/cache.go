// Package favorites keeps the set of recipes the local user has favorited.
// Reads are synchronous and safe from any goroutine; membership is replaced
// atomically on every change. Confirmed changes are written through to a
// Persister by a single background writer so they land in order.
package favorites

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/metrics"
)

// Persister is the durable storage behind the cache.
type Persister interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, recipeID string, favorite bool) error
}

type set map[string]struct{}

// Cache is the in-memory FavoriteSet plus its write-behind queue.
type Cache struct {
	current   atomic.Pointer[set]
	persister Persister
	writes    *dispatch.Queue
}

// NewCache returns an empty cache backed by p. A nil Persister keeps the
// cache memory-only.
func NewCache(p Persister) *Cache {
	c := &Cache{persister: p, writes: dispatch.NewQueue()}
	empty := set{}
	c.current.Store(&empty)
	return c
}

// Load replaces the in-memory set with the persisted one.
func (c *Cache) Load(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	ids, err := c.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	next := make(set, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	c.current.Store(&next)
	return nil
}

// Contains reports whether recipeID is favorited.
func (c *Cache) Contains(recipeID string) bool {
	_, ok := (*c.current.Load())[recipeID]
	return ok
}

// Len returns the number of favorited recipes.
func (c *Cache) Len() int {
	return len(*c.current.Load())
}

// IDs returns the favorited recipe IDs in sorted order.
func (c *Cache) IDs() []string {
	cur := *c.current.Load()
	ids := make([]string, 0, len(cur))
	for id := range cur {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Set changes membership of recipeID in memory only and returns the previous
// membership. The whole set is swapped, so concurrent readers see either the
// old or the new set.
func (c *Cache) Set(recipeID string, favorite bool) bool {
	for {
		old := c.current.Load()
		_, was := (*old)[recipeID]
		if was == favorite {
			return was
		}
		next := make(set, len(*old)+1)
		for id := range *old {
			next[id] = struct{}{}
		}
		if favorite {
			next[recipeID] = struct{}{}
		} else {
			delete(next, recipeID)
		}
		if c.current.CompareAndSwap(old, &next) {
			return was
		}
	}
}

// Persist queues a durable write of confirmed membership. Writes are applied
// in the order they were queued by Run or Drain.
func (c *Cache) Persist(recipeID string, favorite bool) {
	if c.persister == nil {
		return
	}
	c.writes.Post(func() {
		c.save(context.Background(), recipeID, favorite)
	})
}

// Run applies queued writes until ctx is done, then drains what is left.
// Use either Run or Drain, never both at once.
func (c *Cache) Run(ctx context.Context) {
	_ = c.writes.Run(ctx)
	c.Drain()
}

// Drain applies every queued write synchronously and returns how many ran.
func (c *Cache) Drain() int {
	return c.writes.RunPending()
}

func (c *Cache) save(ctx context.Context, recipeID string, favorite bool) {
	if err := c.persister.Save(ctx, recipeID, favorite); err != nil {
		metrics.FavoriteWriteErrorsTotal.Inc()
		glog.Errorf("favorites: persist %s=%t: %v", recipeID, favorite, err)
		return
	}
	metrics.FavoriteWritesTotal.Inc()
}
