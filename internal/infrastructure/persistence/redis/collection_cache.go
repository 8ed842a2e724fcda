package redis

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
)

// RecordStore is the subset of Cache a CachedCollection uses.
type RecordStore interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedCollection is a read-through cache for GetByID in front of another
// gateway. Writes go to the inner gateway first and then evict the cached
// copy. Redis failures are logged and fall back to the inner gateway.
//
// A fill that overlaps an eviction of the same key in this process drops
// the copy it wrote. Writes made by other processes are only bounded by
// the TTL.
type CachedCollection[R shared.Record[R]] struct {
	inner     shared.Collection[R]
	cache     RecordStore
	name      string
	ttl       time.Duration
	newRecord func() R
	group     singleflight.Group
	log       *logger.Logger

	fillMu sync.Mutex
	fills  map[string]*fill
}

// fill tracks in-flight cache fills of one key. gen moves on every
// eviction of the key while fills are running.
type fill struct {
	gen     uint64
	running int
}

// NewCachedCollection wraps inner. name namespaces the cache keys.
func NewCachedCollection[R shared.Record[R]](
	inner shared.Collection[R],
	cache RecordStore,
	name string,
	ttl time.Duration,
	newRecord func() R,
	log *logger.Logger,
) *CachedCollection[R] {
	if ttl <= 0 {
		ttl = TTLRecordCache
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedCollection[R]{
		inner:     inner,
		cache:     cache,
		name:      name,
		ttl:       ttl,
		newRecord: newRecord,
		fills:     make(map[string]*fill),
		log:       log.With(logger.Component("record_cache"), logger.String("collection", name)),
	}
}

// GetByID implements shared.Collection. Concurrent misses for the same id
// share one inner read.
func (c *CachedCollection[R]) GetByID(ctx context.Context, id string) (R, error) {
	var zero R
	key := RecordKey(c.name, id)

	rec := c.newRecord()
	err := c.cache.Get(ctx, key, rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("record cache read failed", logger.String("key", key), logger.Err(err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.beginFill(key)
		defer c.endFill(key)

		found, err := c.inner.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if isNil(found) {
			return nil, nil
		}
		if err := c.cache.Set(ctx, key, found, c.ttl); err != nil {
			c.log.Warn("record cache write failed", logger.String("key", key), logger.Err(err))
			return found, nil
		}
		if c.evictedSince(key, gen) {
			// The record changed while it was being read; the copy may be stale.
			if err := c.cache.Delete(ctx, key); err != nil {
				c.log.Warn("stale record cache drop failed", logger.String("key", key), logger.Err(err))
			}
		}
		return found, nil
	})
	if err != nil || v == nil {
		return zero, err
	}
	return v.(R).Clone(), nil
}

// Insert implements shared.Collection.
func (c *CachedCollection[R]) Insert(ctx context.Context, rec R) (R, error) {
	out, err := c.inner.Insert(ctx, rec)
	if err == nil {
		c.evict(ctx, rec.RecordID())
	}
	return out, err
}

// UpdateByID implements shared.Collection.
func (c *CachedCollection[R]) UpdateByID(ctx context.Context, id string, fn shared.UpdateFunc[R]) (R, error) {
	out, err := c.inner.UpdateByID(ctx, id, fn)
	if err == nil {
		c.evict(ctx, id)
	}
	return out, err
}

// DeleteByID implements shared.Collection.
func (c *CachedCollection[R]) DeleteByID(ctx context.Context, id string) (bool, error) {
	ok, err := c.inner.DeleteByID(ctx, id)
	if err == nil {
		c.evict(ctx, id)
	}
	return ok, err
}

// Query implements shared.Collection. Queries are never cached.
func (c *CachedCollection[R]) Query(ctx context.Context, q shared.Query) (shared.Page[R], error) {
	return c.inner.Query(ctx, q)
}

func (c *CachedCollection[R]) evict(ctx context.Context, id string) {
	key := RecordKey(c.name, id)
	c.fillMu.Lock()
	if f, ok := c.fills[key]; ok {
		f.gen++
	}
	c.fillMu.Unlock()
	c.group.Forget(key)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.log.Warn("record cache eviction failed", logger.String("key", key), logger.Err(err))
	}
}

func (c *CachedCollection[R]) beginFill(key string) uint64 {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()
	f, ok := c.fills[key]
	if !ok {
		f = &fill{}
		c.fills[key] = f
	}
	f.running++
	return f.gen
}

func (c *CachedCollection[R]) endFill(key string) {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()
	if f, ok := c.fills[key]; ok {
		f.running--
		if f.running == 0 {
			delete(c.fills, key)
		}
	}
}

func (c *CachedCollection[R]) evictedSince(key string, gen uint64) bool {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()
	f, ok := c.fills[key]
	return ok && f.gen != gen
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil())
}
