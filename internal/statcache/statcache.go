// Package statcache holds encoded stats responses between catalog and
// history changes.
package statcache

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coocood/freecache"
)

// Cache keys every entry by a data version. Invalidate bumps the version so
// older entries are never returned again; freecache evicts them by TTL or
// LRU pressure.
type Cache struct {
	cache   *freecache.Cache
	ttl     int
	version atomic.Uint64
}

// MinSizeMB is the smallest cache New will build. freecache rejects entries
// larger than 1/1024 of its size, so 16 MB admits responses up to 16 KB.
const MinSizeMB = 16

// New returns a cache of sizeMB megabytes, raised to MinSizeMB. A size of
// zero disables storage: Get always misses and Set is a no-op.
func New(sizeMB int, ttl time.Duration) *Cache {
	c := &Cache{ttl: int(ttl.Seconds())}
	if sizeMB > 0 {
		c.cache = freecache.NewCache(max(sizeMB, MinSizeMB) * 1024 * 1024)
	}
	return c
}

func key(name string, version uint64) []byte {
	return []byte(name + ":" + strconv.FormatUint(version, 10))
}

func (c *Cache) Get(name string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	val, err := c.cache.Get(key(name, c.Version()))
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores value under the current version.
func (c *Cache) Set(name string, value []byte) error {
	return c.SetAt(name, c.Version(), value)
}

// SetAt stores value under the version that was current when it was
// computed. If Invalidate ran in between, the entry is unreachable.
func (c *Cache) SetAt(name string, version uint64, value []byte) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Set(key(name, version), value, c.ttl); err != nil {
		return fmt.Errorf("cache %s: %w", name, err)
	}
	return nil
}

// Invalidate must be called after every catalog or history mutation.
func (c *Cache) Invalidate() {
	c.version.Add(1)
}

func (c *Cache) Version() uint64 {
	return c.version.Load()
}
