// Package headercache is a best-effort accelerator in front of the B+
// tree's header page. The tree writes it through on every root change, and
// a miss falls back to reading the real header page through the buffer
// pool. A hit is used as-is: the cached value is not checked against the
// header page. ristretto's probabilistic admission and eviction can only
// turn a would-be hit into a miss, which is why it fits here although it
// could never satisfy the buffer pool's own deterministic LRU contract.
package headercache

import (
	"pagekit/diskmanager"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache maps index name to root page id.
type Cache struct {
	inner *ristretto.Cache[string, diskmanager.PageID]
}

// New builds a cache sized for roughly maxEntries index names.
func New(maxEntries int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, diskmanager.PageID]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Lookup returns the cached root page id for name, if present.
func (c *Cache) Lookup(name string) (diskmanager.PageID, bool) {
	return c.inner.Get(name)
}

// Set records name's current root page id, cost 1 per entry.
func (c *Cache) Set(name string, root diskmanager.PageID) {
	c.inner.Set(name, root, 1)
	c.inner.Wait()
}

// Invalidate drops any cached entry for name, forcing the next Lookup to
// miss and the caller to re-read the header page.
func (c *Cache) Invalidate(name string) {
	c.inner.Del(name)
}

// Close releases ristretto's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
