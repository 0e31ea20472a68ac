package data

import (
	"context"
	"os"
	"sync"
)

// CacheObserver receives hit/miss notifications. *metrics.Manager satisfies it.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type cacheEntry struct {
	table       *Table
	fingerprint Fingerprint
}

// Cache memoizes loaded datasets by path. Tables are immutable, so the same
// pointer is handed to every caller until the entry is invalidated or the
// file changes on disk.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	options  CSVOptions
	observer CacheObserver
}

func NewCache(options CSVOptions, observer CacheObserver) *Cache {
	return &Cache{
		entries:  make(map[string]cacheEntry),
		options:  options,
		observer: observer,
	}
}

// Get returns the table for path, loading it on a miss or when the file changed.
func (c *Cache) Get(ctx context.Context, path string) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[path]; ok && !stale(path, entry.fingerprint) {
		c.hit()
		return entry.table, nil
	}

	c.miss()
	t, fp, err := LoadFile(ctx, path, c.options)
	if err != nil {
		return nil, err
	}
	c.entries[path] = cacheEntry{table: t, fingerprint: fp}
	return t, nil
}

// Fingerprint returns the fingerprint recorded for path, if cached.
func (c *Cache) Fingerprint(path string) (Fingerprint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	return entry.fingerprint, ok
}

// Stale reports whether path is cached and the file changed since it was loaded.
func (c *Cache) Stale(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	return ok && stale(path, entry.fingerprint)
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) hit() {
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}

func stale(path string, fp Fingerprint) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() != fp.Size || info.ModTime().UnixNano() != fp.ModUnix
}
