package sheet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/widelong/internal/core"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of tables kept by NewCachedReader when
// given a non-positive size.
const DefaultCacheSize = 32

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// CachedReader wraps a Reader with an LRU cache so a batch can read each
// file in its pre-check and again in its write loop without decoding twice.
// Entries are keyed by absolute path, size and modification time, so an
// edited file is read afresh. Cached tables are shared and must not be
// modified.
type CachedReader struct {
	next  core.TableReader
	cache *lru.Cache[cacheKey, *core.Table]
}

// NewCachedReader caches up to size tables read through next.
func NewCachedReader(next core.TableReader, size int) (*CachedReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *core.Table](size)
	if err != nil {
		return nil, fmt.Errorf("create table cache: %w", err)
	}
	return &CachedReader{next: next, cache: cache}, nil
}

// Read returns the cached table for path or reads it through the wrapped
// reader.
func (c *CachedReader) Read(path string) (*core.Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}

	key := cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if t, ok := c.cache.Get(key); ok {
		return t, nil
	}

	t, err := c.next.Read(path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, t)
	return t, nil
}

// Len returns the number of cached tables.
func (c *CachedReader) Len() int {
	return c.cache.Len()
}

// Purge drops every cached table.
func (c *CachedReader) Purge() {
	c.cache.Purge()
}
