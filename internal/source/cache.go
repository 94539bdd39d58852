package source

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"bundleindex/internal/source/core"
)

// Cached decorates a Store with an LRU of fetched bundles. Bundle versions
// are immutable, so a hit can never serve stale documents.
type Cached struct {
	inner core.Store
	cache *lru.Cache[string, map[string]json.RawMessage]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner core.Store, size int) (*Cached, error) {
	cache, err := lru.New[string, map[string]json.RawMessage](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Driver reports the wrapped store's driver.
func (c *Cached) Driver() core.Driver { return c.inner.Driver() }

// Fetch serves from cache when possible. The returned map is copied so a
// caller cannot poison the cached entry.
func (c *Cached) Fetch(ctx context.Context, uuid, version string) (map[string]json.RawMessage, error) {
	key := uuid + "." + version
	if docs, ok := c.cache.Get(key); ok {
		return copyDocs(docs), nil
	}
	docs, err := c.inner.Fetch(ctx, uuid, version)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, copyDocs(docs))
	return docs, nil
}

func copyDocs(in map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
