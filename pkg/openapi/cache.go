package openapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long parsed operations stay cached.
const DefaultCacheTTL = 5 * time.Minute

// OperationCache loads and parses a document once per TTL window, keyed by
// the source location.
type OperationCache struct {
	loader Loader
	parser Parser
	cache  *cache.Cache
}

// NewOperationCache wires a loader and parser behind a TTL cache. A
// non-positive ttl selects DefaultCacheTTL.
func NewOperationCache(loader Loader, parser Parser, ttl time.Duration) *OperationCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &OperationCache{
		loader: loader,
		parser: parser,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Operations returns the operations of the document at src, loading and
// parsing it on a cache miss.
func (c *OperationCache) Operations(ctx context.Context, src Source) (map[string]Operation, error) {
	if c == nil || c.loader == nil || c.parser == nil {
		return nil, errors.New("openapi: operation cache is not configured")
	}
	if src == nil {
		return nil, errors.New("openapi: source is required")
	}

	key := string(src.Kind()) + ":" + src.Location()
	if cached, ok := c.cache.Get(key); ok {
		if ops, ok := cached.(map[string]Operation); ok {
			return ops, nil
		}
	}

	doc, err := c.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", src.Location(), err)
	}
	ops, err := c.parser.Operations(ctx, doc)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, ops)
	return ops, nil
}

// Invalidate drops the cached operations for src.
func (c *OperationCache) Invalidate(src Source) {
	if c == nil || src == nil {
		return
	}
	c.cache.Delete(string(src.Kind()) + ":" + src.Location())
}
