package service

import (
	"context"

	"github.com/triplebob/emis-xml-convertor/cache"
)

// CachedExpansion wraps an ExpansionService with an LRU cache. Descendant
// expansions are stable for the lifetime of a terminology release, so
// repeated requests for the same code are served without hitting the inner
// service.
type CachedExpansion struct {
	inner ExpansionService
	cache *cache.Cache[ExpansionRequest, []string]
}

// NewCachedExpansion wraps inner with a cache of the given capacity.
func NewCachedExpansion(inner ExpansionService, capacity int) *CachedExpansion {
	return &CachedExpansion{
		inner: inner,
		cache: cache.New[ExpansionRequest, []string](capacity),
	}
}

// Expand implements ExpansionService. Errors from the inner service are not
// cached.
func (s *CachedExpansion) Expand(ctx context.Context, req ExpansionRequest) ([]string, error) {
	return s.cache.GetOrPut(req, func() ([]string, error) {
		return s.inner.Expand(ctx, req)
	})
}

// ClearCache drops all cached expansions, for use after a terminology
// release change.
func (s *CachedExpansion) ClearCache() {
	s.cache.Clear()
}

// CacheStats returns the underlying cache statistics.
func (s *CachedExpansion) CacheStats() cache.Stats {
	return s.cache.Stats()
}

var _ ExpansionService = (*CachedExpansion)(nil)
