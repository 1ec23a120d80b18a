// Package cache provides a small generic LRU cache.
//
//	c := cache.New[float32, *kernel.Kernel](64)
//	k := c.GetOrCreate(sigma, func() *kernel.Kernel { return build(sigma) })
//
// The cache is bounded by a soft limit. When an insertion pushes it over the
// limit, least recently used entries are evicted until it is back at the
// limit. A limit of 0 disables eviction.
package cache
