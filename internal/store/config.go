package store

import "time"

// CacheConfig governs when cached reads are served without a network call.
type CacheConfig struct {
	// TTL is the freshness window for the bulk collection after a full fetch.
	TTL time.Duration
	// MaxAge is the freshness window for individual entity fetches.
	MaxAge time.Duration
	// MaxSize bounds the per-entity recency cache.
	MaxSize int
	// PageSize is the list page size; zero fetches the whole collection.
	PageSize int
}

// Cache defaults applied when a field is zero.
const (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxAge  = 10 * time.Minute
	DefaultMaxSize = 256
)

func (c CacheConfig) normalized() CacheConfig {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	return c
}
