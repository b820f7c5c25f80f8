package knowledge

import (
	"context"
	"time"
)

// CacheStore defines the TTL key-value operations required by the engine.
// Get returns (nil, nil) on a miss; ttl == 0 means no expiry. Implementations
// may fail at any time: callers treat errors on the read path as a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Fetcher retrieves raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// Locker is a best-effort distributed lock that keeps multiple replicas
// from warming the knowledge base at the same time.
type Locker interface {
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}
