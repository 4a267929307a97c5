// Package cache provides pluggable byte-level caching for modguard.
//
// Caching serves one purpose here: avoiding repeated package-index lookups
// when the version-constraint planner consults PyPI across runs. Scan
// analysis itself is pure and cheap enough to recompute; the dependency
// graph is never persisted between invocations.
//
// Backends:
//   - FileCache: per-user cache directory, default for CLI usage
//   - RedisCache: shared cache for CI runners
//   - NullCache: caching disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is the storage backend for cached byte payloads.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was found (and not expired).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the different cacheable payloads.
type Keyer interface {
	// HTTPKey generates a key for a cached HTTP response.
	HTTPKey(namespace, key string) string
	// IndexKey generates a key for cached package-index version metadata.
	IndexKey(pkg string) string
}

// DefaultKeyer hashes key components into collision-free keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http:"+namespace, key)
}

// IndexKey generates a key for package-index metadata caching.
func (k *DefaultKeyer) IndexKey(pkg string) string {
	return hashKey("index", pkg)
}

// ScopedKeyer wraps a Keyer with a prefix so that separate contexts
// (for example, distinct CI pipelines sharing one Redis) do not collide.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// IndexKey generates a prefixed key for package-index metadata caching.
func (k *ScopedKeyer) IndexKey(pkg string) string {
	return k.prefix + k.inner.IndexKey(pkg)
}

// hashKey builds a stable key of the form prefix:hex(sha256(parts)).
// Hashing keeps keys filesystem- and Redis-safe regardless of what the
// parts contain, and the prefix keeps payload kinds apart.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}
