// Package observability provides hooks for metrics, tracing, and logging.
//
// The core packages stay free of observability backends: hook interfaces
// are defined here with no-op defaults, and the binary's main registers
// real implementations at startup. Libraries emit events through the
// package-level accessors.
//
// Register hooks at application startup:
//
//	observability.SetScanHooks(&myScanHooks{})
//	observability.SetCacheHooks(&myCacheHooks{})
//
// Libraries call hooks to emit events:
//
//	observability.Scan().OnStageStart(ctx, "detect")
//	// ... run the stage ...
//	observability.Scan().OnStageComplete(ctx, "detect", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// ScanHooks receives events from the scan pipeline. Stage names are the
// pipeline's own: "collect", "graph", "extract", "detect", "plan",
// "apply".
type ScanHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnCollision fires once per detected collision with its severity.
	OnCollision(ctx context.Context, module, severity string)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// IndexHooks receives events from package-index requests.
type IndexHooks interface {
	OnRequest(ctx context.Context, pkg string)
	OnResponse(ctx context.Context, pkg string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, pkg string, err error)
}

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnStageStart(context.Context, string)                          {}
func (NoopScanHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopScanHooks) OnCollision(context.Context, string, string)                   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopIndexHooks is a no-op implementation of IndexHooks.
type NoopIndexHooks struct{}

func (NoopIndexHooks) OnRequest(context.Context, string)                      {}
func (NoopIndexHooks) OnResponse(context.Context, string, int, time.Duration) {}
func (NoopIndexHooks) OnError(context.Context, string, error)                 {}

var (
	mu         sync.RWMutex
	scanHooks  ScanHooks  = NoopScanHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	indexHooks IndexHooks = NoopIndexHooks{}
)

// SetScanHooks registers scan pipeline hooks. Call at startup, before
// any scan runs.
func SetScanHooks(h ScanHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopScanHooks{}
	}
	scanHooks = h
}

// SetCacheHooks registers cache hooks.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopCacheHooks{}
	}
	cacheHooks = h
}

// SetIndexHooks registers index client hooks.
func SetIndexHooks(h IndexHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopIndexHooks{}
	}
	indexHooks = h
}

// Scan returns the registered scan hooks.
func Scan() ScanHooks {
	mu.RLock()
	defer mu.RUnlock()
	return scanHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}

// Index returns the registered index hooks.
func Index() IndexHooks {
	mu.RLock()
	defer mu.RUnlock()
	return indexHooks
}
