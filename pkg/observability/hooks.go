// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries call the registered hooks; the binary registers implementations
// at startup. Every hook defaults to a no-op, so packages can emit events
// without caring whether anything listens.
//
//	stats := observability.NewStats()
//	observability.SetGatekeeperHooks(stats)
//	observability.SetPipelineHooks(stats)
//
// Gatekeeper rejections are the main reason these hooks exist: a rejected
// image never surfaces as an error to the caller, so the hook is the only
// place a reason-coded rejection can be counted.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Gatekeeper Hooks
// =============================================================================

// GatekeeperHooks receives image check decisions.
type GatekeeperHooks interface {
	// OnImageAccepted records an image that passed every check.
	OnImageAccepted(ctx context.Context, kind string, width, height int)

	// OnImageRejected records a rejection with its reason code
	// (invalid_url, fetch_failed, timeout, undersized, unsupported_type,
	// undecodable).
	OnImageRejected(ctx context.Context, kind, reason string, err error)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the card pipeline.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopGatekeeperHooks is a no-op implementation of GatekeeperHooks.
type NoopGatekeeperHooks struct{}

func (NoopGatekeeperHooks) OnImageAccepted(context.Context, string, int, int)      {}
func (NoopGatekeeperHooks) OnImageRejected(context.Context, string, string, error) {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	gatekeeperHooks GatekeeperHooks = NoopGatekeeperHooks{}
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetGatekeeperHooks registers custom gatekeeper hooks.
func SetGatekeeperHooks(h GatekeeperHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		gatekeeperHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Gatekeeper returns the registered gatekeeper hooks.
func Gatekeeper() GatekeeperHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return gatekeeperHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	gatekeeperHooks = NoopGatekeeperHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
