package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for request lifecycle operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Request identity attributes
	// ========================================================================
	AttrFingerprint = "request.fingerprint"
	AttrMethod      = "request.method"
	AttrURL         = "request.url"
	AttrStatus      = "request.status"
	AttrStatusMsg   = "request.status_msg"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit    = "cache.hit"
	AttrCacheTier   = "cache.tier"
	AttrCachePolicy = "cache.policy"
	AttrCacheSize   = "cache.size"

	// ========================================================================
	// Scheduling attributes
	// ========================================================================
	AttrQueue       = "queue.name"
	AttrPriority    = "queue.priority"
	AttrConcurrency = "queue.concurrency"
	AttrInFlight    = "queue.in_flight"

	// ========================================================================
	// Coalescing & observer attributes
	// ========================================================================
	AttrCoalesced     = "coalesce.merged"
	AttrObserverCount = "observer.count"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// Root spans for the Orchestrator's public entry points
	SpanRequest     = "reqkit.request"
	SpanRequestSync = "reqkit.request.sync"
	SpanObserve     = "reqkit.observe"

	// Network task lifecycle
	SpanTaskProcess   = "reqkit.task.process"
	SpanTaskTransport = "reqkit.task.transport"
	SpanTaskDecode    = "reqkit.task.decode"

	// Cache operations
	SpanCacheLookup = "cache.lookup"
	SpanCacheWrite  = "cache.write"
	SpanCacheEvict  = "cache.evict"
	SpanCacheExpire = "cache.remove_expired"

	// Coalescing and scheduling operations
	SpanCoalesce     = "coalescer.merge"
	SpanQueueAdmit   = "queue.admit"
	SpanQueueDispatch = "queue.dispatch"
)

// Fingerprint returns an attribute for a request fingerprint
func Fingerprint(fp string) attribute.KeyValue {
	return attribute.String(AttrFingerprint, fp)
}

// Method returns an attribute for an HTTP method
func Method(method string) attribute.KeyValue {
	return attribute.String(AttrMethod, method)
}

// URL returns an attribute for a composed request URL
func URL(url string) attribute.KeyValue {
	return attribute.String(AttrURL, url)
}

// Status returns an attribute for HTTP status code
func Status(status int) attribute.KeyValue {
	return attribute.Int(AttrStatus, status)
}

// StatusMsg returns an attribute for a human-readable status message
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheTier returns an attribute for the tier that served/stored an entry
func CacheTier(tier string) attribute.KeyValue {
	return attribute.String(AttrCacheTier, tier)
}

// CachePolicy returns an attribute for the expiry policy name
func CachePolicy(policy string) attribute.KeyValue {
	return attribute.String(AttrCachePolicy, policy)
}

// CacheSize returns an attribute for cache entry size in bytes
func CacheSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrCacheSize, size)
}

// Queue returns an attribute for a named queue identifier
func Queue(name string) attribute.KeyValue {
	return attribute.String(AttrQueue, name)
}

// Priority returns an attribute for task priority
func Priority(p int) attribute.KeyValue {
	return attribute.Int(AttrPriority, p)
}

// Concurrency returns an attribute for a queue's concurrency limit
func Concurrency(n int) attribute.KeyValue {
	return attribute.Int(AttrConcurrency, n)
}

// InFlight returns an attribute for the number of tasks currently running
func InFlight(n int) attribute.KeyValue {
	return attribute.Int(AttrInFlight, n)
}

// Coalesced returns an attribute indicating whether a task was merged
func Coalesced(merged bool) attribute.KeyValue {
	return attribute.Bool(AttrCoalesced, merged)
}

// ObserverCount returns an attribute for the number of observers on a fingerprint
func ObserverCount(n int) attribute.KeyValue {
	return attribute.Int(AttrObserverCount, n)
}

// StartRequestSpan starts a span for an Orchestrator request, tagging it
// with the request's fingerprint and composed URL.
func StartRequestSpan(ctx context.Context, name, fingerprint, method, url string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Fingerprint(fingerprint),
		Method(method),
		URL(url),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a cache operation.
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}

// StartQueueSpan starts a span for a named-queue scheduling operation.
func StartQueueSpan(ctx context.Context, operation, queue string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Queue(queue)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "queue."+operation, trace.WithAttributes(allAttrs...))
}
