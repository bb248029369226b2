package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Request Identity
	// ========================================================================
	KeyFingerprint = "fingerprint" // Request fingerprint (URL + "#" + hex digest)
	KeyMethod      = "method"      // HTTP method
	KeyURL         = "url"         // Composed request URL
	KeyStatus      = "status"      // HTTP status code
	KeyStatusMsg   = "status_msg"  // Human-readable status message

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit    = "cache_hit"    // Cache hit indicator
	KeyCacheTier   = "cache_tier"   // Tier that served/stored the entry: memory, disk
	KeyCachePolicy = "cache_policy" // Expiry policy: immediate, timed, forever
	KeyCacheSize   = "cache_size"   // Current cache size in bytes
	KeyCacheCap    = "cache_cap"    // Maximum cache capacity in bytes
	KeyEvicted     = "evicted"      // Number of entries evicted
	KeyExpired     = "expired"      // Number of entries removed for expiry

	// ========================================================================
	// Scheduling & Queues
	// ========================================================================
	KeyQueue       = "queue"       // Named queue identifier
	KeyPriority    = "priority"    // Task priority
	KeyConcurrency = "concurrency" // Queue concurrency limit
	KeyInFlight    = "in_flight"   // Number of tasks currently running
	KeyPending     = "pending"     // Number of tasks pending admission
	KeyTaskState   = "task_state"  // Task lifecycle state: pending, running, finished, cancelled

	// ========================================================================
	// Coalescing & Observers
	// ========================================================================
	KeyCoalesced     = "coalesced"      // Whether a task was merged into an in-flight one
	KeyObserverCount = "observer_count" // Number of observers attached to a fingerprint
	KeyCancelled     = "cancelled"      // Whether an observation/task was cancelled

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Closed network.ErrorKind classification
	KeySource     = "source"      // Data source: cache, transport
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyAttempt    = "attempt"     // Attempt counter (diagnostic; retries are not implemented)
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Request Identity
// ----------------------------------------------------------------------------

// Fingerprint returns a slog.Attr for a request fingerprint
func Fingerprint(fp string) slog.Attr {
	return slog.String(KeyFingerprint, fp)
}

// Method returns a slog.Attr for an HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// URL returns a slog.Attr for a composed request URL
func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

// Status returns a slog.Attr for HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// ----------------------------------------------------------------------------
// Cache Layer
// ----------------------------------------------------------------------------

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheTier returns a slog.Attr for the tier that served/stored an entry
func CacheTier(tier string) slog.Attr {
	return slog.String(KeyCacheTier, tier)
}

// CachePolicy returns a slog.Attr for the expiry policy name
func CachePolicy(policy string) slog.Attr {
	return slog.String(KeyCachePolicy, policy)
}

// CacheSize returns a slog.Attr for current cache size
func CacheSize(size int64) slog.Attr {
	return slog.Int64(KeyCacheSize, size)
}

// CacheCapacity returns a slog.Attr for maximum cache capacity
func CacheCapacity(capacity int64) slog.Attr {
	return slog.Int64(KeyCacheCap, capacity)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// Expired returns a slog.Attr for number of entries removed for expiry
func Expired(n int) slog.Attr {
	return slog.Int(KeyExpired, n)
}

// ----------------------------------------------------------------------------
// Scheduling & Queues
// ----------------------------------------------------------------------------

// Queue returns a slog.Attr for a named queue identifier
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// Priority returns a slog.Attr for task priority
func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

// Concurrency returns a slog.Attr for a queue's concurrency limit
func Concurrency(n int) slog.Attr {
	return slog.Int(KeyConcurrency, n)
}

// InFlight returns a slog.Attr for the number of tasks currently running
func InFlight(n int) slog.Attr {
	return slog.Int(KeyInFlight, n)
}

// Pending returns a slog.Attr for the number of tasks pending admission
func Pending(n int) slog.Attr {
	return slog.Int(KeyPending, n)
}

// TaskState returns a slog.Attr for task lifecycle state
func TaskState(state string) slog.Attr {
	return slog.String(KeyTaskState, state)
}

// ----------------------------------------------------------------------------
// Coalescing & Observers
// ----------------------------------------------------------------------------

// Coalesced returns a slog.Attr indicating whether a task was merged
func Coalesced(merged bool) slog.Attr {
	return slog.Bool(KeyCoalesced, merged)
}

// ObserverCount returns a slog.Attr for the number of observers on a fingerprint
func ObserverCount(n int) slog.Attr {
	return slog.Int(KeyObserverCount, n)
}

// Cancelled returns a slog.Attr indicating cancellation
func Cancelled(cancelled bool) slog.Attr {
	return slog.Bool(KeyCancelled, cancelled)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for the closed error-kind classification
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Source returns a slog.Attr for the data source: cache, transport
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Attempt returns a slog.Attr for an attempt counter
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
