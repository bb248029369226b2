package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID     string    // OpenTelemetry trace ID
	SpanID      string    // OpenTelemetry span ID
	Fingerprint string    // Request fingerprint (URL + "#" + hex digest)
	Method      string    // HTTP method
	URL         string    // Composed request URL
	Queue       string    // Named queue the task was admitted to
	Priority    int       // Task priority at last update
	StartTime   time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a request with the given fingerprint
func NewLogContext(fingerprint string) *LogContext {
	return &LogContext{
		Fingerprint: fingerprint,
		StartTime:   time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:     lc.TraceID,
		SpanID:      lc.SpanID,
		Fingerprint: lc.Fingerprint,
		Method:      lc.Method,
		URL:         lc.URL,
		Queue:       lc.Queue,
		Priority:    lc.Priority,
		StartTime:   lc.StartTime,
	}
}

// WithRequest returns a copy with the method and URL set
func (lc *LogContext) WithRequest(method, url string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Method = method
		clone.URL = url
	}
	return clone
}

// WithQueue returns a copy with the queue name set
func (lc *LogContext) WithQueue(queue string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Queue = queue
	}
	return clone
}

// WithPriority returns a copy with the priority set
func (lc *LogContext) WithPriority(priority int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Priority = priority
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
