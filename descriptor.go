package reqkit

import (
	"net/http"

	"github.com/marmos91/reqkit/internal/expiry"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/pkg/network"
)

// MergePolicy decides, once per enqueue, whether a request is eligible
// to be coalesced with an in-flight peer of equal fingerprint. The zero
// value is MergeAlways, so descriptors that never set the field still
// get the default coalescing behavior.
type MergePolicy struct {
	kind      mergeKind
	predicate func() bool
}

type mergeKind int

const (
	mergeAlways mergeKind = iota
	mergeNever
	mergeCustom
)

var (
	// MergeAlways is the default: any live peer with a matching
	// fingerprint absorbs this request's callbacks.
	MergeAlways = MergePolicy{kind: mergeAlways}
	// MergeNever always admits the request as its own task.
	MergeNever = MergePolicy{kind: mergeNever}
)

// MergeCustom admits the request as its own task unless predicate
// returns true, letting a descriptor decide per-invocation whether this
// particular request should be eligible for coalescing.
func MergeCustom(predicate func() bool) MergePolicy {
	return MergePolicy{kind: mergeCustom, predicate: predicate}
}

// evaluate reports whether a request under this policy may be merged
// into a live peer.
func (p MergePolicy) evaluate() bool {
	switch p.kind {
	case mergeNever:
		return false
	case mergeCustom:
		return p.predicate != nil && p.predicate()
	default:
		return true
	}
}

// Descriptor declares one request shape: how to build it, how to
// interpret the response, and which named queue executes it. P is the
// request's parameter type; R is the decoded response type.
type Descriptor[P any, R any] interface {
	// Method is transmitted verbatim.
	Method() network.Method
	// Scheme defaults to "https" if the implementation returns "".
	Scheme() string
	Host() string
	// Port returns (port, true) to override the scheme's default port.
	Port() (int, bool)
	// Path builds the URL path for params; an error fails the request
	// with network.InvalidURL.
	Path(params P) (string, error)
	// Headers returns the headers to attach, or nil for none.
	Headers(params P) map[string]string
	// AsQuery returns query parameters, or nil for none.
	AsQuery(params P) map[string]string
	// AsBody returns the request body, or (nil, nil) for none.
	AsBody(params P) ([]byte, error)
	// Handle inspects the raw transport response before decoding; a
	// non-nil error fails the request with network.HandledError.
	Handle(resp *http.Response, data []byte) error
	// Decode parses the raw response body.
	Decode(data []byte) (R, error)
	// Queue declares which Named Queue executes this request.
	Queue() task.QueueDef
	// MergePolicy controls request coalescing; evaluated once per
	// invocation against params.
	MergePolicy(params P) MergePolicy
}

// Cacheable is implemented by descriptors that opt into persisting
// successful responses to the two-tier cache.
type Cacheable[P any] interface {
	// CachePolicy returns the expiry policy for a successful response to
	// params.
	CachePolicy(params P) expiry.Policy
	// ReturnCachedDataIfExpired controls whether Observe delivers a stale
	// cached value synchronously while a refresh is in flight. Defaults
	// to true in DefaultReturnCachedDataIfExpired.
	ReturnCachedDataIfExpired() bool
}

// DefaultReturnCachedDataIfExpired is the value descriptors should
// return from ReturnCachedDataIfExpired unless they have a specific
// reason to withhold stale data.
const DefaultReturnCachedDataIfExpired = true

// MatchCandidate lets a descriptor override the coalescer's default
// merge-candidate rule (fingerprint equality). A descriptor implementing
// this is consulted instead of the default whenever a new request with
// the same underlying runnable type is considered for coalescing.
type MatchCandidate[P any] interface {
	ShouldBeMerged(other P) bool
}
