// Package observer implements the fingerprint-keyed observer registry:
// callers register a callback to be invoked whenever the cache entry under
// a given fingerprint changes, and receive a token that can cancel that
// registration.
package observer

import (
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/marmos91/reqkit/internal/dispatch"
	"github.com/marmos91/reqkit/internal/fingerprint"
)

// Callback receives the raw cache bytes for a fingerprint whenever it
// changes. Decoding is the caller's responsibility.
type Callback func(bytes []byte)

// WeakRef reports whether the target it was constructed from is still
// reachable. Registry itself is not generic (Go has no generic methods),
// so typed callers build a WeakRef with NewWeakRef[T] and pass the
// resulting value in.
type WeakRef interface {
	Live() bool
}

type weakRef[T any] struct {
	ptr weak.Pointer[T]
}

func (w weakRef[T]) Live() bool {
	return w.ptr.Value() != nil
}

// NewWeakRef wraps target in a WeakRef usable with Registry.Add. target
// must not be nil.
func NewWeakRef[T any](target *T) WeakRef {
	return weakRef[T]{ptr: weak.Make(target)}
}

// Token identifies one observer registration. Cancel flips a flag checked
// at delivery time, synchronously preventing any further callback
// invocation even if the registry's internal map hasn't caught up yet.
type Token struct {
	fp        fingerprint.FP
	cancelID  string
	cancelled atomic.Bool
	registry  *Registry
}

// FP reports which fingerprint this token is registered under.
func (t *Token) FP() fingerprint.FP {
	return t.fp
}

// Cancelled reports whether Cancel has been called on this token.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Cancel revokes the registration. Idempotent: calling it twice has the
// same observable effect as once. The flag flips synchronously, before
// Cancel returns; the map entry is removed asynchronously on the
// registry's dispatcher.
func (t *Token) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	if t.registry != nil {
		t.registry.dispatcher.Submit(func() {
			t.registry.removeLocked(t.fp, t.cancelID)
		})
	}
}

type entry struct {
	cancelID string
	target   WeakRef // nil means always-live
	callback Callback
	token    *Token
}

// DemotePriority is invoked by the registry when a fingerprint's observer
// list becomes empty after a delivery pass or after its last registration
// is cancelled, so the owning task's priority can be demoted.
type DemotePriority func(fp fingerprint.FP)

// Registry is the fingerprint -> observer-list store. All map mutations
// and deliveries are confined to a single serial dispatcher, matching the
// "Observer Registry map" serial domain from the concurrency model.
type Registry struct {
	dispatcher *dispatch.Serial
	entries    map[fingerprint.FP][]entry
	onEmptied  DemotePriority
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		dispatcher: dispatch.NewSerial(),
		entries:    make(map[fingerprint.FP][]entry),
	}
}

// OnEmptied registers the callback invoked when a fingerprint's observer
// list becomes empty following a delivery pass or a cancellation.
func (r *Registry) OnEmptied(fn DemotePriority) {
	r.onEmptied = fn
}

// Add registers callback under fp. target may be nil for a registration
// that lives for as long as its token isn't cancelled; otherwise it must
// be live at registration time or the observer is skipped and a
// pre-cancelled token is returned.
func (r *Registry) Add(fp fingerprint.FP, target WeakRef, callback Callback) *Token {
	token := &Token{fp: fp, cancelID: uuid.NewString(), registry: r}

	r.dispatcher.SubmitAndWait(func() {
		if target != nil && !target.Live() {
			token.cancelled.Store(true)
			return
		}
		r.entries[fp] = append(r.entries[fp], entry{
			cancelID: token.cancelID,
			target:   target,
			callback: callback,
			token:    token,
		})
	})

	return token
}

func (r *Registry) removeLocked(fp fingerprint.FP, cancelID string) {
	list := r.entries[fp]
	for i, e := range list {
		if e.cancelID == cancelID {
			r.entries[fp] = append(list[:i], list[i+1:]...)
			if len(r.entries[fp]) == 0 {
				delete(r.entries, fp)
				if r.onEmptied != nil {
					r.onEmptied(fp)
				}
			}
			return
		}
	}
}

// Deliver is invoked by the cache's change dispatcher on Add(fp): it walks
// the observer list for fp in reverse, drops entries whose target has
// been collected or whose token is cancelled, and posts each surviving
// callback to the main dispatcher in original registration order.
// Successive Deliver calls are processed in call order on the registry's
// own serial dispatcher; the callbacks they post run later on the main
// dispatcher, in the order they were posted.
func (r *Registry) Deliver(fp fingerprint.FP, bytes []byte) {
	r.dispatcher.Submit(func() {
		list := r.entries[fp]
		live := make([]entry, 0, len(list))

		for i := len(list) - 1; i >= 0; i-- {
			e := list[i]
			if e.token.Cancelled() {
				continue
			}
			if e.target != nil && !e.target.Live() {
				continue
			}
			live = append([]entry{e}, live...)
		}

		r.entries[fp] = live
		if len(live) == 0 {
			delete(r.entries, fp)
		}

		for _, e := range live {
			cb := e.callback
			tok := e.token
			dispatch.Main.Submit(func() {
				if tok.Cancelled() {
					return
				}
				cb(bytes)
			})
		}

		if len(live) == 0 && r.onEmptied != nil {
			r.onEmptied(fp)
		}
	})
}

// Count returns the number of live observer entries registered under fp.
// Intended for tests and diagnostics, not the delivery path.
func (r *Registry) Count(fp fingerprint.FP) int {
	count := 0
	r.dispatcher.SubmitAndWait(func() {
		count = len(r.entries[fp])
	})
	return count
}

// Clear drops every observer registration, as happens when the cache is
// globally cleared.
func (r *Registry) Clear() {
	r.dispatcher.SubmitAndWait(func() {
		r.entries = make(map[fingerprint.FP][]entry)
	})
}
