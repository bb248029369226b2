// Package delegate implements a weak-reference fan-out list: a set of
// listeners invoked in registration order, with dead (garbage-collected)
// targets pruned lazily as they're discovered during invocation.
package delegate

import (
	"sync"
	"weak"

	"github.com/google/uuid"
)

// Delegate holds a set of listeners of type *L and fans out Invoke calls to
// each live one. Listeners may be registered weakly (Add) or strongly
// (AddStrong); a weakly-held listener that has been garbage collected is
// silently dropped the next time Invoke runs.
//
// Delegate is safe for concurrent use. Invoke iterates a snapshot taken
// under lock, so listeners may Add or Remove from within their own
// callback without deadlocking or affecting the current pass.
type Delegate[L any] struct {
	mu      sync.Mutex
	entries []entry[L]
}

type entry[L any] struct {
	id     string
	weak   weak.Pointer[L]
	strong *L
	isWeak bool
}

// New constructs an empty Delegate.
func New[L any]() *Delegate[L] {
	return &Delegate[L]{}
}

// Add registers listener weakly and returns an id usable with Remove.
func (d *Delegate[L]) Add(listener *L) string {
	id := uuid.NewString()

	d.mu.Lock()
	d.entries = append(d.entries, entry[L]{id: id, weak: weak.Make(listener), isWeak: true})
	d.mu.Unlock()

	return id
}

// AddStrong registers listener with a strong reference, keeping it alive
// for as long as the Delegate itself is reachable. Used sparingly, for
// listeners whose lifetime the caller explicitly wants tied to the task.
func (d *Delegate[L]) AddStrong(listener *L) string {
	id := uuid.NewString()

	d.mu.Lock()
	d.entries = append(d.entries, entry[L]{id: id, strong: listener})
	d.mu.Unlock()

	return id
}

// Remove drops the entry registered under id, if any. Idempotent.
func (d *Delegate[L]) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, e := range d.entries {
		if e.id == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return
		}
	}
}

// Invoke calls fn once for every currently-live listener, in registration
// order. Entries whose weak target has been collected are skipped and
// compacted out of the set.
func (d *Delegate[L]) Invoke(fn func(*L)) {
	d.mu.Lock()
	snapshot := make([]entry[L], len(d.entries))
	copy(snapshot, d.entries)
	d.mu.Unlock()

	var dead []string
	for _, e := range snapshot {
		target := e.strong
		if e.isWeak {
			target = e.weak.Value()
			if target == nil {
				dead = append(dead, e.id)
				continue
			}
		}
		fn(target)
	}

	if len(dead) > 0 {
		d.mu.Lock()
		for _, id := range dead {
			for i, e := range d.entries {
				if e.id == id {
					d.entries = append(d.entries[:i], d.entries[i+1:]...)
					break
				}
			}
		}
		d.mu.Unlock()
	}
}

// MergeFrom appends every entry of other onto d, preserving other's
// registration order after d's existing entries. other is left unchanged.
func (d *Delegate[L]) MergeFrom(other *Delegate[L]) {
	other.mu.Lock()
	incoming := make([]entry[L], len(other.entries))
	copy(incoming, other.entries)
	other.mu.Unlock()

	d.mu.Lock()
	d.entries = append(d.entries, incoming...)
	d.mu.Unlock()
}

// IsEmpty reports whether the delegate currently has zero entries. A
// weakly-held listener that has already been collected but not yet pruned
// by Invoke still counts as an entry.
func (d *Delegate[L]) IsEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries) == 0
}
