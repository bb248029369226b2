package reqkit

import (
	"time"

	"github.com/marmos91/reqkit/internal/expiry"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/pkg/observer"
)

// CacheableDescriptor is a Descriptor that also declares a cache policy,
// the minimum contract Observe requires: an observer with no cache policy
// would never have anything to deliver on registration.
type CacheableDescriptor[P any, R any] interface {
	Descriptor[P, R]
	Cacheable[P]
}

// Observe registers callback to run every time the cached response for
// (d, params) changes, delivering the current cached value immediately
// (subject to ReturnCachedDataIfExpired) and scheduling a refresh when the
// cached value is missing, expired, or being re-observed under a shorter
// cache policy than the one that produced it.
//
// existing is the token from a prior Observe call against the same target,
// or nil for a first-time registration. Passing the token back lets
// Observe detect a re-observation of the same fingerprint and skip
// creating a duplicate registration; observing a different fingerprint
// cancels the old one first. The returned token must eventually be
// cancelled (directly, or implicitly once target is collected).
func Observe[P any, R any](m *Manager, target observer.WeakRef, d CacheableDescriptor[P, R], params P, existing *observer.Token, callback func(R)) *observer.Token {
	fp := fingerprintFor[P, R](d, params)

	if existing != nil && !existing.Cancelled() && existing.FP() == fp {
		refreshIfStale(m, d, params, fp)
		return existing
	}
	if existing != nil {
		existing.Cancel()
	}

	token := m.observers.Add(fp, target, func(bytes []byte) {
		value, err := d.Decode(bytes)
		if err != nil {
			m.cache.Remove(fp)
			refreshIfStale(m, d, params, fp)
			return
		}
		callback(value)
	})

	if data, ok := m.cache.Get(fp); ok {
		if !m.cache.IsExpired(fp) || d.ReturnCachedDataIfExpired() {
			if value, err := d.Decode(data); err == nil {
				callback(value)
			} else {
				m.cache.Remove(fp)
			}
		}
	}

	refreshIfStale(m, d, params, fp)
	return token
}

// refreshIfStale schedules a network refresh when the cache has nothing
// for fp, what it has is expired, or the descriptor's current cache
// policy would produce a strictly shorter deadline than the one already
// stored (the "shorter policy wins" rule: a caller asking for fresher data
// than what's cached forces a refresh even if the stored entry is still
// technically fresh).
func refreshIfStale[P any, R any](m *Manager, d CacheableDescriptor[P, R], params P, fp fingerprint.FP) {
	now := time.Now()
	newDeadline := d.CachePolicy(params).Deadline(now)

	storedDeadline, known := m.cache.Expiry(fp)
	stale := !known || m.cache.IsExpired(fp) || expiry.ShorterWins(newDeadline, storedDeadline, now)
	if !stale {
		return
	}

	enqueueTask[P, R](m, d, params, fp, nil)
}
