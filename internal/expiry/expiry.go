// Package expiry translates a CachePolicy into a concrete deadline and
// answers expiry comparisons for cache entries.
package expiry

import (
	"fmt"
	"time"
)

// Kind discriminates the three CachePolicy variants.
type Kind int

const (
	// ExpireImmediately marks an entry expired the instant it is written,
	// though it remains readable until overwritten or removed.
	ExpireImmediately Kind = iota
	// Timed expires Seconds after it is written.
	Timed
	// Forever never expires.
	Forever
)

// Policy is a tagged cache expiry policy. Construct one with
// NewExpireImmediately, NewTimed, or NewForever rather than a literal, since
// Timed carries a validated Seconds field.
type Policy struct {
	kind    Kind
	seconds int
}

// NewExpireImmediately returns the ExpireImmediately policy.
func NewExpireImmediately() Policy {
	return Policy{kind: ExpireImmediately}
}

// NewTimed returns a Timed policy expiring seconds after it is written.
// It panics if seconds < 1, mirroring the "Timed{0} is rejected at
// construction" rule: callers that accept an untrusted duration should
// validate it themselves before calling NewTimed.
func NewTimed(seconds int) Policy {
	if seconds < 1 {
		panic(fmt.Sprintf("expiry: Timed policy requires seconds >= 1, got %d", seconds))
	}
	return Policy{kind: Timed, seconds: seconds}
}

// NewForever returns the Forever policy.
func NewForever() Policy {
	return Policy{kind: Forever}
}

// Kind reports which variant this policy is.
func (p Policy) Kind() Kind {
	return p.kind
}

// Seconds returns the Timed duration in seconds; it is meaningless for
// other kinds.
func (p Policy) Seconds() int {
	return p.seconds
}

// Deadline computes the instant at which an entry written now under this
// policy stops being fresh. A zero time.Time return means "never".
func (p Policy) Deadline(now time.Time) time.Time {
	switch p.kind {
	case ExpireImmediately:
		return now
	case Timed:
		return now.Add(time.Duration(p.seconds) * time.Second)
	case Forever:
		return time.Time{}
	default:
		return now
	}
}

// IsExpired reports whether deadline has passed as of now. A zero deadline
// means "never expires".
func IsExpired(deadline, now time.Time) bool {
	if deadline.IsZero() {
		return false
	}
	return !deadline.After(now)
}

// ShorterWins reports whether a new policy's deadline is strictly earlier
// than an entry's stored deadline, in which case the stored entry must be
// treated as expired even if it is nominally still fresh: a caller asking
// for a shorter freshness window than what is cached forces a refresh.
func ShorterWins(newDeadline, storedDeadline, now time.Time) bool {
	if newDeadline.IsZero() {
		return false
	}
	if storedDeadline.IsZero() {
		return true // stored Forever: any finite deadline is earlier than "never"
	}
	return newDeadline.Before(storedDeadline)
}
