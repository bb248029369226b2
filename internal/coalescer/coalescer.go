// Package coalescer implements request coalescing: merging a newly
// enqueued task's callbacks into an already in-flight task of the same
// fingerprint instead of issuing a redundant execution.
package coalescer

import (
	"errors"

	"github.com/marmos91/reqkit/internal/logger"
	"github.com/marmos91/reqkit/internal/task"
)

// ErrIncompatible is returned by Mergeable.MergeInto when the target
// runnable is not a compatible concrete type, per the MergeIncompatible
// error kind.
var ErrIncompatible = errors.New("coalescer: merge target is an incompatible descriptor type")

// Mergeable is implemented by task runnables that support being coalesced
// with another in-flight instance of the same logical request: their
// pending callbacks and lifecycle listeners are appended onto the
// existing runnable instead of running again.
type Mergeable interface {
	MergeInto(existing task.Runnable) error
}

// MatchCandidate lets a runnable override the default merge-candidate
// rule (plain fingerprint equality) evaluated by TryMerge, letting the
// originating descriptor decide whether a live op is actually a match.
type MatchCandidate interface {
	ShouldBeMerged(other *task.Op) bool
}

// matchesCandidate reports whether existing is the merge candidate for
// newOp: existing's own ShouldBeMerged override if it implements
// MatchCandidate, otherwise plain ID equality.
func matchesCandidate(existing, newOp *task.Op) bool {
	if m, ok := existing.Runnable().(MatchCandidate); ok {
		return m.ShouldBeMerged(newOp)
	}
	return existing.ID() == newOp.ID()
}

// ShouldMerge decides whether newOp is eligible for coalescing at all,
// evaluated once per enqueue (the descriptor's MergePolicy).
type ShouldMerge func(newOp *task.Op) bool

// TryMerge searches candidates, in order, for the first live (non-
// finished, non-cancelled) op that matches newOp — by default, plain ID
// equality, or the candidate's own ShouldBeMerged override when its
// runnable implements MatchCandidate. If found and newOp's runnable is
// Mergeable, its callbacks are appended onto the existing op's runnable
// and the existing op's priority is promoted one step. It reports
// whether the merge happened; on true, the caller must drop newOp
// without admitting it.
//
// If MergeInto returns ErrIncompatible (or any other error), the merge is
// abandoned, the error is logged, and newOp is admitted normally.
func TryMerge(newOp *task.Op, candidates []*task.Op, shouldMerge ShouldMerge) bool {
	if shouldMerge != nil && !shouldMerge(newOp) {
		return false
	}

	mergeable, ok := newOp.Runnable().(Mergeable)
	if !ok {
		return false
	}

	for _, existing := range candidates {
		if existing.IsFinished() {
			continue
		}
		if !matchesCandidate(existing, newOp) {
			continue
		}

		if err := mergeable.MergeInto(existing.Runnable()); err != nil {
			logger.Warn("coalescer: merge failed, admitting task independently",
				logger.Fingerprint(string(newOp.ID())), logger.Err(err))
			return false
		}

		existing.SetPriority(existing.Priority().Promote())
		return true
	}

	return false
}
