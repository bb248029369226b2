package coalescer

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
)

type mergeableRunnable struct {
	id         fingerprint.FP
	mergeErr   error
	mergeCount int
}

func (r *mergeableRunnable) ID() fingerprint.FP              { return r.id }
func (r *mergeableRunnable) Queue() task.QueueDef             { return task.QueueDef{Name: "default"} }
func (r *mergeableRunnable) PreProcess(context.Context) error { return nil }
func (r *mergeableRunnable) Process(context.Context) error    { return nil }
func (r *mergeableRunnable) MergeInto(existing task.Runnable) error {
	var target *mergeableRunnable
	switch e := existing.(type) {
	case *mergeableRunnable:
		target = e
	case *overridingRunnable:
		target = &e.mergeableRunnable
	default:
		return ErrIncompatible
	}
	target.mergeCount++
	return r.mergeErr
}

type plainRunnable struct {
	id fingerprint.FP
}

func (r *plainRunnable) ID() fingerprint.FP              { return r.id }
func (r *plainRunnable) Queue() task.QueueDef             { return task.QueueDef{Name: "default"} }
func (r *plainRunnable) PreProcess(context.Context) error { return nil }
func (r *plainRunnable) Process(context.Context) error    { return nil }

func TestTryMerge_MergesIntoLiveMatch(t *testing.T) {
	existingRunnable := &mergeableRunnable{id: "fp1"}
	existing := task.NewOp(existingRunnable, task.Normal)

	newOp := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)

	if !TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected merge to succeed on matching live op")
	}
	if existingRunnable.mergeCount != 1 {
		t.Fatalf("expected MergeInto called once, got %d", existingRunnable.mergeCount)
	}
	if existing.Priority() != task.High {
		t.Fatalf("expected existing op promoted to High, got %v", existing.Priority())
	}
}

func TestTryMerge_SkipsFinishedCandidates(t *testing.T) {
	existingRunnable := &mergeableRunnable{id: "fp1"}
	existing := task.NewOp(existingRunnable, task.Normal)
	_ = existing.Start(context.Background())

	newOp := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected no merge against a finished candidate")
	}
	if existingRunnable.mergeCount != 0 {
		t.Fatal("MergeInto must not be called on a finished candidate")
	}
}

func TestTryMerge_NoMatchingID(t *testing.T) {
	existing := task.NewOp(&mergeableRunnable{id: "other"}, task.Normal)
	newOp := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected no merge when no candidate ID matches")
	}
}

func TestTryMerge_NonMergeableRunnableAdmitsNormally(t *testing.T) {
	existing := task.NewOp(&plainRunnable{id: "fp1"}, task.Normal)
	newOp := task.NewOp(&plainRunnable{id: "fp1"}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected no merge when new runnable isn't Mergeable")
	}
}

func TestTryMerge_MergeErrorAdmitsNormally(t *testing.T) {
	existing := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)
	newOp := task.NewOp(&mergeableRunnable{id: "fp1", mergeErr: errors.New("boom")}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected merge failure to fall through to normal admission")
	}
	if existing.Priority() != task.Normal {
		t.Fatal("priority must not be promoted on a failed merge")
	}
}

type overridingRunnable struct {
	mergeableRunnable
	matchAny bool
}

func (r *overridingRunnable) ShouldBeMerged(other *task.Op) bool { return r.matchAny }

func TestTryMerge_MatchCandidateOverrideAdmitsMismatchedID(t *testing.T) {
	existingRunnable := &overridingRunnable{mergeableRunnable: mergeableRunnable{id: "fp1"}, matchAny: true}
	existing := task.NewOp(existingRunnable, task.Normal)

	newOp := task.NewOp(&mergeableRunnable{id: "unrelated-fp"}, task.Normal)

	if !TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected ShouldBeMerged override to admit a merge despite mismatched IDs")
	}
	if existingRunnable.mergeCount != 1 {
		t.Fatalf("expected MergeInto called once, got %d", existingRunnable.mergeCount)
	}
}

func TestTryMerge_MatchCandidateOverrideRejectsMatchingID(t *testing.T) {
	existingRunnable := &overridingRunnable{mergeableRunnable: mergeableRunnable{id: "fp1"}, matchAny: false}
	existing := task.NewOp(existingRunnable, task.Normal)

	newOp := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, nil) {
		t.Fatal("expected ShouldBeMerged override to reject the merge despite matching IDs")
	}
}

func TestTryMerge_ShouldMergeFalseSkipsSearch(t *testing.T) {
	existingRunnable := &mergeableRunnable{id: "fp1"}
	existing := task.NewOp(existingRunnable, task.Normal)
	newOp := task.NewOp(&mergeableRunnable{id: "fp1"}, task.Normal)

	if TryMerge(newOp, []*task.Op{existing}, func(*task.Op) bool { return false }) {
		t.Fatal("expected ShouldMerge=false to prevent merging")
	}
	if existingRunnable.mergeCount != 0 {
		t.Fatal("MergeInto must not be called when ShouldMerge vetoes")
	}
}
