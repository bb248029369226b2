// Package queue implements the priority-ordered pending set (C7) and the
// per-queue-definition runner (C8) that admits work from it.
package queue

import (
	"sort"
	"sync"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
)

type item struct {
	op       *task.Op
	priority task.Priority
	seq      uint64
}

// compactThresholdLen and compactThresholdRatio mirror the "compact when
// head/len > 0.25 and len > 50" rule: below that size the savings from
// compaction don't pay for the copy.
const (
	compactThresholdLen   = 50
	compactThresholdRatio = 0.25
)

// PriorityQueue is a mutable-priority, FIFO-within-priority ordered set of
// pending TaskOps. Dequeue returns the highest-priority op, breaking ties
// by insertion order. Removal from the front is amortized O(1) via a head
// index; UpdatePriority is O(n) and is expected to be rare.
type PriorityQueue struct {
	mu      sync.Mutex
	items   []item
	head    int
	nextSeq uint64
}

// NewPriorityQueue constructs an empty PriorityQueue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// less reports whether a sorts before b: higher priority first, ties
// broken by lower (earlier) sequence number.
func less(a, b item) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

// Enqueue inserts op at its current priority, keeping sort order.
func (q *PriorityQueue) Enqueue(op *task.Op) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it := item{op: op, priority: op.Priority(), seq: q.nextSeq}
	q.nextSeq++
	q.insertLocked(it)
}

// insertLocked inserts it into the live range [head, len(items)) at its
// sorted position via binary search.
func (q *PriorityQueue) insertLocked(it item) {
	live := q.items[q.head:]
	idx := sort.Search(len(live), func(i int) bool { return less(it, live[i]) })
	pos := q.head + idx

	q.items = append(q.items, item{})
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = it
}

// Dequeue removes and returns the highest-priority op, or nil if empty.
func (q *PriorityQueue) Dequeue() *task.Op {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return nil
	}
	it := q.items[q.head]
	q.items[q.head] = item{} // drop the reference so it can be GC'd
	q.head++
	q.compactLocked()
	return it.op
}

// Peek returns the highest-priority op without removing it, or nil if
// empty.
func (q *PriorityQueue) Peek() *task.Op {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return nil
	}
	return q.items[q.head].op
}

// UpdatePriority re-sorts the entry for id to reflect its new priority p,
// mutating the op's own priority field too. It reports whether a matching
// pending entry was found.
func (q *PriorityQueue) UpdatePriority(id fingerprint.FP, p task.Priority) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.head; i < len(q.items); i++ {
		if q.items[i].op.ID() != id {
			continue
		}
		it := q.items[i]
		q.items = append(q.items[:i], q.items[i+1:]...)

		it.op.SetPriority(p)
		it.priority = p
		q.insertLocked(it)
		return true
	}
	return false
}

// PriorityOf reports the current priority of the pending entry for id, if
// present.
func (q *PriorityQueue) PriorityOf(id fingerprint.FP) (task.Priority, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.head; i < len(q.items); i++ {
		if q.items[i].op.ID() == id {
			return q.items[i].priority, true
		}
	}
	return 0, false
}

// Remove drops the pending entry for id, if present, returning whether it
// was found.
func (q *PriorityQueue) Remove(id fingerprint.FP) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.head; i < len(q.items); i++ {
		if q.items[i].op.ID() == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of pending ops.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Snapshot returns the currently pending ops in dequeue order without
// removing them, for callers (the coalescer) that need to search live
// work without disturbing it.
func (q *PriorityQueue) Snapshot() []*task.Op {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := make([]*task.Op, 0, len(q.items)-q.head)
	for i := q.head; i < len(q.items); i++ {
		ops = append(ops, q.items[i].op)
	}
	return ops
}

func (q *PriorityQueue) compactLocked() {
	total := len(q.items)
	if total <= compactThresholdLen {
		return
	}
	if float64(q.head)/float64(total) <= compactThresholdRatio {
		return
	}

	remaining := make([]item, total-q.head)
	copy(remaining, q.items[q.head:])
	q.items = remaining
	q.head = 0
}
