package queue

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/marmos91/reqkit/internal/coalescer"
	"github.com/marmos91/reqkit/internal/dispatch"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/logger"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/pkg/metrics"
)

// NamedQueue admits ops from a single QueueDef, bounding how many run
// concurrently. All bookkeeping (pending set, running set, in-flight
// count) is confined to its own serial dispatcher: Enqueue and
// SetPriority never touch shared state directly, they submit a closure.
// Admission itself is gated by a weighted semaphore sized to the queue's
// concurrency cap rather than a hand-rolled counter comparison.
type NamedQueue struct {
	def        task.QueueDef
	sem        *semaphore.Weighted
	dispatcher *dispatch.Serial
	pending    *PriorityQueue
	running    map[fingerprint.FP]*task.Op
	inFlight     int
	completed    int
	failed       int
	metrics      metrics.QueueMetrics
	cacheMetrics metrics.CacheMetrics
}

// Stats is a point-in-time snapshot of a queue's admission state.
type Stats struct {
	Pending   int
	InFlight  int
	Completed int
	Failed    int
}

// NewNamedQueue constructs a NamedQueue for def, resolving its admission
// cap against defaultConcurrency (the process-wide default queue
// concurrency).
func NewNamedQueue(def task.QueueDef, defaultConcurrency int) *NamedQueue {
	return &NamedQueue{
		def:          def,
		sem:          semaphore.NewWeighted(int64(def.Cap(defaultConcurrency))),
		dispatcher:   dispatch.NewSerial(),
		pending:      NewPriorityQueue(),
		running:      make(map[fingerprint.FP]*task.Op),
		metrics:      metrics.NewQueueMetrics(),
		cacheMetrics: metrics.NewCacheMetrics(),
	}
}

// reportLocked pushes the current pending/in-flight counts to the metrics
// backend. Must only be called from within the dispatcher goroutine.
func (q *NamedQueue) reportLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.RecordPending(q.def.Name, q.pending.Len())
	q.metrics.RecordInFlight(q.def.Name, q.inFlight)
}

// mergeGate is implemented by runnables whose MergePolicy was evaluated
// once at construction (e.g. network.Task); runnables that don't
// implement it are always eligible for coalescing.
type mergeGate interface {
	ShouldMerge() bool
}

// Enqueue admits op into the queue. If a live op with the same ID is
// already pending or running, op is coalesced into it (per the
// descriptor's MergePolicy) instead of being scheduled independently.
func (q *NamedQueue) Enqueue(op *task.Op) {
	q.dispatcher.Submit(func() {
		candidates := q.liveOpsLocked()
		shouldMerge := coalescer.ShouldMerge(func(o *task.Op) bool {
			if g, ok := o.Runnable().(mergeGate); ok {
				return g.ShouldMerge()
			}
			return true
		})
		if coalescer.TryMerge(op, candidates, shouldMerge) {
			q.cacheMetrics.RecordCoalesced()
			logger.Debug("queue: coalesced task into in-flight op",
				logger.Fingerprint(string(op.ID())), logger.Queue(q.def.Name))
			return
		}

		q.pending.Enqueue(op)
		q.admitLocked()
		q.reportLocked()
	})
}

// liveOpsLocked returns every op the coalescer may attempt to merge into:
// currently running ops plus everything still pending. Must only be
// called from within the dispatcher goroutine.
func (q *NamedQueue) liveOpsLocked() []*task.Op {
	ops := make([]*task.Op, 0, len(q.running)+q.pending.Len())
	for _, op := range q.running {
		ops = append(ops, op)
	}
	ops = append(ops, q.pending.Snapshot()...)
	return ops
}

// admitLocked promotes pending ops into Running until the semaphore has no
// slots left or the pending set is empty. Must only be called from within
// the dispatcher goroutine.
func (q *NamedQueue) admitLocked() {
	for q.sem.TryAcquire(1) {
		op := q.pending.Dequeue()
		if op == nil {
			q.sem.Release(1)
			return
		}
		q.start(op)
	}
}

// start transitions op to Running on its own goroutine and reports
// completion back to the dispatcher so the next pending op can be
// admitted. The caller must hold the admission slot acquired for op.
func (q *NamedQueue) start(op *task.Op) {
	q.running[op.ID()] = op
	q.inFlight++

	go func() {
		err := op.Start(context.Background())
		if err != nil {
			logger.Warn("queue: task finished with error",
				logger.Fingerprint(string(op.ID())), logger.Queue(q.def.Name), logger.Err(err))
		}

		q.dispatcher.Submit(func() {
			delete(q.running, op.ID())
			q.inFlight--
			if err != nil {
				q.failed++
			} else {
				q.completed++
			}
			q.sem.Release(1)
			q.admitLocked()
			q.reportLocked()
		})
	}()
}

// SetPriority updates the priority of the op with the given id, whether
// it is pending (reordering it) or already running (affecting only
// future tie-breaking). It reports whether a matching op was found.
func (q *NamedQueue) SetPriority(id fingerprint.FP, p task.Priority) bool {
	found := make(chan bool, 1)
	q.dispatcher.SubmitAndWait(func() {
		if q.pending.UpdatePriority(id, p) {
			found <- true
			return
		}
		if op, ok := q.running[id]; ok {
			op.SetPriority(p)
			found <- true
			return
		}
		found <- false
	})
	return <-found
}

// Priority reports the current priority of the op with the given id,
// whether pending or running. Mainly used by tests to observe the effect
// of a demotion.
func (q *NamedQueue) Priority(id fingerprint.FP) (task.Priority, bool) {
	type result struct {
		p  task.Priority
		ok bool
	}
	out := make(chan result, 1)
	q.dispatcher.SubmitAndWait(func() {
		if p, ok := q.pending.PriorityOf(id); ok {
			out <- result{p, true}
			return
		}
		if op, ok := q.running[id]; ok {
			out <- result{op.Priority(), true}
			return
		}
		out <- result{0, false}
	})
	r := <-out
	return r.p, r.ok
}

// Cancel cancels the pending op with the given id. Running ops cannot be
// cancelled; it reports whether a pending op was found and cancelled.
func (q *NamedQueue) Cancel(id fingerprint.FP) bool {
	result := make(chan bool, 1)
	q.dispatcher.SubmitAndWait(func() {
		result <- q.pending.Remove(id)
	})
	return <-result
}

// InFlight reports the number of currently running ops.
func (q *NamedQueue) InFlight() int {
	result := make(chan int, 1)
	q.dispatcher.SubmitAndWait(func() {
		result <- q.inFlight
	})
	return <-result
}

// Pending reports the number of currently pending ops.
func (q *NamedQueue) Pending() int {
	return q.pending.Len()
}

// Stats reports a point-in-time snapshot of pending, in-flight, completed,
// and failed op counts.
func (q *NamedQueue) Stats() Stats {
	result := make(chan Stats, 1)
	q.dispatcher.SubmitAndWait(func() {
		result <- Stats{
			Pending:   q.pending.Len(),
			InFlight:  q.inFlight,
			Completed: q.completed,
			Failed:    q.failed,
		}
	})
	return <-result
}
