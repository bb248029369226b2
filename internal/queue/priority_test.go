package queue

import (
	"context"
	"testing"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
)

type noopRunnable struct {
	id fingerprint.FP
}

func (r *noopRunnable) ID() fingerprint.FP               { return r.id }
func (r *noopRunnable) Queue() task.QueueDef              { return task.QueueDef{Name: "default"} }
func (r *noopRunnable) PreProcess(context.Context) error  { return nil }
func (r *noopRunnable) Process(context.Context) error     { return nil }

func newOp(id string, p task.Priority) *task.Op {
	return task.NewOp(&noopRunnable{id: fingerprint.FP(id)}, p)
}

func TestPriorityQueue_FIFOWithinPriority(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("a", task.Normal))
	q.Enqueue(newOp("b", task.Normal))
	q.Enqueue(newOp("c", task.Normal))

	if id := q.Dequeue().ID(); id != "a" {
		t.Fatalf("expected a first, got %v", id)
	}
	if id := q.Dequeue().ID(); id != "b" {
		t.Fatalf("expected b second, got %v", id)
	}
	if id := q.Dequeue().ID(); id != "c" {
		t.Fatalf("expected c third, got %v", id)
	}
}

func TestPriorityQueue_HigherPriorityFirst(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("low", task.VeryLow))
	q.Enqueue(newOp("high", task.VeryHigh))
	q.Enqueue(newOp("normal", task.Normal))

	if id := q.Dequeue().ID(); id != "high" {
		t.Fatalf("expected high first, got %v", id)
	}
	if id := q.Dequeue().ID(); id != "normal" {
		t.Fatalf("expected normal second, got %v", id)
	}
	if id := q.Dequeue().ID(); id != "low" {
		t.Fatalf("expected low last, got %v", id)
	}
}

func TestPriorityQueue_UpdatePriorityReorders(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("a", task.Normal))
	q.Enqueue(newOp("b", task.Normal))

	if !q.UpdatePriority("b", task.VeryHigh) {
		t.Fatal("expected UpdatePriority to find pending op b")
	}

	if id := q.Dequeue().ID(); id != "b" {
		t.Fatalf("expected b promoted to front, got %v", id)
	}
}

func TestPriorityQueue_UpdatePriorityMissingID(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("a", task.Normal))

	if q.UpdatePriority("missing", task.VeryHigh) {
		t.Fatal("expected UpdatePriority to report not found")
	}
}

func TestPriorityQueue_Remove(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("a", task.Normal))
	q.Enqueue(newOp("b", task.Normal))

	if !q.Remove("a") {
		t.Fatal("expected Remove to find a")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", q.Len())
	}
	if id := q.Dequeue().ID(); id != "b" {
		t.Fatalf("expected b to remain, got %v", id)
	}
}

func TestPriorityQueue_PeekDoesNotRemove(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(newOp("a", task.Normal))

	if id := q.Peek().ID(); id != "a" {
		t.Fatalf("expected peek to return a, got %v", id)
	}
	if q.Len() != 1 {
		t.Fatal("expected peek not to remove the entry")
	}
}

func TestPriorityQueue_DequeueEmpty(t *testing.T) {
	q := NewPriorityQueue()
	if q.Dequeue() != nil {
		t.Fatal("expected nil dequeue on empty queue")
	}
}

func TestPriorityQueue_CompactsAfterManyDequeues(t *testing.T) {
	q := NewPriorityQueue()
	const n = 200
	for i := 0; i < n; i++ {
		q.Enqueue(newOp(string(rune('a'+i%26))+string(rune(i)), task.Normal))
	}
	for i := 0; i < n-1; i++ {
		q.Dequeue()
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining after draining, got %d", q.Len())
	}
}
