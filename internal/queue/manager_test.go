package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
)

type namedRunnable struct {
	id        fingerprint.FP
	queueName string
}

func (r *namedRunnable) ID() fingerprint.FP              { return r.id }
func (r *namedRunnable) Queue() task.QueueDef             { return task.QueueDef{Name: r.queueName} }
func (r *namedRunnable) PreProcess(context.Context) error { return nil }
func (r *namedRunnable) Process(context.Context) error    { return nil }

func TestManager_RoutesByQueueName(t *testing.T) {
	m := NewManager(4)

	m.Enqueue(task.NewOp(&noopRunnable{id: "a"}, task.Normal))
	m.Enqueue(task.NewOp(&namedRunnable{id: "b", queueName: "other"}, task.Normal))

	if len(m.QueueNames()) != 2 {
		t.Fatalf("expected 2 distinct queues, got %v", m.QueueNames())
	}
}

func TestManager_ReusesQueueForSameName(t *testing.T) {
	m := NewManager(4)

	m.Enqueue(task.NewOp(&noopRunnable{id: "a"}, task.Normal))
	m.Enqueue(task.NewOp(&noopRunnable{id: "b"}, task.Normal))

	if len(m.QueueNames()) != 1 {
		t.Fatalf("expected 1 queue reused for identical QueueDef name, got %v", m.QueueNames())
	}
}

func TestManager_SetPriorityFindsOpAcrossQueues(t *testing.T) {
	m := NewManager(4)

	var mu sync.Mutex
	var order []fingerprint.FP
	release := make(chan struct{})

	first := &trackingRunnable{id: "first", order: &order, mu: &mu, release: release}
	m.Enqueue(task.NewOp(first, task.Normal))
	waitForCondition(t, time.Second, func() bool { return len(m.QueueNames()) == 1 })

	pending := &trackingRunnable{id: "pending", order: &order, mu: &mu, release: release}
	m.Enqueue(task.NewOp(pending, task.Normal))

	if !m.SetPriority("pending", task.VeryHigh) {
		t.Fatal("expected SetPriority to find the still-pending op")
	}

	close(release)
}

func TestManager_CancelFindsPendingOpAcrossQueues(t *testing.T) {
	m := NewManager(4)

	var mu sync.Mutex
	var order []fingerprint.FP
	release := make(chan struct{})

	first := &trackingRunnable{id: "first", order: &order, mu: &mu, release: release}
	m.Enqueue(task.NewOp(first, task.Normal))
	waitForCondition(t, time.Second, func() bool { return len(m.QueueNames()) == 1 })

	doomed := &trackingRunnable{id: "doomed", order: &order, mu: &mu, release: release}
	m.Enqueue(task.NewOp(doomed, task.Normal))

	if !m.Cancel("doomed") {
		t.Fatal("expected Cancel to find the pending op")
	}

	close(release)
}
