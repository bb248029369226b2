package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
)

// Manager multiplexes tasks across Named Queues, creating each queue
// lazily on first use and keyed by its QueueDef.Name. A short mutex
// guards the queue-creation map only; each NamedQueue serializes its own
// admission state independently.
type Manager struct {
	mu                 sync.Mutex
	queues             map[string]*NamedQueue
	defaultConcurrency int
}

// NewManager constructs an empty Manager. defaultConcurrency is used to
// resolve the admission cap of any QueueDef whose Concurrency is
// ConcurrencyDefault.
func NewManager(defaultConcurrency int) *Manager {
	return &Manager{
		queues:             make(map[string]*NamedQueue),
		defaultConcurrency: defaultConcurrency,
	}
}

// queueFor returns the Named Queue for def, creating it if this is the
// first task routed to that name.
func (m *Manager) queueFor(def task.QueueDef) *NamedQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[def.Name]
	if !ok {
		q = NewNamedQueue(def, m.defaultConcurrency)
		m.queues[def.Name] = q
	}
	return q
}

// Enqueue routes op to the Named Queue declared by its runnable.
func (m *Manager) Enqueue(op *task.Op) {
	m.queueFor(op.Queue()).Enqueue(op)
}

// SetPriority broadcasts a priority change to every queue, since the
// caller (an Observer Registry demotion, or an explicit API call) does
// not necessarily know which queue currently holds the op. It reports
// whether any queue found a matching op.
func (m *Manager) SetPriority(id fingerprint.FP, p task.Priority) bool {
	m.mu.Lock()
	queues := make([]*NamedQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	found := false
	for _, q := range queues {
		if q.SetPriority(id, p) {
			found = true
		}
	}
	return found
}

// Priority reports the current priority of the op with the given id,
// checking every queue since the caller doesn't know which one holds it.
func (m *Manager) Priority(id fingerprint.FP) (task.Priority, bool) {
	m.mu.Lock()
	queues := make([]*NamedQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	for _, q := range queues {
		if p, ok := q.Priority(id); ok {
			return p, true
		}
	}
	return 0, false
}

// Cancel broadcasts a cancellation to every queue, reporting whether any
// queue found and cancelled a matching pending op.
func (m *Manager) Cancel(id fingerprint.FP) bool {
	m.mu.Lock()
	queues := make([]*NamedQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	found := false
	for _, q := range queues {
		if q.Cancel(id) {
			found = true
		}
	}
	return found
}

// QueueNames reports the names of every queue created so far, mainly for
// diagnostics and metrics export.
func (m *Manager) QueueNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.queues))
	for name := range m.queues {
		names = append(names, name)
	}
	return names
}

// Stats reports a point-in-time snapshot of every queue created so far,
// keyed by QueueDef.Name.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	queues := make(map[string]*NamedQueue, len(m.queues))
	for name, q := range m.queues {
		queues[name] = q
	}
	m.mu.Unlock()

	stats := make(map[string]Stats, len(queues))
	for name, q := range queues {
		stats[name] = q.Stats()
	}
	return stats
}

// Close drains every queue's dispatcher, waiting up to timeout for each.
// A queue that fails to drain in time contributes one error to the
// returned aggregate rather than aborting the rest of the shutdown.
func (m *Manager) Close(timeout time.Duration) error {
	m.mu.Lock()
	queues := make(map[string]*NamedQueue, len(m.queues))
	for name, q := range m.queues {
		queues[name] = q
	}
	m.mu.Unlock()

	var result error
	for name, q := range queues {
		if !q.dispatcher.Close(timeout) {
			result = multierror.Append(result, fmt.Errorf("queue %q: did not drain within %s", name, timeout))
		}
	}
	return result
}
