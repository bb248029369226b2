package reqkit

import (
	"context"
	"fmt"

	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/pkg/network"
)

// fingerprintFor derives the stable identity of one (descriptor, params)
// invocation, composing the URL once so the fingerprint reflects the
// fully-resolved request rather than just its declared shape.
func fingerprintFor[P any, R any](d Descriptor[P, R], params P) fingerprint.FP {
	adapter := &descriptorAdapter[P, R]{descriptor: d, params: params}
	url, err := adapter.ComposeURL()
	if err != nil {
		return fingerprint.Compute(string(d.Method()), "invalid:"+err.Error(), params)
	}
	return fingerprint.Compute(string(d.Method()), url, params)
}

// enqueueTask builds and schedules a network.Task for one (descriptor,
// params) invocation, wiring its result callback to resultFn.
func enqueueTask[P any, R any](m *Manager, d Descriptor[P, R], params P, fp fingerprint.FP, resultFn func(R, error)) {
	adapter := &descriptorAdapter[P, R]{descriptor: d, params: params, id: fp}
	tsk := network.New(fp, adapter, m.client, m.timeout, m.cache, m.main)
	tsk.SetMergeable(shouldMergeFor(d, params))

	if resultFn != nil {
		tsk.AddResultCallback(func(value any, nerr *network.Error) {
			if nerr != nil {
				var zero R
				resultFn(zero, nerr)
				return
			}
			v, _ := value.(R)
			resultFn(v, nil)
		})
	}

	m.queues.Enqueue(task.NewOp(tsk, task.Normal))
}

// Request declares one request: if force is false and a fresh cached
// response exists, callback is invoked synchronously from the cache
// without touching the network. Otherwise a task is scheduled (merging
// into an in-flight peer when the descriptor's MergePolicy allows it) and
// callback runs once it completes, on the manager's main dispatcher.
func Request[P any, R any](m *Manager, d Descriptor[P, R], params P, force bool, callback func(R, error)) {
	fp := fingerprintFor(d, params)

	if !force {
		if data, ok := m.cache.Get(fp); ok && !m.cache.IsExpired(fp) {
			value, err := d.Decode(data)
			if err != nil {
				// Cached bytes no longer decode: drop them and fall through
				// to a network refresh rather than surfacing a stale value.
				m.cache.Remove(fp)
			} else {
				callback(value, nil)
				return
			}
		}
	}

	enqueueTask(m, d, params, fp, callback)
}

// RequestAsync is Request expressed as a blocking call, returning once the
// task (or the cache) produces a result or ctx is cancelled.
func RequestAsync[P any, R any](ctx context.Context, m *Manager, d Descriptor[P, R], params P, force bool) (R, error) {
	type outcome struct {
		value R
		err   error
	}
	results := make(chan outcome, 1)

	Request(m, d, params, force, func(v R, err error) {
		results <- outcome{v, err}
	})

	select {
	case r := <-results:
		return r.value, r.err
	case <-ctx.Done():
		var zero R
		return zero, fmt.Errorf("reqkit: %w", ctx.Err())
	}
}
