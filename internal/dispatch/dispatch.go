// Package dispatch provides the serial-dispatcher primitive used to confine
// a mutable domain (a cache's change events, an observer registry's map, a
// named queue's admission bookkeeping) to exactly one goroutine: callers
// submit closures, which run one at a time and in submission order, on a
// single drain goroutine.
package dispatch

import (
	"context"
	"time"

	"github.com/gammazero/channelqueue"
)

// Serial is an unbounded, channel-backed FIFO of closures drained by one
// goroutine. It models the "asynchronous message-passing (enqueue-a-
// closure)" rule that keeps each serial domain confined to a single
// executor: submitters never block on the domain's internal state, and the
// domain's state is only ever touched from inside a submitted closure.
type Serial struct {
	queue *channelqueue.ChannelQueue[func()]
	done  chan struct{}
}

// NewSerial starts a drain goroutine and returns the dispatcher that feeds
// it. The queue is unbounded: Submit never blocks the caller.
func NewSerial() *Serial {
	s := &Serial{
		queue: channelqueue.New[func()](-1),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *Serial) drain() {
	defer close(s.done)
	for fn := range s.queue.Out() {
		fn()
	}
}

// Submit enqueues fn to run on the drain goroutine. Submissions are
// executed strictly in the order they are submitted.
func (s *Serial) Submit(fn func()) {
	s.queue.In() <- fn
}

// SubmitAndWait enqueues fn and blocks until it has run.
func (s *Serial) SubmitAndWait(fn func()) {
	done := make(chan struct{})
	s.Submit(func() {
		fn()
		close(done)
	})
	<-done
}

// Close stops accepting new work and waits (up to timeout) for the drain
// goroutine to finish everything already queued. It returns false if the
// timeout elapsed before the queue fully drained.
func (s *Serial) Close(timeout time.Duration) bool {
	close(s.queue.In())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Main is the process-wide dispatcher on which user-visible callbacks run
// (the "main (UI) dispatcher" referenced throughout the scheduling model).
// It is a Serial like any other; a process with a real UI thread replaces
// this with one bound to that thread at startup.
var Main = NewSerial()
