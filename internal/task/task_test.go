package task

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/reqkit/internal/fingerprint"
)

type fakeRunnable struct {
	id            fingerprint.FP
	queue         QueueDef
	preErr        error
	processErr    error
	processCalled bool
}

func (r *fakeRunnable) ID() fingerprint.FP               { return r.id }
func (r *fakeRunnable) Queue() QueueDef                  { return r.queue }
func (r *fakeRunnable) PreProcess(context.Context) error { return r.preErr }
func (r *fakeRunnable) Process(context.Context) error {
	r.processCalled = true
	return r.processErr
}

func TestOp_PendingState(t *testing.T) {
	op := NewOp(&fakeRunnable{id: "fp1"}, Normal)

	if op.IsExecuting() || op.IsFinished() {
		t.Fatal("expected both isExecuting and isFinished false in Pending")
	}
	if op.State() != StatePending {
		t.Fatalf("expected Pending, got %v", op.State())
	}
}

func TestOp_StartTransitionsToFinished(t *testing.T) {
	op := NewOp(&fakeRunnable{id: "fp1"}, Normal)

	err := op.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !op.IsFinished() || op.IsExecuting() {
		t.Fatalf("expected Finished state, got %v", op.State())
	}
}

func TestOp_StartTwiceFails(t *testing.T) {
	op := NewOp(&fakeRunnable{id: "fp1"}, Normal)

	_ = op.Start(context.Background())
	if err := op.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestOp_PreProcessFailureSkipsProcess(t *testing.T) {
	r := &fakeRunnable{id: "fp1", preErr: errors.New("boom")}
	op := NewOp(r, Normal)

	err := op.Start(context.Background())
	if err == nil {
		t.Fatal("expected PreProcess error to propagate")
	}
	if r.processCalled {
		t.Fatal("Process must not run after PreProcess failure")
	}
	if !op.IsFinished() {
		t.Fatal("expected Finished even on failure")
	}
}

func TestOp_CancelBeforeStart(t *testing.T) {
	op := NewOp(&fakeRunnable{id: "fp1"}, Normal)

	if !op.Cancel() {
		t.Fatal("expected Cancel to succeed from Pending")
	}
	if op.State() != StateCancelled {
		t.Fatalf("expected Cancelled, got %v", op.State())
	}

	// Starting a cancelled op must fail.
	if err := op.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted on cancelled op, got %v", err)
	}
}

func TestOp_CancelAfterStartIsNoop(t *testing.T) {
	op := NewOp(&fakeRunnable{id: "fp1"}, Normal)
	_ = op.Start(context.Background())

	if op.Cancel() {
		t.Fatal("expected Cancel to be a no-op once the op has run")
	}
	if op.State() != StateFinished {
		t.Fatalf("expected Finished to remain, got %v", op.State())
	}
}

func TestPriority_PromoteSteps(t *testing.T) {
	cases := []struct {
		in, want Priority
	}{
		{VeryLow, Low},
		{Low, Normal},
		{Normal, High},
		{High, VeryHigh},
		{VeryHigh, VeryHigh},
	}

	for _, c := range cases {
		if got := c.in.Promote(); got != c.want {
			t.Errorf("Promote(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestQueueDef_Cap(t *testing.T) {
	cases := []struct {
		def  QueueDef
		def0 int
		want int
	}{
		{QueueDef{Concurrency: ConcurrencySerial}, 4, 1},
		{QueueDef{Concurrency: ConcurrencyLimit, Limit: 7}, 4, 7},
		{QueueDef{Concurrency: ConcurrencyLimit, Limit: 0}, 4, 4},
		{QueueDef{Concurrency: ConcurrencyDefault}, 4, 4},
	}

	for _, c := range cases {
		if got := c.def.Cap(c.def0); got != c.want {
			t.Errorf("Cap() = %d, want %d for %+v", got, c.want, c.def)
		}
	}
}
