package observer

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/reqkit/internal/fingerprint"
)

const testFP = fingerprint.FP("https://api.example.com/v1/items#deadbeef")

func TestAdd_DeliversToCallback(t *testing.T) {
	r := New()

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})

	r.Add(testFP, nil, func(bytes []byte) {
		mu.Lock()
		got = bytes
		mu.Unlock()
		close(done)
	})

	r.Deliver(testFP, []byte(`{"ok":true}`))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(got) != `{"ok":true}` {
		t.Fatalf("expected delivered bytes, got %q", got)
	}
}

func TestCancel_PreventsDelivery(t *testing.T) {
	r := New()

	called := false
	token := r.Add(testFP, nil, func([]byte) { called = true })
	token.Cancel()

	r.dispatcher.SubmitAndWait(func() {}) // ensure Add settled
	r.Deliver(testFP, []byte("x"))
	r.dispatcher.SubmitAndWait(func() {}) // ensure Deliver settled

	if called {
		t.Fatal("expected cancelled observer not to be invoked")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	r := New()
	token := r.Add(testFP, nil, func([]byte) {})

	token.Cancel()
	token.Cancel() // must not panic

	if !token.Cancelled() {
		t.Fatal("expected token to report cancelled")
	}
}

func TestDeliver_RegistrationOrder(t *testing.T) {
	r := New()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		r.Add(testFP, nil, func([]byte) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	r.Deliver(testFP, []byte("x"))
	time.Sleep(50 * time.Millisecond) // allow main dispatcher to drain

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected registration order %v, got %v", []int{0, 1, 2}, order)
		}
	}
}

func TestDeliver_EmptiesAndSignalsDemotion(t *testing.T) {
	r := New()

	demoted := make(chan fingerprint.FP, 1)
	r.OnEmptied(func(fp fingerprint.FP) { demoted <- fp })

	token := r.Add(testFP, nil, func([]byte) {})
	token.Cancel()

	r.Deliver(testFP, []byte("x"))

	select {
	case fp := <-demoted:
		if fp != testFP {
			t.Fatalf("expected demotion for %q, got %q", testFP, fp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for demotion signal")
	}
}

func TestCount(t *testing.T) {
	r := New()
	if r.Count(testFP) != 0 {
		t.Fatal("expected zero observers initially")
	}

	r.Add(testFP, nil, func([]byte) {})
	r.Add(testFP, nil, func([]byte) {})

	if r.Count(testFP) != 2 {
		t.Fatalf("expected 2 observers, got %d", r.Count(testFP))
	}
}

type fakeTarget struct{ id int }

func TestWeakRef_DeadTargetSkipsRegistration(t *testing.T) {
	r := New()

	var ref WeakRef
	func() {
		target := &fakeTarget{id: 1}
		ref = NewWeakRef(target)
	}()

	for i := 0; i < 10; i++ {
		runtime.GC()
	}

	token := r.Add(testFP, ref, func([]byte) {})
	// Either the target was already collected (token pre-cancelled) or GC
	// hasn't reclaimed it yet (token live) -- both are valid under Go's GC
	// timing, but the registry must never panic either way.
	_ = token.Cancelled()
}

func TestClear_RemovesAllObservers(t *testing.T) {
	r := New()
	r.Add(testFP, nil, func([]byte) {})
	r.Add(testFP, nil, func([]byte) {})

	r.Clear()

	if r.Count(testFP) != 0 {
		t.Fatal("expected Clear to remove all observers")
	}
}
