// Package network implements the concrete Task that executes one HTTP
// request, persists a successful response to the two-tier cache, and
// fans its result out to every callback merged into it.
package network

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/reqkit/internal/coalescer"
	"github.com/marmos91/reqkit/internal/delegate"
	"github.com/marmos91/reqkit/internal/dispatch"
	"github.com/marmos91/reqkit/internal/expiry"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/logger"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/internal/telemetry"
	"github.com/marmos91/reqkit/pkg/cache"
)

// Method is an HTTP method, transmitted verbatim.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodTrace   Method = "TRACE"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodPatch   Method = "PATCH"
)

// Descriptor is the type-erased contract a declarative request
// descriptor must satisfy for the Task to drive it. Generic callers
// wrap their typed descriptor in an adapter implementing this interface
// (see the Request[...] free function in package reqkit).
type Descriptor interface {
	Method() Method
	ComposeURL() (string, error)
	Headers() map[string]string
	Body() ([]byte, error)
	Handle(resp *http.Response, data []byte) error
	Decode(data []byte) (any, error)
	CachePolicy() (expiry.Policy, bool)
	Queue() task.QueueDef
}

// MatchCandidate lets a Descriptor override the coalescer's default
// merge-candidate rule of plain fingerprint equality. A Descriptor
// implementing this is asked directly whether otherID/other should be
// treated as a match, in place of the id == otherID fallback.
type MatchCandidate interface {
	ShouldBeMerged(otherID fingerprint.FP, other Descriptor) bool
}

// ResultCallback fulfils an awaiting caller with the decoded value or an
// error, mirroring the Ok(value)/Err(e) contract from the request(...)
// async entry point.
type ResultCallback func(value any, err *Error)

// DataCallback receives only the decoded value, used by observe(...).
type DataCallback func(value any)

// Task is the concrete Runnable executing one HTTP request.
type Task struct {
	id         fingerprint.FP
	descriptor Descriptor
	client     *http.Client
	timeout    time.Duration
	cacheStore *cache.Cache
	main       *dispatch.Serial
	Listeners  *delegate.Delegate[task.LifecycleListener]

	mu              sync.Mutex
	resultCallbacks []ResultCallback
	dataCallbacks   []DataCallback

	// mergeable reflects the descriptor's MergePolicy evaluated once at
	// construction time (Custom predicates see the originating params,
	// which the Task itself no longer has access to).
	mergeable bool
}

const defaultRequestTimeout = 100 * time.Second

// New constructs a Task for one HTTP execution. cacheStore and main may
// be nil (no persistence / synchronous dispatch, useful in tests);
// in production both are always provided by the orchestrator. The task
// is mergeable by default, matching the MergePolicy=Always default;
// callers needing Never/Custom semantics call SetMergeable explicitly.
func New(id fingerprint.FP, descriptor Descriptor, client *http.Client, timeout time.Duration, cacheStore *cache.Cache, main *dispatch.Serial) *Task {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Task{
		id:         id,
		descriptor: descriptor,
		client:     client,
		timeout:    timeout,
		cacheStore: cacheStore,
		mergeable:  true,
		main:       main,
		Listeners:  delegate.New[task.LifecycleListener](),
	}
}

// ID implements task.Runnable.
func (t *Task) ID() fingerprint.FP { return t.id }

// Queue implements task.Runnable.
func (t *Task) Queue() task.QueueDef { return t.descriptor.Queue() }

// AddResultCallback registers a callback fulfilled with this task's
// outcome once it completes. Safe to call before the task starts.
func (t *Task) AddResultCallback(cb ResultCallback) {
	t.mu.Lock()
	t.resultCallbacks = append(t.resultCallbacks, cb)
	t.mu.Unlock()
}

// AddDataCallback registers a callback invoked with the decoded value on
// success only.
func (t *Task) AddDataCallback(cb DataCallback) {
	t.mu.Lock()
	t.dataCallbacks = append(t.dataCallbacks, cb)
	t.mu.Unlock()
}

// PreProcess notifies listeners that the request has started, on the
// main dispatcher, before any network I/O begins.
func (t *Task) PreProcess(ctx context.Context) error {
	t.dispatchMain(func() {
		t.Listeners.Invoke(func(l *task.LifecycleListener) { (*l).RequestStarted(t.id) })
	})
	return nil
}

// Process executes the HTTP request and fans the outcome out to every
// merged callback and listener.
func (t *Task) Process(ctx context.Context) error {
	value, err := t.execute(ctx)
	if err != nil {
		t.fail(err)
		return err
	}
	t.succeed(value)
	return nil
}

func (t *Task) execute(ctx context.Context) (any, *Error) {
	ctx, span := telemetry.StartSpan(ctx, "network.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("reqkit.fingerprint", string(t.id)),
		attribute.String("reqkit.method", string(t.descriptor.Method())),
	)

	value, nerr := t.doExecute(ctx)
	if nerr != nil {
		span.SetStatus(codes.Error, nerr.Error())
		span.SetAttributes(attribute.String("reqkit.error_kind", nerr.Kind.String()))
	}
	return value, nerr
}

func (t *Task) doExecute(ctx context.Context) (any, *Error) {
	url, err := t.descriptor.ComposeURL()
	if err != nil {
		return nil, Wrap(InvalidURL, err)
	}

	var bodyReader io.Reader
	body, err := t.descriptor.Body()
	if err != nil {
		return nil, Wrap(InvalidURL, err)
	}
	if body != nil {
		bodyReader = strings.NewReader(string(body))
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, string(t.descriptor.Method()), url, bodyReader)
	if err != nil {
		return nil, Wrap(InvalidURL, err)
	}
	for k, v := range t.descriptor.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, Wrap(TransportError, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(TransportError, err)
	}

	if err := t.descriptor.Handle(resp, data); err != nil {
		return nil, Wrap(HandledError, err)
	}

	value, decErr := t.descriptor.Decode(data)
	if decErr != nil {
		return nil, Wrap(DecodeError, decErr)
	}

	if policy, ok := t.descriptor.CachePolicy(); ok && t.cacheStore != nil {
		t.cacheStore.Put(t.id, data, policy)
	}

	return value, nil
}

func (t *Task) succeed(value any) {
	t.dispatchMain(func() {
		t.mu.Lock()
		resultCallbacks := append([]ResultCallback{}, t.resultCallbacks...)
		dataCallbacks := append([]DataCallback{}, t.dataCallbacks...)
		t.mu.Unlock()

		for _, cb := range resultCallbacks {
			cb(value, nil)
		}
		t.Listeners.Invoke(func(l *task.LifecycleListener) { (*l).RequestCompleted(t.id) })
		for _, cb := range dataCallbacks {
			cb(value)
		}
	})
}

func (t *Task) fail(err *Error) {
	t.dispatchMain(func() {
		t.mu.Lock()
		resultCallbacks := append([]ResultCallback{}, t.resultCallbacks...)
		t.mu.Unlock()

		for _, cb := range resultCallbacks {
			cb(nil, err.Clone())
		}
		t.Listeners.Invoke(func(l *task.LifecycleListener) { (*l).RequestFailed(t.id, err.Clone()) })
	})

	logger.Warn("network: task failed", logger.Fingerprint(string(t.id)), logger.ErrorKind(err.Kind.String()), logger.Err(err))
}

// dispatchMain runs fn on the main dispatcher if one is configured,
// otherwise runs it inline (tests, and any caller with no UI thread).
func (t *Task) dispatchMain(fn func()) {
	if t.main == nil {
		fn()
		return
	}
	t.main.SubmitAndWait(fn)
}

// SetMergeable overrides the task's MergePolicy evaluation result.
func (t *Task) SetMergeable(v bool) { t.mergeable = v }

// ShouldMerge implements the Named Queue's merge-gate interface.
func (t *Task) ShouldMerge() bool { return t.mergeable }

// ShouldBeMerged implements coalescer.MatchCandidate: the default
// candidate rule is plain fingerprint equality, but a descriptor
// implementing network.MatchCandidate is consulted first so it can
// admit (or reject) a candidate on its own terms.
func (t *Task) ShouldBeMerged(other *task.Op) bool {
	o, ok := other.Runnable().(*Task)
	if !ok {
		return t.id == other.ID()
	}
	if m, ok := t.descriptor.(MatchCandidate); ok {
		return m.ShouldBeMerged(o.id, o.descriptor)
	}
	return t.id == o.id
}

// MergeInto implements coalescer.Mergeable: this task's callbacks and
// listeners are appended onto existing. Fails if existing is not also a
// *Task (distinct descriptor types sharing one fingerprint).
func (t *Task) MergeInto(existing task.Runnable) error {
	target, ok := existing.(*Task)
	if !ok {
		return coalescer.ErrIncompatible
	}

	t.mu.Lock()
	resultCallbacks := append([]ResultCallback{}, t.resultCallbacks...)
	dataCallbacks := append([]DataCallback{}, t.dataCallbacks...)
	t.mu.Unlock()

	target.mu.Lock()
	target.resultCallbacks = append(target.resultCallbacks, resultCallbacks...)
	target.dataCallbacks = append(target.dataCallbacks, dataCallbacks...)
	target.mu.Unlock()

	target.Listeners.MergeFrom(t.Listeners)
	return nil
}
