package reqkit

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marmos91/reqkit/internal/expiry"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/pkg/network"
)

// descriptorAdapter type-erases a Descriptor[P, R] bound to one params
// value into the network.Descriptor the Task drives. decoded stores the
// last value Decode produced, since network.Task only threads the return
// value through as any and the generic caller needs it back as R. id is
// set once the request's fingerprint is known (fingerprintFor's own
// adapter is built before that, and never needs it).
type descriptorAdapter[P any, R any] struct {
	descriptor Descriptor[P, R]
	params     P
	decoded    R
	id         fingerprint.FP
}

func (a *descriptorAdapter[P, R]) Method() network.Method {
	return a.descriptor.Method()
}

func (a *descriptorAdapter[P, R]) ComposeURL() (string, error) {
	scheme := a.descriptor.Scheme()
	if scheme == "" {
		scheme = "https"
	}
	host := a.descriptor.Host()
	if host == "" {
		return "", fmt.Errorf("reqkit: descriptor returned an empty host")
	}

	path, err := a.descriptor.Path(a.params)
	if err != nil {
		return "", err
	}

	u := &url.URL{Scheme: scheme, Host: host, Path: path}
	if port, ok := a.descriptor.Port(); ok {
		u.Host = host + ":" + strconv.Itoa(port)
	}

	if q := a.descriptor.AsQuery(a.params); len(q) > 0 {
		values := url.Values{}
		for k, v := range q {
			values.Set(k, v)
		}
		u.RawQuery = values.Encode()
	}

	return u.String(), nil
}

func (a *descriptorAdapter[P, R]) Headers() map[string]string {
	return a.descriptor.Headers(a.params)
}

func (a *descriptorAdapter[P, R]) Body() ([]byte, error) {
	return a.descriptor.AsBody(a.params)
}

func (a *descriptorAdapter[P, R]) Handle(resp *http.Response, data []byte) error {
	return a.descriptor.Handle(resp, data)
}

func (a *descriptorAdapter[P, R]) Decode(data []byte) (any, error) {
	value, err := a.descriptor.Decode(data)
	if err != nil {
		return nil, err
	}
	a.decoded = value
	return value, nil
}

func (a *descriptorAdapter[P, R]) CachePolicy() (expiry.Policy, bool) {
	cacheable, ok := any(a.descriptor).(Cacheable[P])
	if !ok {
		return expiry.Policy{}, false
	}
	return cacheable.CachePolicy(a.params), true
}

func (a *descriptorAdapter[P, R]) Queue() task.QueueDef {
	return a.descriptor.Queue()
}

// ShouldBeMerged implements network.MatchCandidate: it delegates to the
// originating descriptor's own MatchCandidate[P] override when present,
// otherwise falls back to plain fingerprint equality. other must be the
// same concrete adapter type for a descriptor-level override to apply;
// an adapter for a different (P, R) pair is compared by fingerprint only.
func (a *descriptorAdapter[P, R]) ShouldBeMerged(otherID fingerprint.FP, other network.Descriptor) bool {
	if matcher, ok := any(a.descriptor).(MatchCandidate[P]); ok {
		if peer, ok := other.(*descriptorAdapter[P, R]); ok {
			return matcher.ShouldBeMerged(peer.params)
		}
	}
	return a.id == otherID
}

// shouldMergeFor evaluates the descriptor's MergePolicy once, exposed to
// the Named Queue through network.Task's ShouldMerge method.
func shouldMergeFor[P any, R any](d Descriptor[P, R], params P) bool {
	return d.MergePolicy(params).evaluate()
}
