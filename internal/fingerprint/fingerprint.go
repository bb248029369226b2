// Package fingerprint computes the stable identifier used as the primary
// key across the cache, the observer registry, and the in-flight task set.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/marmos91/reqkit/internal/logger"
)

// FP is an opaque, comparable identifier for a (method, URL, parameters)
// triple. Two FPs are equal iff their underlying byte strings are equal.
type FP string

// String renders the FP as a human-readable value: the URL followed by its
// hex digest, so logs remain greppable without decoding anything.
func (fp FP) String() string {
	return string(fp)
}

// Compute derives a fingerprint from a method, an absolute URL string, and
// a parameters value. params is marshaled to canonical (sorted-key) JSON
// before hashing; nil params marshal to JSON null, so they hash
// differently from an empty object.
//
// Compute never returns an error: if params cannot be marshaled to JSON, it
// falls back to a 64-bit FNV-1a structural hash of a best-effort textual
// rendering so fingerprint generation never aborts a caller's request path.
// A warning is logged when the fallback is taken.
func Compute(method, url string, params any) FP {
	canon, err := canonicalJSON(params)
	if err != nil {
		logger.Warn("fingerprint: falling back to structural hash",
			logger.Method(method), logger.URL(url), logger.Err(err))
		return structuralFallback(method, url, params)
	}

	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write(canon)

	digest := hex.EncodeToString(h.Sum(nil))
	return FP(url + "#" + digest)
}

// canonicalJSON produces deterministic JSON bytes for params: map keys are
// sorted, and encoding/json already serializes struct fields in declaration
// order, so two calls with equal params always yield equal bytes.
func canonicalJSON(params any) ([]byte, error) {
	if params == nil {
		return []byte("null"), nil
	}

	normalized, err := normalize(params)
	if err != nil {
		return nil, err
	}

	return json.Marshal(normalized)
}

// normalize round-trips params through JSON so that map[string]any values
// nested inside it are marshaled with sorted keys by the standard encoder,
// which already sorts map keys lexically.
func normalize(params any) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// structuralFallback builds a 64-bit FNV-1a hash over a best-effort
// flattening of params, used only when canonical JSON encoding fails
// (e.g. params contains a channel, func, or cyclic structure).
func structuralFallback(method, url string, params any) FP {
	h := fnv.New64a()
	_, _ = h.Write([]byte(method))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(url))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(structuralRepr(params)))

	return FP(fmt.Sprintf("%s#fnv1a64-%016x", url, h.Sum64()))
}

// structuralRepr renders params deterministically without relying on JSON,
// used only by structuralFallback. Map keys are sorted so the fallback
// hash remains a pure function of its inputs.
func structuralRepr(params any) string {
	switch v := params.(type) {
	case nil:
		return "nil"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		repr := "{"
		for _, k := range keys {
			repr += k + "=" + structuralRepr(v[k]) + ";"
		}
		return repr + "}"
	default:
		return fmt.Sprintf("%#v", v)
	}
}
