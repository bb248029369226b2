// Package reqkit is a declarative client-side networking core: request
// coalescing, a two-tier response cache, and priority-aware task
// scheduling sit behind three entry points — Request, RequestAsync, and
// Observe — each parameterized by a typed request Descriptor.
//
// Application code declares a Descriptor[P, R] describing one request
// shape (method, URL composition, headers, decoder, optional cache
// policy) and calls the free functions in this package with a *Manager
// obtained from New. The manager turns a stream of declarative
// invocations into a small number of actual network operations:
// identical in-flight requests are merged, cache-fresh reads never hit
// the network, and completed responses fan out to every registered
// observer.
package reqkit
