package reqkit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/reqkit/internal/dispatch"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/logger"
	"github.com/marmos91/reqkit/internal/queue"
	"github.com/marmos91/reqkit/internal/task"
	"github.com/marmos91/reqkit/internal/telemetry"
	"github.com/marmos91/reqkit/pkg/cache"
	"github.com/marmos91/reqkit/pkg/config"
	"github.com/marmos91/reqkit/pkg/observer"
)

// Manager is the coalescing core: one cache, one queue manager, one
// observer registry, wired together so that a cache write fans out to
// observers and an emptied observer list demotes its task's priority.
// A process constructs exactly one Manager with New and shares it across
// every descriptor it declares.
type Manager struct {
	cache     *cache.Cache
	queues    *queue.Manager
	observers *observer.Registry
	client    *http.Client
	timeout   time.Duration
	main      *dispatch.Serial

	drainTimeout    time.Duration
	shutdownTracing func(context.Context) error
}

// New opens the disk cache tier at cfg.Cache.Path, constructs the queue
// manager and observer registry, and wires the cross-component protocols:
// a successful cache write delivers to observers of that fingerprint, and
// a fingerprint whose observer list goes empty has its task demoted to
// VeryLow (it's no longer being watched, so it can wait).
func New(cfg *config.Config) (*Manager, error) {
	c, err := cache.Open(cache.Config{
		DiskPath:         cfg.Cache.Path,
		MemoryCountLimit: cfg.Cache.MemoryCountLimit,
		MemoryByteLimit:  int64(cfg.Cache.MemoryByteLimit),
		DiskByteLimit:    int64(cfg.Cache.DiskByteLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("reqkit: opening cache: %w", err)
	}

	qm := queue.NewManager(cfg.Queue.DefaultQueueConcurrency)
	reg := observer.New()

	shutdownTracing, err := telemetry.Init(context.Background(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "reqkit",
		ServiceVersion: "dev",
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		c.Close(0)
		return nil, fmt.Errorf("reqkit: initializing tracing: %w", err)
	}

	m := &Manager{
		cache:           c,
		queues:          qm,
		observers:       reg,
		client:          &http.Client{},
		timeout:         time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		main:            dispatch.Main,
		drainTimeout:    cfg.Queue.DrainTimeout,
		shutdownTracing: shutdownTracing,
	}

	// Change listeners run on the cache's own dispatcher, where a nested
	// c.Get would wait on itself; the re-read runs on a separate serial
	// dispatcher so successive writes are still forwarded in order.
	forward := dispatch.NewSerial()
	c.OnChange(func(ch cache.Change) {
		if ch.Kind != cache.ChangeAdd {
			return
		}
		forward.Submit(func() {
			data, ok := c.Get(ch.FP)
			if !ok {
				return
			}
			reg.Deliver(ch.FP, data)
		})
	})

	reg.OnEmptied(func(fp fingerprint.FP) {
		if qm.SetPriority(fp, task.VeryLow) {
			logger.Debug("reqkit: demoted unobserved task", logger.Fingerprint(string(fp)))
		}
	})

	return m, nil
}

// Stats reports a point-in-time snapshot of every named queue's pending,
// in-flight, completed, and failed op counts, keyed by queue name.
func (m *Manager) Stats() map[string]queue.Stats {
	return m.queues.Stats()
}

// HealthCheck verifies the disk cache tier is reachable, bounded by ctx.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.cache.HealthCheck(ctx)
}

// Close drains the queue manager's named queues and closes the disk cache
// tier, waiting up to the configured drain timeout for each.
func (m *Manager) Close() error {
	if err := m.queues.Close(m.drainTimeout); err != nil {
		logger.Warn("reqkit: queue drain did not complete cleanly", logger.Err(err))
	}
	if m.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.drainTimeout)
		defer cancel()
		if err := m.shutdownTracing(ctx); err != nil {
			logger.Warn("reqkit: tracing shutdown failed", logger.Err(err))
		}
	}
	return m.cache.Close(m.drainTimeout)
}
