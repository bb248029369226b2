// Package cache implements the two-tier (memory + on-disk) byte cache
// keyed by fingerprint. Reads consult memory first, then disk, promoting
// disk hits back into memory; writes go through both tiers. Every
// mutation is serialized through the cache's own dispatcher so a write's
// change event can never be observed out of order relative to a
// concurrent read or a later write of the same key.
package cache

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/marmos91/reqkit/internal/dispatch"
	"github.com/marmos91/reqkit/internal/expiry"
	"github.com/marmos91/reqkit/internal/fingerprint"
	"github.com/marmos91/reqkit/internal/logger"
	"github.com/marmos91/reqkit/pkg/metrics"
)

// ChangeKind identifies the shape of a cache mutation delivered to
// on_change subscribers.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeRemove
	ChangeRemoveAll
	ChangeRemoveExpired
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeRemoveAll:
		return "remove_all"
	case ChangeRemoveExpired:
		return "remove_expired"
	default:
		return "unknown"
	}
}

// Change describes one cache mutation. FP is the zero value for
// RemoveAll/RemoveExpired, which touch every key.
type Change struct {
	Kind ChangeKind
	FP   fingerprint.FP
}

// ChangeListener receives cache Change events on the cache's dedicated
// dispatcher. The Observer Registry is the canonical subscriber: the
// cache never invokes observer callbacks directly, it only emits Change
// events that the registry reacts to.
type ChangeListener func(Change)

// entry is what actually lives in both tiers.
type entry struct {
	fp        fingerprint.FP
	bytes     []byte
	writtenAt time.Time
	expiry    time.Time // zero value means "never"
}

func (e *entry) isExpired(now time.Time) bool {
	return expiry.IsExpired(e.expiry, now)
}

// Config sizes the two tiers. Zero-valued fields fall back to the
// defaults below (100 / 100 MiB / 100 MiB). MemoryByteLimit is the
// memory tier's byte budget; MemoryCountLimit only sizes the memory
// tier's admission counters and does not cap the number of entries.
// DiskByteLimit is recorded but the disk tier is not trimmed to it:
// disk entries leave only through Remove or RemoveExpired.
type Config struct {
	DiskPath         string
	MemoryCountLimit int64
	MemoryByteLimit  int64
	DiskByteLimit    int64
}

const (
	defaultMemoryCountLimit = 100
	defaultMemoryByteLimit  = 100 * 1024 * 1024
	defaultDiskByteLimit    = 100 * 1024 * 1024
)

// Cache is the two-tier store. All public methods are safe for
// concurrent use; internally every mutation (and every read, to uphold
// the no-stale-read-during-write invariant) is funneled through a single
// serial dispatcher.
type Cache struct {
	mem        *ristretto.Cache[string, *entry]
	disk       *badgerdb.DB
	dispatcher *dispatch.Serial
	listeners  []ChangeListener
	diskLimit  int64
	metrics    metrics.CacheMetrics
}

// Open constructs a Cache backed by an on-disk Badger instance rooted at
// cfg.DiskPath and a bounded in-memory Ristretto tier.
func Open(cfg Config) (*Cache, error) {
	countLimit := cfg.MemoryCountLimit
	if countLimit <= 0 {
		countLimit = defaultMemoryCountLimit
	}
	byteLimit := cfg.MemoryByteLimit
	if byteLimit <= 0 {
		byteLimit = defaultMemoryByteLimit
	}
	diskLimit := cfg.DiskByteLimit
	if diskLimit <= 0 {
		diskLimit = defaultDiskByteLimit
	}

	cacheMetrics := metrics.NewCacheMetrics()

	mem, err := ristretto.NewCache(&ristretto.Config[string, *entry]{
		NumCounters: countLimit * 10,
		MaxCost:     byteLimit,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*entry]) {
			cacheMetrics.RecordEviction("memory", "capacity")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to construct memory tier: %w", err)
	}

	opts := badgerdb.DefaultOptions(cfg.DiskPath).WithLogger(nil)
	disk, err := badgerdb.Open(opts)
	if err != nil {
		mem.Close()
		return nil, fmt.Errorf("cache: failed to open disk tier at %s: %w", cfg.DiskPath, err)
	}

	c := &Cache{
		mem:        mem,
		disk:       disk,
		dispatcher: dispatch.NewSerial(),
		diskLimit:  diskLimit,
		metrics:    cacheMetrics,
	}
	return c, nil
}

// Close releases both tiers. Pending change events are allowed to drain
// first (up to drainTimeout).
func (c *Cache) Close(drainTimeout time.Duration) error {
	c.dispatcher.Close(drainTimeout)
	c.mem.Close()
	return c.disk.Close()
}

// HealthCheck verifies the disk tier is reachable by opening a read-only
// transaction against it. The memory tier has no analogous failure mode
// (ristretto never blocks on an external resource), so it is not checked.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.disk == nil {
		return fmt.Errorf("cache: no disk tier configured")
	}
	return c.disk.View(func(txn *badgerdb.Txn) error {
		return nil
	})
}

// ReportSize pushes the current approximate footprint of each tier to
// the metrics backend. Intended to be called periodically (e.g. from a
// health-check ticker); it is not wired to every mutation because
// Ristretto's cost accounting and Badger's LSM size are themselves only
// eventually consistent.
func (c *Cache) ReportSize() {
	if c.metrics == nil {
		return
	}
	if m := c.mem.Metrics; m != nil {
		c.metrics.RecordMemoryBytes(int64(m.CostAdded() - m.CostEvicted()))
	}
	lsm, vlog := c.disk.Size()
	c.metrics.RecordDiskBytes(lsm + vlog)
}

// OnChange registers a listener for subsequent Change events. Listeners
// are invoked on the cache's own dispatcher, in registration order,
// before the dispatcher accepts the next mutation.
func (c *Cache) OnChange(listener ChangeListener) {
	c.dispatcher.SubmitAndWait(func() {
		c.listeners = append(c.listeners, listener)
	})
}

func (c *Cache) emitLocked(ch Change) {
	for _, l := range c.listeners {
		l(ch)
	}
}

// Get returns the raw bytes stored under fp, or (nil, false) on a miss.
// An expired entry is still returned until it is removed; callers check
// IsExpired to tell stale data apart. A disk hit is promoted into the
// memory tier.
func (c *Cache) Get(fp fingerprint.FP) ([]byte, bool) {
	var bytes []byte
	var ok bool

	c.dispatcher.SubmitAndWait(func() {
		start := time.Now()
		e, tier := c.lookupLocked(fp)
		if e == nil {
			c.metrics.ObserveGet("memory", false, time.Since(start))
			return
		}
		bytes = e.bytes
		ok = true
		c.metrics.ObserveGet(tier, true, time.Since(start))
	})
	return bytes, ok
}

// lookupLocked finds the entry for fp, preferring memory, promoting a
// disk hit into memory. Must only run on the dispatcher goroutine.
func (c *Cache) lookupLocked(fp fingerprint.FP) (*entry, string) {
	if e, found := c.mem.Get(string(fp)); found {
		return e, "memory"
	}

	e, err := c.readDiskLocked(fp)
	if err != nil {
		if err != badgerdb.ErrKeyNotFound {
			logger.Warn("cache: disk read failed", logger.Fingerprint(string(fp)), logger.Err(err))
		}
		return nil, "disk"
	}
	if e != nil {
		c.mem.Set(string(fp), e, int64(len(e.bytes)))
		c.mem.Wait()
	}
	return e, "disk"
}

func (c *Cache) readDiskLocked(fp fingerprint.FP) (*entry, error) {
	var e *entry
	err := c.disk.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(diskKey(fp))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeEntry(fp, val)
			if err != nil {
				return err
			}
			e = decoded
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, badgerdb.ErrKeyNotFound
	}
	return e, err
}

// Put stores bytes under fp with the given expiry policy. An Add event
// fires exactly once, after both tiers have been written (or the disk
// write has failed and been logged) — this is the per-key critical
// section the layering invariant depends on.
func (c *Cache) Put(fp fingerprint.FP, data []byte, policy expiry.Policy) {
	c.dispatcher.SubmitAndWait(func() {
		start := time.Now()
		now := time.Now()
		e := &entry{fp: fp, bytes: data, writtenAt: now, expiry: policy.Deadline(now)}

		c.mem.Set(string(fp), e, int64(len(data)))
		c.mem.Wait()

		if err := c.writeDiskLocked(e); err != nil {
			logger.Warn("cache: disk write failed, memory copy remains authoritative",
				logger.Fingerprint(string(fp)), logger.Err(err))
		}

		c.metrics.ObserveSet("memory", int64(len(data)), time.Since(start))
		c.emitLocked(Change{Kind: ChangeAdd, FP: fp})
	})
}

func (c *Cache) writeDiskLocked(e *entry) error {
	encoded, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return c.disk.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(diskKey(e.fp), encoded)
	})
}

// IsExpired reports whether fp is absent or its entry has passed its
// expiry deadline.
func (c *Cache) IsExpired(fp fingerprint.FP) bool {
	result := make(chan bool, 1)
	c.dispatcher.SubmitAndWait(func() {
		e, _ := c.lookupLocked(fp)
		result <- e == nil || e.isExpired(time.Now())
	})
	return <-result
}

// Expiry returns fp's deadline, or (zero, false) if no entry exists.
// A returned zero time.Time paired with true means "never expires".
func (c *Cache) Expiry(fp fingerprint.FP) (time.Time, bool) {
	var deadline time.Time
	var found bool
	c.dispatcher.SubmitAndWait(func() {
		e, _ := c.lookupLocked(fp)
		if e != nil {
			deadline = e.expiry
			found = true
		}
	})
	return deadline, found
}

// Expire forces fp's entry to be treated as expired immediately, without
// removing it: a subsequent IsExpired reports true while Get still
// returns the bytes, and Remove is what actually frees them.
func (c *Cache) Expire(fp fingerprint.FP) {
	c.dispatcher.SubmitAndWait(func() {
		if e, found := c.mem.Get(string(fp)); found {
			e.expiry = time.Now()
			c.mem.Set(string(fp), e, int64(len(e.bytes)))
		}
		if e, err := c.readDiskLocked(fp); err == nil && e != nil {
			e.expiry = time.Now()
			if err := c.writeDiskLocked(e); err != nil {
				logger.Warn("cache: failed to persist forced expiry",
					logger.Fingerprint(string(fp)), logger.Err(err))
			}
		}
	})
}

// Remove deletes fp from both tiers and emits a Remove event.
func (c *Cache) Remove(fp fingerprint.FP) {
	c.dispatcher.SubmitAndWait(func() {
		c.mem.Del(string(fp))
		if err := c.disk.Update(func(txn *badgerdb.Txn) error {
			return txn.Delete(diskKey(fp))
		}); err != nil {
			logger.Warn("cache: disk delete failed", logger.Fingerprint(string(fp)), logger.Err(err))
		}
		c.emitLocked(Change{Kind: ChangeRemove, FP: fp})
	})
}

// RemoveExpired scans the disk tier and removes every entry whose
// deadline has passed, emitting a single RemoveExpired event. Individual
// key-delete failures don't abort the sweep; they're aggregated and
// returned together once the pass completes.
func (c *Cache) RemoveExpired() error {
	var result error

	c.dispatcher.SubmitAndWait(func() {
		now := time.Now()
		var expiredKeys [][]byte
		var expiredFPs []fingerprint.FP

		_ = c.disk.View(func(txn *badgerdb.Txn) error {
			it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek(diskKeyPrefix()); it.ValidForPrefix(diskKeyPrefix()); it.Next() {
				item := it.Item()
				fp := fingerprint.FP(item.Key()[len(diskKeyPrefix()):])
				_ = item.Value(func(val []byte) error {
					e, err := decodeEntry(fp, val)
					if err != nil {
						return nil // tolerate unreadable rows, don't abort the scan
					}
					if e.isExpired(now) {
						expiredKeys = append(expiredKeys, append([]byte{}, item.Key()...))
						expiredFPs = append(expiredFPs, fp)
					}
					return nil
				})
			}
			return nil
		})

		if len(expiredKeys) == 0 {
			return
		}

		// Individual delete failures are collected rather than returned as
		// the transaction's error, so one bad key doesn't roll back every
		// other delete that already succeeded in this batch.
		_ = c.disk.Update(func(txn *badgerdb.Txn) error {
			for _, k := range expiredKeys {
				if err := txn.Delete(k); err != nil {
					result = multierror.Append(result, fmt.Errorf("deleting %q: %w", k, err))
				}
			}
			return nil
		})

		// Only the keys actually found expired leave the memory tier; a
		// fresh entry never promoted past the disk tier stays put.
		for _, fp := range expiredFPs {
			c.mem.Del(string(fp))
			c.metrics.RecordEviction("memory", "expired")
		}
		c.metrics.RecordExpiry(len(expiredKeys))
		c.emitLocked(Change{Kind: ChangeRemoveExpired})
	})

	return result
}

// RemoveAll clears both tiers and emits a single RemoveAll event.
func (c *Cache) RemoveAll() {
	c.dispatcher.SubmitAndWait(func() {
		c.mem.Clear()
		_ = c.disk.DropAll()
		c.emitLocked(Change{Kind: ChangeRemoveAll})
	})
}
