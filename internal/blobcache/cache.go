// Package blobcache implements the Blob LRU Cache (spec §4.2): an
// in-memory byte cache with LRU eviction, single-flight download
// coordination, and best-effort prefetch, layered on top of a
// blobstore.Store. The eviction list is a container/list doubly-linked
// list plus a map to nodes, exactly the structure spec.md prescribes;
// the cache-wide lock and the per-path singleflight.Group are the two
// strictly-ordered locks described in spec §5.
package blobcache

import (
	"container/list"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/xerr"
)

const (
	// DefaultMaxBytes is the default LRU byte budget (spec §4.2: 1 GiB).
	DefaultMaxBytes = 1 << 30
	// DefaultPrefetchParallelism is the default prefetch fan-out (spec §4.2: 8).
	DefaultPrefetchParallelism = 8
)

// Config configures a Cache.
type Config struct {
	MaxBytes            int64
	PrefetchParallelism int
}

func (c Config) withDefaults() Config {
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.PrefetchParallelism <= 0 {
		c.PrefetchParallelism = DefaultPrefetchParallelism
	}
	return c
}

type entry struct {
	path string
	data []byte
}

// Metrics are the Prometheus instruments the cache maintains. Callers pass
// a prometheus.Registerer; a nil Registerer yields a no-op metrics set
// backed by an unregistered registry, matching the teacher's
// (frostdb's db.go) "reg == nil means create our own" idiom.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	bytes     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pqtable_blobcache_hits_total",
			Help: "Number of openStream calls served from cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pqtable_blobcache_misses_total",
			Help: "Number of openStream calls that required a download.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pqtable_blobcache_evictions_total",
			Help: "Number of cache entries evicted to stay under the byte budget.",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pqtable_blobcache_bytes",
			Help: "Current number of bytes held in the blob cache.",
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.evictions, m.bytes)
	return m
}

// Cache is the Blob LRU Cache + BlobStore adapter (spec §4.2).
type Cache struct {
	store  blobstore.Store
	cfg    Config
	logger log.Logger
	metric *Metrics

	mu sync.Mutex // guards ll and index; the cache-wide lock
	ll *list.List // MRU at front, LRU at back
	// index is keyed by xxhash.Sum64String(path) rather than the raw path
	// string: object-store keys in this engine's partitioned layouts are
	// often long, repeated-prefix paths, and hashing to a fixed-width
	// uint64 keeps index's bucket/comparison cost independent of path
	// length. entry.path is kept alongside the hash to detect a collision.
	index       map[uint64]*list.Element
	currentSize int64

	flight singleflight.Group // per-path single-flight download lock
}

// New builds a Cache over store.
func New(store blobstore.Store, cfg Config, logger log.Logger, reg prometheus.Registerer) *Cache {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Cache{
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger,
		metric: newMetrics(reg),
		ll:     list.New(),
		index:  make(map[uint64]*list.Element),
	}
}

// OpenStream returns a read-only stream over the cached bytes for path. If
// the blob is not cached, it is downloaded under a per-path single-flight
// lock, cached (unless larger than MaxBytes), then served. Returns
// xerr.ErrNotFound if the blob does not exist in the backing store.
func (c *Cache) OpenStream(ctx context.Context, path string) (io.ReadCloser, error) {
	// Fast path: check the cache without taking the single-flight lock.
	if data, ok := c.fastGet(path); ok {
		c.metric.hits.Inc()
		return io.NopCloser(newByteReader(data)), nil
	}

	c.metric.misses.Inc()
	v, err, _ := c.flight.Do(path, func() (any, error) {
		// Re-check after acquiring the per-path lock: another goroutine
		// may have completed the download while we waited.
		if data, ok := c.fastGet(path); ok {
			return data, nil
		}

		size, err := c.store.GetSize(ctx, path)
		if err != nil {
			return nil, err
		}

		rc, err := c.store.DownloadRange(ctx, path, 0, size)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", xerr.ErrTransport, path, err)
		}

		c.put(path, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return io.NopCloser(newByteReader(v.([]byte))), nil
}

// RangeStream serves a byte-range read without going through the whole-blob
// cache, for Parquet footer/metadata access (spec §4.2).
func (c *Cache) RangeStream(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	return c.store.DownloadRange(ctx, path, offset, length)
}

// Prefetch fans out concurrent OpenStream calls, up to parallelism (or the
// cache's configured default if parallelism <= 0). Errors are swallowed:
// on-demand OpenStream still works for anything that failed to prefetch.
func (c *Cache) Prefetch(ctx context.Context, paths []string, parallelism int) {
	if parallelism <= 0 {
		parallelism = c.cfg.PrefetchParallelism
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for _, p := range paths {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			rc, err := c.OpenStream(ctx, p)
			if err != nil {
				level.Debug(c.logger).Log("msg", "prefetch failed, ignoring", "path", p, "err", err)
				return
			}
			rc.Close()
		}()
	}
	wg.Wait()
}

// fastGet checks the cache and, on hit, moves the entry to the MRU
// position. It takes the cache-wide lock but never the single-flight lock.
func (c *Cache) fastGet(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[xxhash.Sum64String(path)]
	if !ok || el.Value.(*entry).path != path {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).data, true
}

// put inserts path into the cache, evicting from the LRU tail until the
// byte budget is satisfied. Blobs larger than MaxBytes are never cached
// (spec §4.2: "A blob larger than maxBytes is streamed but not cached").
func (c *Cache) put(path string, data []byte) {
	if int64(len(data)) > c.cfg.MaxBytes {
		level.Debug(c.logger).Log("msg", "blob exceeds cache budget, not caching", "path", path, "size", humanize.Bytes(uint64(len(data))))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := xxhash.Sum64String(path)
	if el, ok := c.index[key]; ok && el.Value.(*entry).path == path {
		c.currentSize -= int64(len(el.Value.(*entry).data))
		el.Value = &entry{path: path, data: data}
		c.ll.MoveToFront(el)
		c.currentSize += int64(len(data))
		c.metric.bytes.Set(float64(c.currentSize))
		return
	}

	el := c.ll.PushFront(&entry{path: path, data: data})
	c.index[key] = el
	c.currentSize += int64(len(data))

	for c.currentSize > c.cfg.MaxBytes {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.ll.Remove(back)
		ev := back.Value.(*entry)
		delete(c.index, xxhash.Sum64String(ev.path))
		c.currentSize -= int64(len(ev.data))
		c.metric.evictions.Inc()
	}
	c.metric.bytes.Set(float64(c.currentSize))
}

// Len reports the number of cached entries, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// CurrentBytes reports the current cache footprint, for tests.
func (c *Cache) CurrentBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}
