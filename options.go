package pqtable

import (
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parqtable/parqtable/internal/blobcache"
	"github.com/parqtable/parqtable/internal/discovery"
)

// config holds everything an Option can adjust before Open[T] builds a
// Table[T] (spec §4's functional-options idiom, matching the teacher's
// TableConfig/column-store option pattern).
type config struct {
	cacheBytes          int64
	prefetchParallelism int
	prefetchWindow      int
	enrichConcurrency   int
	snapshotTTL         time.Duration
	logger              log.Logger
	registerer          prometheus.Registerer
	layout              Layout
	layoutSet           bool
}

func defaultConfig() config {
	return config{
		cacheBytes:          blobcache.DefaultMaxBytes,
		prefetchParallelism: blobcache.DefaultPrefetchParallelism,
		prefetchWindow:      blobcache.DefaultPrefetchParallelism,
		enrichConcurrency:   discovery.DefaultEnrichConcurrency,
		snapshotTTL:         discovery.DefaultSnapshotTTL,
	}
}

// Option configures a Table[T] at Open time.
type Option func(*config)

// WithCacheBytes bounds the Blob LRU Cache's byte budget (spec §4.2;
// default 1 GiB).
func WithCacheBytes(n int64) Option {
	return func(c *config) { c.cacheBytes = n }
}

// WithPrefetchParallelism sets the Blob LRU Cache's default prefetch
// concurrency (spec §4.2; default 8). A query's prefetch fan-out uses it
// only when the prefetch window (WithPrefetchWindow) is not positive.
func WithPrefetchParallelism(n int) Option {
	return func(c *config) { c.prefetchParallelism = n }
}

// WithPrefetchWindow sets how many files a query's prefetch fan-out
// downloads concurrently (default 8). Every file that survives pruning is
// prefetched; the window bounds concurrency, not how far ahead of the row
// stream the prefetch runs (spec §4.9).
func WithPrefetchWindow(n int) Option {
	return func(c *config) { c.prefetchWindow = n }
}

// WithEnrichConcurrency bounds how many Parquet footers the Statistics
// Enricher reads concurrently (spec §4.5; default 16).
func WithEnrichConcurrency(n int) Option {
	return func(c *config) { c.enrichConcurrency = n }
}

// WithDeltaSnapshotTTL sets how long a Delta Lake transaction-log snapshot
// is cached before the next query triggers a refresh (spec §4.4; default
// 5 minutes). Ignored for Hive-layout tables.
func WithDeltaSnapshotTTL(ttl time.Duration) Option {
	return func(c *config) { c.snapshotTTL = ttl }
}

// WithLogger installs a structured logger; defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRegisterer installs the Prometheus registerer metrics are
// registered against; defaults to an unregistered, private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// Layout selects how a Table[T] discovers partitions under its root.
type Layout int

const (
	// HiveLayout discovers partitions by walking key=value directory
	// segments (spec §4.4).
	HiveLayout Layout = iota
	// DeltaLayout discovers partitions by reconciling a Delta Lake
	// transaction log (spec §4.4).
	DeltaLayout
)

// WithLayout selects the partition discovery strategy explicitly,
// overriding Open[T]'s automatic _delta_log/ probe (spec §4.4). Without
// this option, Open[T] detects a Delta Lake layout on its own.
func WithLayout(l Layout) Option {
	return func(c *config) { c.layout = l; c.layoutSet = true }
}
