// Package pqtable is a typed, expression-driven query engine over
// partitioned Parquet data on a local filesystem or an object store: open
// a Table[T] against a Hive or Delta Lake layout, then build and run
// Query[T] values over it (spec §1, §2).
package pqtable

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parqtable/parqtable/internal/blobcache"
	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/discovery"
	"github.com/parqtable/parqtable/internal/enumerate"
	"github.com/parqtable/parqtable/internal/index"
	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
)

// Table[T] is a handle onto one partitioned Parquet dataset of row type
// T, owning the Blob LRU Cache, Statistics Enricher, and Indexed Column
// Engine for its lifetime (spec §2, §5). Table[T] is safe for concurrent
// use by multiple goroutines running independent Query[T] values.
type Table[T any] struct {
	store      blobstore.Store
	cache      *blobcache.Cache
	reader     parquetio.Reader
	discoverer enumerate.Discoverer
	enricher   *discovery.Enricher
	index      *index.Engine
	bindings   *metadata.Bindings
	mapper     Mapper[T]
	logger     log.Logger
	cfg        config
}

// Open builds a Table[T] rooted at root in store. T must already be
// registered via RegisterType[T] (typically from an init() function);
// Open returns ErrNoMetadata if it was not.
func Open[T any](store blobstore.Store, root string, mapper Mapper[T], opts ...Option) (*Table[T], error) {
	bindings, ok := metadata.Lookup[T]()
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoMetadata, *new(T))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.NewNopLogger()
	}
	if cfg.registerer == nil {
		cfg.registerer = prometheus.NewRegistry()
	}

	cache := blobcache.New(store, blobcache.Config{
		MaxBytes:            cfg.cacheBytes,
		PrefetchParallelism: cfg.prefetchParallelism,
	}, cfg.logger, cfg.registerer)

	reader := parquetio.New()
	enricher := discovery.NewEnricher(store, reader, cfg.enrichConcurrency, cfg.logger)
	idx := index.NewEngine(reader)

	layout := cfg.layout
	if !cfg.layoutSet {
		// spec §4.4: a root whose _delta_log/ prefix is present selects
		// Delta discovery automatically, unless the caller overrode it
		// with WithLayout. A probe failure is not fatal here: it just
		// falls back to Hive, the same as if _delta_log/ didn't exist.
		if hasLog, err := discovery.HasDeltaLog(context.Background(), store, root); err != nil {
			level.Debug(cfg.logger).Log("msg", "delta log probe failed, defaulting to hive layout", "err", err)
		} else if hasLog {
			layout = DeltaLayout
		}
	}

	var disc *discovery.CachingDiscoverer
	switch layout {
	case DeltaLayout:
		disc = discovery.NewCachingDiscoverer(discovery.NewDelta(store, root, cfg.snapshotTTL, cfg.logger))
	default:
		disc = discovery.NewCachingDiscoverer(discovery.NewHive(store, root, cfg.logger))
	}

	return &Table[T]{
		store:      store,
		cache:      cache,
		reader:     reader,
		discoverer: disc,
		enricher:   enricher,
		index:      idx,
		bindings:   bindings,
		mapper:     mapper,
		logger:     cfg.logger,
		cfg:        cfg,
	}, nil
}

// OpenFilesystem is a convenience wrapper around Open for a Hive or Delta
// layout rooted at a local directory.
func OpenFilesystem[T any](root string, mapper Mapper[T], opts ...Option) (*Table[T], error) {
	store, err := blobstore.NewFilesystem(root)
	if err != nil {
		return nil, err
	}
	return Open[T](store, "", mapper, opts...)
}

// Query starts a new Query[T] against this table; see Query[T]'s Where
// and Select methods.
func (t *Table[T]) Query() *Query[T] {
	return &Query[T]{table: t}
}

// Close releases resources held by the table handle. It does nothing: the
// Blob LRU Cache and Indexed Column Engine hold only in-process memory.
// Close does not wait for or cancel the prefetch goroutine each
// Query[T].Enumerate starts; that goroutine runs detached until its
// downloads finish.
func (t *Table[T]) Close() error {
	return nil
}
