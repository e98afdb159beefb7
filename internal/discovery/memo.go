package discovery

import (
	"context"
	"sync"
)

// strategy is the minimal shape a partition-discovery strategy exposes;
// HiveStrategy and DeltaStrategy both satisfy it. Declared locally (rather
// than importing internal/enumerate.Discoverer) to keep this package free
// of a dependency on its own caller.
type strategy interface {
	DiscoverPartitions(ctx context.Context) ([]*Partition, error)
}

// CachingDiscoverer wraps a HiveStrategy/DeltaStrategy, reusing the same
// *ParquetFile value for a given path across repeated DiscoverPartitions
// calls. Both underlying strategies rebuild fresh Partition/ParquetFile
// values on every call (Delta's Snapshot is TTL-cached, but the Partition
// wrapper it's folded into is not); without this, the Statistics
// Enricher's "already populated" memoization (enrich.go's
// enrichFile: "if len(f.RowGroups) > 0, return") never fires across two
// separate queries against the same Table[T] handle, since each query
// gets a brand new *ParquetFile with a nil RowGroups. Caching by path here
// is what makes that memoization actually span the table handle's
// lifetime (spec §3, §4.5).
type CachingDiscoverer struct {
	inner strategy

	mu    sync.Mutex
	files map[string]*ParquetFile
}

// NewCachingDiscoverer wraps inner, caching *ParquetFile values by path.
func NewCachingDiscoverer(inner strategy) *CachingDiscoverer {
	return &CachingDiscoverer{inner: inner, files: make(map[string]*ParquetFile)}
}

// DiscoverPartitions runs the wrapped strategy, then splices in the
// previously-seen *ParquetFile for any path already cached, so its
// RowGroups (once enriched) survive into this call's result. Files no
// longer discovered (removed via a Delta "remove" action, or deleted from
// a Hive directory) are dropped from the cache so it tracks the table's
// current file set rather than growing without bound.
func (c *CachingDiscoverer) DiscoverPartitions(ctx context.Context) ([]*Partition, error) {
	partitions, err := c.inner.DiscoverPartitions(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(c.files))
	for _, p := range partitions {
		for i, f := range p.Files {
			if cached, ok := c.files[f.Path]; ok {
				p.Files[i] = cached
			} else {
				c.files[f.Path] = f
			}
			seen[f.Path] = true
		}
	}
	for path := range c.files {
		if !seen[path] {
			delete(c.files, path)
		}
	}

	return partitions, nil
}
