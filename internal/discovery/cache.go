package discovery

import (
	"sync"
	"time"
)

// snapshotTTL configures how long a Delta-log Snapshot stays cached before
// the next DiscoverPartitions call triggers a refresh (spec §4.4: default
// 5 minutes). It is an alias of time.Duration, named only to make the
// NewDelta signature self-documenting.
type snapshotTTL = time.Duration

// DefaultSnapshotTTL is the default Delta-log cache lifetime.
const DefaultSnapshotTTL snapshotTTL = 5 * time.Minute

// snapshotCache holds the most recently loaded Delta Snapshot, expiring it
// after ttl. Every getOrLoad call holds the mutex; a cache hit releases it
// at once, so readers wait for any length of time only while another
// caller's loadFn is refreshing the snapshot (spec §5).
type snapshotCache struct {
	ttl snapshotTTL

	mu       sync.Mutex
	snapshot *Snapshot
	loadedAt time.Time
}

func newSnapshotCache(ttl snapshotTTL) *snapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &snapshotCache{ttl: ttl}
}

func (c *snapshotCache) getOrLoad(loadFn func() (*Snapshot, error)) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && time.Since(c.loadedAt) < c.ttl {
		return c.snapshot, nil
	}

	snap, err := loadFn()
	if err != nil {
		return nil, err
	}

	c.snapshot = snap
	c.loadedAt = time.Now()
	return snap, nil
}

func (c *snapshotCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}
