package discovery

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/xerr"
)

// HiveStrategy discovers partitions by walking a Hive-style directory
// layout: <root>/key1=val1/key2=val2/.../*.parquet (spec §4.4, §6). A
// partition is any leaf directory containing at least one Parquet file.
type HiveStrategy struct {
	store  blobstore.Store
	root   string
	logger log.Logger
}

// NewHive builds a Hive discovery strategy rooted at root.
func NewHive(store blobstore.Store, root string, logger log.Logger) *HiveStrategy {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &HiveStrategy{store: store, root: strings.TrimSuffix(root, "/"), logger: logger}
}

// DiscoverPartitions lists every blob under root and groups Parquet files
// by their containing directory. An empty root is not an error: it yields
// no partitions (spec §7). A directory path that repeats a partition key
// fails the whole call with xerr.ErrSchemaMismatch.
func (h *HiveStrategy) DiscoverPartitions(ctx context.Context) ([]*Partition, error) {
	names, err := h.store.ListByPrefix(ctx, h.root)
	if err != nil {
		return nil, fmt.Errorf("discovery: list %s: %w", h.root, err)
	}

	byDir := make(map[string][]string)
	for _, name := range names {
		if !strings.HasSuffix(name, ".parquet") {
			continue
		}
		byDir[path.Dir(name)] = append(byDir[path.Dir(name)], name)
	}

	partitions := make([]*Partition, 0, len(byDir))
	for dir, files := range byDir {
		values, err := h.parsePartitionValues(dir)
		if err != nil {
			level.Debug(h.logger).Log("msg", "directory with unparseable partition segment", "dir", dir, "err", err)
			return nil, fmt.Errorf("discovery: %w", err)
		}

		sort.Strings(files)
		pf := make([]*ParquetFile, 0, len(files))
		for _, f := range files {
			pf = append(pf, &ParquetFile{Path: f})
		}

		p := &Partition{
			Path:   dir,
			Values: values,
			Files:  pf,
		}
		if values.Len() == 0 {
			p.SyntheticID = uuid.New()
		}
		partitions = append(partitions, p)
	}

	// Stable order by path, matching spec §4.4: "partitions returned in
	// stable order (sorted by path) to make pruning deterministic".
	sort.Slice(partitions, func(i, j int) bool { return partitions[i].Path < partitions[j].Path })

	return partitions, nil
}

// parsePartitionValues extracts key=value segments from the portion of dir
// below root. Partition-key comparison is case-insensitive on keys; values
// are stored as-is (spec §4.4). A repeated key within one path is a fatal
// schema mismatch (spec §6: "undefined behavior").
func (h *HiveStrategy) parsePartitionValues(dir string) (orderedValues, error) {
	values := newOrderedValues()

	rel := strings.TrimPrefix(dir, h.root)
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return values, nil
	}

	for _, segment := range strings.Split(rel, "/") {
		k, v, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key := strings.ToLower(k)
		if _, exists := values.Get(key); exists {
			return values, fmt.Errorf("%w: duplicate partition key %q in path %q", xerr.ErrSchemaMismatch, key, dir)
		}
		values.Set(key, v)
	}

	return values, nil
}
