// Package discovery implements Partition Discovery (spec §4.4) and the
// Statistics Enricher (spec §4.5): Hive directory walks, Delta Lake
// transaction-log reconciliation, and per-file/per-row-group statistics
// population, all cached per spec §3's lifecycle rules.
package discovery

import (
	"github.com/google/uuid"

	"github.com/parqtable/parqtable/internal/schema"
)

// Partition is a directory (Hive) or logical file grouping (Delta) sharing
// a tuple of partition-key values (spec §3).
type Partition struct {
	Path string
	// Values maps partition-key (lowercased) to its raw string value,
	// insertion-ordered to match the directory path / Delta metadata order.
	Values orderedValues
	Files  []*ParquetFile
	// SyntheticID identifies a Partition that carries no natural key/value
	// pairs (an un-partitioned Hive root, or a leaf with no "=" segments):
	// diagnostics and logging need something stable to refer to the
	// partition by even though Values is empty. Unset (uuid.Nil) when
	// Values is non-empty, since the natural key already identifies it.
	SyntheticID uuid.UUID
}

// NewPartition builds a Partition from an explicit ordered set of
// partition key/value pairs, for callers (tests, synthetic discovery
// strategies) that assemble partitions outside a directory/Delta walk.
func NewPartition(path string, values map[string]string, keyOrder []string, files []*ParquetFile) *Partition {
	ov := newOrderedValues()
	for _, k := range keyOrder {
		if v, ok := values[k]; ok {
			ov.Set(k, v)
		}
	}
	return &Partition{Path: path, Values: ov, Files: files}
}

// ParquetFile is a single physical Parquet file discovered under a
// Partition. Two files with equal Path are identical across a snapshot.
type ParquetFile struct {
	Path      string
	SizeBytes *uint64
	RowCount  *uint64
	RowGroups []*RowGroup
}

// RowGroup is a Parquet row group's metadata, including per-column
// statistics once enriched.
type RowGroup struct {
	Index         uint32
	NumRows       *uint64
	TotalByteSize *uint64
	ColumnStats   map[string]schema.ColumnStatistics
}

// orderedValues is an insertion-order-preserving string map, used for
// Partition.Values so Hive path segment order survives (spec §4.4).
type orderedValues struct {
	keys   []string
	values map[string]string
}

func newOrderedValues() orderedValues {
	return orderedValues{values: make(map[string]string)}
}

func (o *orderedValues) Set(key, value string) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value for key and whether it was present.
func (o orderedValues) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns partition keys in insertion order.
func (o orderedValues) Keys() []string {
	return o.keys
}

// Len reports the number of partition keys.
func (o orderedValues) Len() int {
	return len(o.keys)
}
