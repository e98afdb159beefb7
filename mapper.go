package pqtable

import (
	"github.com/parqtable/parqtable/internal/enumerate"
	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/rowmat"
)

// Mapper builds a T out of one materialized row view (spec §4.2,
// §4.10): the caller-supplied function that replaces a reflective
// unmarshal with a direct, statically-typed field read.
type Mapper[T any] func(v *rowmat.View) (T, error)

func (m Mapper[T]) toEnumerate() enumerate.Mapper[T] {
	return enumerate.Mapper[T](m)
}

// ColumnBinding describes how a single struct field maps onto either a
// Parquet column or a partition key, re-exported so row-type packages can
// build a metadata.Register call without importing internal/metadata
// directly.
type ColumnBinding = metadata.ColumnBinding

// IndexedDefinition describes an indexed field's value type and ordering
// (spec §4.8), re-exported for the same reason as ColumnBinding.
type IndexedDefinition = metadata.IndexedDefinition

// Kind distinguishes a data column from a partition column.
type Kind = metadata.Kind

const (
	// DataColumn fields are read from the Parquet file itself.
	DataColumn = metadata.Data
	// PartitionColumn fields are read from the directory/Delta partition
	// key space.
	PartitionColumn = metadata.Partition
)

// RegisterType publishes the column bindings for row type T (spec §4.1).
// It must be called before Open[T], typically from an init() function in
// the package that declares T. Calling it twice for the same T panics.
func RegisterType[T any](fields []ColumnBinding, indexed []IndexedDefinition) {
	metadata.Register[T](fields, indexed)
}
