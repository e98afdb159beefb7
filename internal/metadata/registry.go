// Package metadata implements the Type Metadata Registry (spec §4.1): a
// process-global, lookup-only-after-publish table of per-row-type column
// bindings. Registration happens once per type, typically from an init()
// in the package that declares the row type — the Go analogue of the
// source's compile-time derive, without runtime reflection at query time.
package metadata

import (
	"fmt"
	"reflect"
	"sync"
)

// Kind distinguishes a data column from a partition column.
type Kind int

const (
	// Data columns are read from the Parquet file itself.
	Data Kind = iota
	// Partition columns are read from the directory/Delta partition key space.
	Partition
)

// TotalOrder compares two decoded values of an indexed column, returning
// <0, 0, >0 the way sort.Interface comparators do.
type TotalOrder[V any] func(a, b V) int

// ColumnBinding describes how a single struct field maps onto either a
// Parquet column or a partition key.
type ColumnBinding struct {
	// FieldName is the Go struct field name this binding describes.
	FieldName string
	// ParquetName is the physical column name (for Data columns) or the
	// partition key name (for Partition columns). Register stores it as
	// given; discovery lowercases partition keys, so a Partition binding
	// matches discovered values only under a lowercase name.
	ParquetName string
	Kind        Kind
	Indexed     bool
	Nullable    bool
}

// IndexedDefinition describes an indexed field's value type and ordering,
// used by the Indexed Column Engine (spec §4.8) to build sorted indexes.
type IndexedDefinition struct {
	FieldName   string
	ColumnName  string
	ValueType   reflect.Type
	Compare     func(a, b any) int
	FromRaw     func(raw any) (any, error)
}

// Bindings is the full set of column bindings registered for a row type.
type Bindings struct {
	Fields     map[string]ColumnBinding
	Indexed    map[string]IndexedDefinition
	Partitions map[string]struct{}
}

var (
	mu       sync.RWMutex
	registry = map[reflect.Type]*Bindings{}
)

// Register publishes the column bindings for row type T, keyed by T's
// reflect.Type identity. It must be called before any Table[T] is opened,
// typically from an init() function. Calling Register twice for the same
// type panics — a conflicting redefinition is a programming error, not a
// runtime condition to recover from.
func Register[T any](fields []ColumnBinding, indexed []IndexedDefinition) {
	t := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("metadata: type %s already registered", t))
	}

	b := &Bindings{
		Fields:     make(map[string]ColumnBinding, len(fields)),
		Indexed:    make(map[string]IndexedDefinition, len(indexed)),
		Partitions: make(map[string]struct{}),
	}
	for _, f := range fields {
		b.Fields[f.FieldName] = f
		if f.Kind == Partition {
			b.Partitions[f.ParquetName] = struct{}{}
		}
	}
	for _, d := range indexed {
		b.Indexed[d.FieldName] = d
	}

	registry[t] = b
}

// Lookup returns the published bindings for T, or ErrNoMetadata-flavored
// ok=false if T was never registered. Lock-free in spirit: the RWMutex is
// only ever write-locked during Register, so steady-state lookups are
// read-locked and effectively contention-free.
func Lookup[T any]() (*Bindings, bool) {
	t := reflect.TypeFor[T]()

	mu.RLock()
	defer mu.RUnlock()

	b, ok := registry[t]
	return b, ok
}

// ColumnName resolves a struct field name to its Parquet/partition column
// name for row type described by b.
func (b *Bindings) ColumnName(field string) (string, bool) {
	f, ok := b.Fields[field]
	if !ok {
		return "", false
	}
	return f.ParquetName, true
}

// IsPartitionColumn reports whether the given (lowercased) column name is
// bound as a partition key on this row type.
func (b *Bindings) IsPartitionColumn(column string) bool {
	_, ok := b.Partitions[column]
	return ok
}

// ProjectedColumns returns the Parquet column names for a set of field
// names, splitting them into partition and data columns.
func (b *Bindings) ProjectedColumns(fieldNames []string) (dataColumns, partitionColumns []string) {
	for _, fn := range fieldNames {
		binding, ok := b.Fields[fn]
		if !ok {
			continue
		}
		if binding.Kind == Partition {
			partitionColumns = append(partitionColumns, binding.ParquetName)
		} else {
			dataColumns = append(dataColumns, binding.ParquetName)
		}
	}
	return dataColumns, partitionColumns
}
