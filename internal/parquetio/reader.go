// Package parquetio implements the Parquet Reader adapter (spec §4.3):
// schema discovery, row-group metadata, typed column reads, and range
// I/O, backed by github.com/parquet-go/parquet-go — the same library the
// teacher (frostdb) reads and writes Parquet with.
package parquetio

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/parqtable/parqtable/internal/schema"
	"github.com/parqtable/parqtable/internal/xerr"
)

// Source is anything the reader can open a Parquet file over: a sized
// io.ReaderAt, typically blobstore.ReaderAt layered under blobcache.Cache.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Reader is the engine-facing ParquetReader interface (spec §4.3).
type Reader interface {
	// GetColumns returns the physical schema's column metadata.
	GetColumns(src Source) ([]schema.ColumnMeta, error)
	// RowGroupStats returns row-group-level statistics for every column,
	// used by the Statistics Enricher (spec §4.5).
	RowGroupStats(src Source) ([]RowGroupMeta, error)
	// ReadRows streams rows for the requested columns, restricted to
	// rowGroupSubset if non-nil (spec §4.3).
	ReadRows(ctx context.Context, src Source, columns []string, rowGroupSubset []int) (RowIterator, error)
	// ReadColumnValuesByRowGroup reads one column's decoded values,
	// grouped by row group, for index building (spec §4.3, §4.8).
	ReadColumnValuesByRowGroup(src Source, column string) ([][]any, error)
}

// RowGroupMeta is the raw row-group statistics the Statistics Enricher
// folds into discovery.RowGroup (spec §4.5).
type RowGroupMeta struct {
	Index         int
	NumRows       int64
	TotalByteSize int64
	ColumnStats   map[string]schema.ColumnStatistics
}

// RowIterator streams ParquetRow values. Callers must call Close when done.
type RowIterator interface {
	Next() (*Row, error) // returns io.EOF when exhausted
	Close() error
}

type reader struct{}

// New returns the default parquet-go-backed Reader.
func New() Reader {
	return &reader{}
}

func openFile(src Source) (*parquet.File, error) {
	f, err := parquet.OpenFile(src, src.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: open parquet file: %v", xerr.ErrTransport, err)
	}
	return f, nil
}

func (r *reader) GetColumns(src Source) ([]schema.ColumnMeta, error) {
	f, err := openFile(src)
	if err != nil {
		return nil, err
	}

	var cols []schema.ColumnMeta
	for _, leaf := range f.Schema().Columns() {
		col := f.Root().Column(leaf)
		if col == nil {
			continue
		}
		cols = append(cols, columnMetaFromNode(col))
	}
	return cols, nil
}

// columnMetaFromNode builds a schema.ColumnMeta from a leaf *parquet.Column.
func columnMetaFromNode(col *parquet.Column) schema.ColumnMeta {
	path := col.Name()
	if full := col.Path(); len(full) > 0 {
		path = full[len(full)-1]
	}

	return schema.ColumnMeta{
		Path:         path,
		PhysicalType: physicalTypeOf(col.Type()),
		LogicalType:  logicalTypeOf(col.Type()),
		Nullable:     col.Optional(),
	}
}

func physicalTypeOf(t parquet.Type) schema.PhysicalType {
	switch t.Kind() {
	case parquet.Boolean:
		return schema.PhysicalBoolean
	case parquet.Int32:
		return schema.PhysicalInt32
	case parquet.Int64:
		return schema.PhysicalInt64
	case parquet.Float:
		return schema.PhysicalFloat
	case parquet.Double:
		return schema.PhysicalDouble
	case parquet.ByteArray:
		return schema.PhysicalByteArray
	case parquet.FixedLenByteArray:
		return schema.PhysicalFixedLenByteArray
	default:
		return schema.PhysicalUnknown
	}
}

func logicalTypeOf(t parquet.Type) schema.LogicalType {
	var lt *format.LogicalType = t.LogicalType()
	if lt == nil {
		return schema.LogicalNone
	}
	switch {
	case lt.UTF8 != nil:
		return schema.LogicalString
	case lt.Date != nil:
		return schema.LogicalDate
	case lt.Timestamp != nil:
		return schema.LogicalTimestamp
	default:
		return schema.LogicalNone
	}
}
