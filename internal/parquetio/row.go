package parquetio

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/parqtable/parqtable/internal/xerr"
)

// ColumnBuffer is a typed column-buffer view shared by every Row drawn from
// the same row group (spec §4.3): it holds the raw parquet.Value entries,
// and decoding from physical to target type happens on each Get call.
type ColumnBuffer struct {
	name     string
	physical parquet.Type
	values   []parquet.Value // len == row group's row count; entries whose IsNull() is true are SQL-null
}

// Get returns the value at row index i, performing the physical→logical
// conversion lazily via Coerce.
func (b *ColumnBuffer) Get(i int, target Kind) (any, error) {
	v := b.values[i]
	if v.IsNull() {
		return nil, nil
	}
	return Coerce(v, b.physical, target)
}

// Row is a typed column-buffer view over one row of a RowGroup (spec
// §4.3). It shares the row group's already-materialized buffers instead of
// copying values; each Row is one small heap allocation, and Value finds
// a column by a linear scan of the column names, so per-column access is
// O(columns), not O(1).
type Row struct {
	columnNames []string
	buffers     []*ColumnBuffer
	rowIndex    int
}

// ColumnNames lists the columns available on this row.
func (r *Row) ColumnNames() []string {
	return r.columnNames
}

// Value returns the raw-but-typed value of column name at this row, or
// ok=false if the column isn't present on this row view.
func (r *Row) Value(name string, target Kind) (any, bool, error) {
	for i, n := range r.columnNames {
		if n == name {
			v, err := r.buffers[i].Get(r.rowIndex, target)
			return v, true, err
		}
	}
	return nil, false, nil
}

// rowIterator implements RowIterator over one or more row groups.
type rowIterator struct {
	ctx        context.Context
	file       *parquet.File
	columnSet  []string
	groupIdxs  []int
	groupAt    int
	buffers    []*ColumnBuffer
	rowAt      int
	rowCount   int
}

func (r *reader) ReadRows(ctx context.Context, src Source, columns []string, rowGroupSubset []int) (RowIterator, error) {
	f, err := openFile(src)
	if err != nil {
		return nil, err
	}

	groups := rowGroupSubset
	if groups == nil {
		groups = make([]int, len(f.RowGroups()))
		for i := range groups {
			groups[i] = i
		}
	}

	it := &rowIterator{
		ctx:       ctx,
		file:      f,
		columnSet: columns,
		groupIdxs: groups,
		groupAt:   -1,
	}
	return it, nil
}

func (it *rowIterator) Next() (*Row, error) {
	select {
	case <-it.ctx.Done():
		return nil, fmt.Errorf("%w: %v", xerr.ErrCancelled, it.ctx.Err())
	default:
	}

	for it.rowAt >= it.rowCount {
		it.groupAt++
		if it.groupAt >= len(it.groupIdxs) {
			return nil, io.EOF
		}
		gi := it.groupIdxs[it.groupAt]
		buffers, err := loadColumnBuffers(it.file, gi, it.columnSet)
		if err != nil {
			return nil, err
		}
		it.buffers = buffers
		it.rowAt = 0
		if len(buffers) > 0 {
			it.rowCount = len(buffers[0].values)
		} else {
			it.rowCount = int(it.file.RowGroups()[gi].NumRows())
		}
	}

	row := &Row{columnNames: it.columnSet, buffers: it.buffers, rowIndex: it.rowAt}
	it.rowAt++
	return row, nil
}

func (it *rowIterator) Close() error {
	return nil
}

// loadColumnBuffers materializes every requested column of row group gi
// into memory. Columns absent from the file's schema are a fatal
// MissingColumn (spec §4.9, §7).
func loadColumnBuffers(f *parquet.File, gi int, columns []string) ([]*ColumnBuffer, error) {
	rg := f.RowGroups()[gi]
	byName := make(map[string]int, len(f.Schema().Columns()))
	for i, leaf := range f.Schema().Columns() {
		byName[leaf[len(leaf)-1]] = i
	}

	buffers := make([]*ColumnBuffer, 0, len(columns))
	for _, name := range columns {
		ci, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", xerr.ErrMissingColumn, name)
		}

		chunk := rg.ColumnChunks()[ci]
		values, err := readAllValues(chunk)
		if err != nil {
			return nil, fmt.Errorf("parquetio: read column %s: %w", name, err)
		}

		buffers = append(buffers, &ColumnBuffer{name: name, physical: chunk.Type(), values: values})
	}
	return buffers, nil
}

// readAllValues drains every page of a column chunk into a flat slice of
// parquet.Value, the same Pages()/ReadPage()/Values()/ReadValues idiom
// parquet-go's own tests use to walk a column.
func readAllValues(chunk parquet.ColumnChunk) ([]parquet.Value, error) {
	pages := chunk.Pages()
	defer pages.Close()

	var out []parquet.Value
	buf := make([]parquet.Value, 256)
	for {
		page, err := pages.ReadPage()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		values := page.Values()
		for {
			n, err := values.ReadValues(buf)
			out = append(out, cloneValues(buf[:n])...)
			if err != nil {
				if err == io.EOF {
					break
				}
				parquet.Release(page)
				return nil, err
			}
		}
		parquet.Release(page)
	}
	return out, nil
}

func cloneValues(in []parquet.Value) []parquet.Value {
	out := make([]parquet.Value, len(in))
	copy(out, in)
	return out
}

// ReadColumnValuesByRowGroup implements the ParquetReader method the
// Indexed Column Engine uses to build per-row-group sorted indexes
// (spec §4.3, §4.8).
func (r *reader) ReadColumnValuesByRowGroup(src Source, column string) ([][]any, error) {
	f, err := openFile(src)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(f.Schema().Columns()))
	for i, leaf := range f.Schema().Columns() {
		byName[leaf[len(leaf)-1]] = i
	}
	ci, ok := byName[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", xerr.ErrMissingColumn, column)
	}

	groups := f.RowGroups()
	out := make([][]any, len(groups))
	for gi, rg := range groups {
		chunk := rg.ColumnChunks()[ci]
		values, err := readAllValues(chunk)
		if err != nil {
			return nil, fmt.Errorf("parquetio: read column %s row group %d: %w", column, gi, err)
		}

		decoded := make([]any, len(values))
		physical := physicalTypeOf(chunk.Type())
		logical := logicalTypeOf(chunk.Type())
		for i, v := range values {
			if v.IsNull() {
				decoded[i] = nil
				continue
			}
			dv, err := decodeValueFromParquet(v, physical, logical)
			if err != nil {
				return nil, err
			}
			decoded[i] = dv
		}
		out[gi] = decoded
	}
	return out, nil
}
