package parquetio

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/parqtable/parqtable/internal/schema"
)

// RowGroupStats implements the Statistics Enricher's per-file read (spec
// §4.5): for every row group, fold the per-page column indexes
// parquet-go exposes into a single row-group-level min/max, matching the
// granularity spec.md's RowGroup.ColumnStats expects. Raw stat bytes are
// stored unparsed (spec §3); decoding happens later at comparison time.
func (r *reader) RowGroupStats(src Source) ([]RowGroupMeta, error) {
	f, err := openFile(src)
	if err != nil {
		return nil, err
	}

	groups := f.RowGroups()
	metas := make([]RowGroupMeta, len(groups))

	for i, rg := range groups {
		meta := RowGroupMeta{
			Index:       i,
			NumRows:     rg.NumRows(),
			ColumnStats: make(map[string]schema.ColumnStatistics),
		}

		for _, chunk := range rg.ColumnChunks() {
			leaf := f.Schema().Columns()[chunk.Column()]
			name := leaf[len(leaf)-1]
			col := f.Root().Column(leaf)

			stats, err := columnStatsFromChunk(col.Type(), chunk)
			if err != nil {
				return nil, fmt.Errorf("parquetio: column %s row group %d: %w", name, i, err)
			}
			meta.ColumnStats[name] = stats
		}

		metas[i] = meta
	}

	return metas, nil
}

// columnStatsFromChunk folds every page's [min, max] in a column chunk's
// ColumnIndex into a single row-group-wide statistic. A chunk without a
// column index (e.g. written without page statistics) yields an
// "unknown" ColumnStatistics, which spec §4.7 treats conservatively as
// "may match".
func columnStatsFromChunk(typ parquet.Type, chunk parquet.ColumnChunk) (schema.ColumnStatistics, error) {
	out := schema.ColumnStatistics{
		PhysicalType: physicalTypeOf(typ),
		LogicalType:  logicalTypeOf(typ),
	}

	idx, err := chunk.ColumnIndex()
	if err != nil || idx == nil {
		// No page index: leave HasMinRaw/HasMaxRaw false, the
		// "unknown ⇒ may match" case.
		return out, nil
	}

	var (
		min, max   parquet.Value
		haveBounds bool
		nullCount  int64
	)

	for p := 0; p < idx.NumPages(); p++ {
		nullCount += idx.NullCount(p)
		if idx.NullPage(p) {
			continue
		}

		pMin := idx.MinValue(p)
		pMax := idx.MaxValue(p)

		if !haveBounds {
			min, max = pMin, pMax
			haveBounds = true
			continue
		}
		if typ.Compare(pMin, min) < 0 {
			min = pMin
		}
		if typ.Compare(pMax, max) > 0 {
			max = pMax
		}
	}

	out.NullCount = &nullCount
	if haveBounds {
		out.MinRaw = valueBytes(min)
		out.MaxRaw = valueBytes(max)
		out.HasMinRaw = true
		out.HasMaxRaw = true
	}

	return out, nil
}

// valueBytes extracts the raw byte representation of a parquet.Value for
// storage as an undecoded statistic, matching spec §3's "Raw stat bytes
// are stored unparsed; decoding is deferred to comparison time."
func valueBytes(v parquet.Value) []byte {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return []byte{1}
		}
		return []byte{0}
	case parquet.Int32:
		return int32LE(v.Int32())
	case parquet.Int64:
		return int64LE(v.Int64())
	case parquet.Float:
		return int32LE(int32FromFloat(v.Float()))
	case parquet.Double:
		return int64LE(int64FromDouble(v.Double()))
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return v.ByteArray()
	default:
		return nil
	}
}
