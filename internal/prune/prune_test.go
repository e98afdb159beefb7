package prune

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/query/analyze"
	"github.com/parqtable/parqtable/internal/schema"
)

func int64Stat(min, max int64) schema.ColumnStatistics {
	minB := make([]byte, 8)
	maxB := make([]byte, 8)
	binary.LittleEndian.PutUint64(minB, uint64(min))
	binary.LittleEndian.PutUint64(maxB, uint64(max))
	return schema.ColumnStatistics{
		PhysicalType: schema.PhysicalInt64,
		MinRaw:       minB,
		MaxRaw:       maxB,
		HasMinRaw:    true,
		HasMaxRaw:    true,
	}
}

func bindings() *metadata.Bindings {
	return &metadata.Bindings{
		Fields: map[string]metadata.ColumnBinding{
			"Amount": {FieldName: "Amount", ParquetName: "amount", Kind: metadata.Data},
		},
	}
}

func TestMayMatchRangeExcludesDisjointRowGroup(t *testing.T) {
	a, err := analyze.Analyze(predicate.Field("Amount").Gt(100), nil, bindings())
	require.NoError(t, err)

	stats := map[string]schema.ColumnStatistics{"amount": int64Stat(0, 50)}
	require.False(t, MayMatch(stats, a))
}

func TestMayMatchRangeKeepsOverlappingRowGroup(t *testing.T) {
	a, err := analyze.Analyze(predicate.Field("Amount").Gt(10), nil, bindings())
	require.NoError(t, err)

	stats := map[string]schema.ColumnStatistics{"amount": int64Stat(0, 50)}
	require.True(t, MayMatch(stats, a))
}

func TestMayMatchUnknownStatsAlwaysKeeps(t *testing.T) {
	a, err := analyze.Analyze(predicate.Field("Amount").Eq(int64(999)), nil, bindings())
	require.NoError(t, err)

	stats := map[string]schema.ColumnStatistics{}
	require.True(t, MayMatch(stats, a))
}

func TestMayMatchEqOutsideRangeExcludes(t *testing.T) {
	a, err := analyze.Analyze(predicate.Field("Amount").Eq(int64(999)), nil, bindings())
	require.NoError(t, err)

	stats := map[string]schema.ColumnStatistics{"amount": int64Stat(0, 50)}
	require.False(t, MayMatch(stats, a))
}
