package index

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/predicate"
)

func int64Compare(a, b any) int {
	av, bv := a.(int64), b.(int64)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func TestBuildAndEquals(t *testing.T) {
	values := [][]any{
		{int64(1), int64(2), int64(1)},
		{int64(3)},
		{int64(2)},
	}
	idx := Build(values, metadata.IndexedDefinition{Compare: int64Compare})

	bm := idx.Candidates(Constraint{Kind: Equals, Value: int64(2)})
	require.ElementsMatch(t, []uint32{0, 2}, bm.ToArray())

	bm = idx.Candidates(Constraint{Kind: Equals, Value: int64(99)})
	require.True(t, bm.IsEmpty())
}

func TestComparisonRange(t *testing.T) {
	values := [][]any{{int64(1)}, {int64(5)}, {int64(10)}}
	idx := Build(values, metadata.IndexedDefinition{Compare: int64Compare})

	bm := idx.Candidates(Constraint{Kind: Comparison, Op: predicate.OpGtEq, Value: int64(5)})
	require.ElementsMatch(t, []uint32{1, 2}, bm.ToArray())

	bm = idx.Candidates(Constraint{Kind: Comparison, Op: predicate.OpLt, Value: int64(10)})
	require.ElementsMatch(t, []uint32{0, 1}, bm.ToArray())
}

func TestStartsWith(t *testing.T) {
	values := [][]any{{"apple", "avocado"}, {"banana"}, {"apricot"}}
	idx := Build(values, metadata.IndexedDefinition{Compare: func(a, b any) int {
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}})

	bm := idx.Candidates(Constraint{Kind: StartsWith, Prefix: "ap"})
	require.ElementsMatch(t, []uint32{0, 2}, bm.ToArray())
}

// countingReader wraps a parquetio.Reader and counts ReadColumnValuesByRowGroup calls.
type countingReader struct {
	parquetio.Reader
	calls int32
}

func (c *countingReader) ReadColumnValuesByRowGroup(src parquetio.Source, column string) ([][]any, error) {
	atomic.AddInt32(&c.calls, 1)
	return [][]any{{int64(1)}, {int64(2)}}, nil
}

func TestEngineBuildsIndexAtMostOncePerFileColumn(t *testing.T) {
	reader := &countingReader{}
	e := NewEngine(reader)
	def := metadata.IndexedDefinition{Compare: int64Compare}

	for i := 0; i < 5; i++ {
		_, err := e.Index(context.Background(), nil, "file.parquet", "id", def)
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&reader.calls))
}
