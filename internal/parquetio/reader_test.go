package parquetio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/xerr"
)

type row struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

// memSource wraps an in-memory Parquet file as a parquetio.Source.
type memSource struct {
	*bytes.Reader
}

func (m memSource) Size() int64 { return int64(m.Len()) }

func writeTestFile(t *testing.T, rows []row) memSource {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[row](&buf)
	_, err := w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return memSource{bytes.NewReader(buf.Bytes())}
}

func TestGetColumns(t *testing.T) {
	src := writeTestFile(t, []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	r := New()

	cols, err := r.GetColumns(src)
	require.NoError(t, err)
	require.Len(t, cols, 2)

	names := map[string]bool{}
	for _, c := range cols {
		names[c.Path] = true
	}
	require.True(t, names["id"])
	require.True(t, names["name"])
}

func TestRowGroupStats(t *testing.T) {
	src := writeTestFile(t, []row{{ID: 1, Name: "a"}, {ID: 5, Name: "z"}, {ID: 3, Name: "m"}})
	r := New()

	metas, err := r.RowGroupStats(src)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.EqualValues(t, 3, metas[0].NumRows)

	idStats, ok := metas[0].ColumnStats["id"]
	require.True(t, ok)
	if idStats.HasMinMax() {
		minV, err := decodeRaw(idStats.MinRaw)
		require.NoError(t, err)
		maxV, err := decodeRaw(idStats.MaxRaw)
		require.NoError(t, err)
		require.Equal(t, int64(1), minV)
		require.Equal(t, int64(5), maxV)
	}
}

func decodeRaw(raw []byte) (int64, error) {
	v := int64(0)
	for i := len(raw) - 1; i >= 0; i-- {
		v = v<<8 | int64(raw[i])
	}
	return v, nil
}

func TestReadRowsYieldsAllRows(t *testing.T) {
	src := writeTestFile(t, []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}})
	r := New()

	it, err := r.ReadRows(context.Background(), src, []string{"id", "name"}, nil)
	require.NoError(t, err)
	defer it.Close()

	var ids []int64
	for {
		rv, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		v, ok, err := rv.Value("id", KindInt64)
		require.NoError(t, err)
		require.True(t, ok)
		ids = append(ids, v.(int64))
	}
	require.Equal(t, []int64{1, 2, 3}, ids)
}

func TestReadRowsMissingColumnFails(t *testing.T) {
	src := writeTestFile(t, []row{{ID: 1, Name: "a"}})
	r := New()

	it, err := r.ReadRows(context.Background(), src, []string{"nonexistent"}, nil)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	require.ErrorIs(t, err, xerr.ErrMissingColumn)
}

func TestReadColumnValuesByRowGroup(t *testing.T) {
	src := writeTestFile(t, []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	r := New()

	values, err := r.ReadColumnValuesByRowGroup(src, "id")
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, []any{int64(1), int64(2)}, values[0])
}
