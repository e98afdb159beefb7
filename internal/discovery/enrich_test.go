package discovery

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/parquetio"
)

type sampleRow struct {
	ID int64 `parquet:"id"`
}

// memStore is a minimal in-memory blobstore.Store fake for enricher tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) put(path string, rows []sampleRow) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[sampleRow](&buf)
	_, _ = w.Write(rows)
	_ = w.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = buf.Bytes()
}

func (m *memStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (m *memStore) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[path]
	return ok, nil
}

func (m *memStore) DownloadTo(ctx context.Context, path string, w io.Writer) error {
	m.mu.Lock()
	b := m.data[path]
	m.mu.Unlock()
	_, err := w.Write(b)
	return err
}

func (m *memStore) GetSize(ctx context.Context, path string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data[path])), nil
}

func (m *memStore) DownloadRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[path]
	end := offset + length
	if end > int64(len(b)) || length <= 0 {
		end = int64(len(b))
	}
	if offset > int64(len(b)) {
		offset = int64(len(b))
	}
	return readCloserBytes{bytes.NewReader(b[offset:end])}, nil
}

type readCloserBytes struct{ *bytes.Reader }

func (readCloserBytes) Close() error { return nil }

var _ blobstore.Store = (*memStore)(nil)

func TestEnrichPopulatesRowGroupStats(t *testing.T) {
	store := newMemStore()
	store.put("p1/part-0.parquet", []sampleRow{{ID: 1}, {ID: 2}, {ID: 3}})

	partitions := []*Partition{{
		Path:  "p1",
		Files: []*ParquetFile{{Path: "p1/part-0.parquet"}},
	}}

	e := NewEnricher(store, parquetio.New(), 4, nil)
	require.NoError(t, e.Enrich(context.Background(), partitions))

	f := partitions[0].Files[0]
	require.Len(t, f.RowGroups, 1)
	require.NotNil(t, f.RowCount)
	require.EqualValues(t, 3, *f.RowCount)

	stats, ok := f.RowGroups[0].ColumnStats["id"]
	require.True(t, ok)
	require.True(t, stats.HasMinMax())
}

func TestEnrichIsMemoizedPerFile(t *testing.T) {
	store := newMemStore()
	store.put("p1/part-0.parquet", []sampleRow{{ID: 1}})

	partitions := []*Partition{{
		Path:  "p1",
		Files: []*ParquetFile{{Path: "p1/part-0.parquet"}},
	}}

	e := NewEnricher(store, parquetio.New(), 4, nil)
	require.NoError(t, e.Enrich(context.Background(), partitions))
	first := partitions[0].Files[0].RowGroups

	require.NoError(t, e.Enrich(context.Background(), partitions))
	require.Same(t, &first[0].Index, &partitions[0].Files[0].RowGroups[0].Index)
}
