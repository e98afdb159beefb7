package enumerate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/blobcache"
	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/discovery"
	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/rowmat"
)

type order struct {
	ID     int64  `parquet:"id"`
	Amount int64  `parquet:"amount"`
	Name   string `parquet:"name"`
}

func testBindings() *metadata.Bindings {
	return &metadata.Bindings{
		Fields: map[string]metadata.ColumnBinding{
			"ID":     {FieldName: "ID", ParquetName: "id", Kind: metadata.Data},
			"Amount": {FieldName: "Amount", ParquetName: "amount", Kind: metadata.Data},
			"Name":   {FieldName: "Name", ParquetName: "name", Kind: metadata.Data},
			"Tenant": {FieldName: "Tenant", ParquetName: "tenant", Kind: metadata.Partition},
		},
		Indexed:    map[string]metadata.IndexedDefinition{},
		Partitions: map[string]struct{}{"tenant": {}},
	}
}

// memStore is an in-memory blobstore.Store backing the test fixtures.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ blobstore.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = data
}

func (s *memStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (s *memStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[path]
	return ok, nil
}

func (s *memStore) DownloadTo(ctx context.Context, path string, w io.Writer) error {
	s.mu.Lock()
	data, ok := s.data[path]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("memstore: %s not found", path)
	}
	_, err := w.Write(data)
	return err
}

func (s *memStore) DownloadRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.data[path]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memstore: %s not found", path)
	}
	end := offset + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return io.NopCloser(bytes.NewReader(data[offset:end])), nil
}

func (s *memStore) GetSize(ctx context.Context, path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[path]
	if !ok {
		return 0, fmt.Errorf("memstore: %s not found", path)
	}
	return int64(len(data)), nil
}

func writeOrders(t *testing.T, rows []order) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[order](&buf)
	_, err := w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// fakeDiscoverer returns a fixed partition set, standing in for
// discovery.HiveStrategy/DeltaStrategy.
type fakeDiscoverer struct {
	partitions []*discovery.Partition
}

func (f *fakeDiscoverer) DiscoverPartitions(ctx context.Context) ([]*discovery.Partition, error) {
	return f.partitions, nil
}

func newPartition(path, tenant string, files ...*discovery.ParquetFile) *discovery.Partition {
	return discovery.NewPartition(path, map[string]string{"tenant": tenant}, []string{"tenant"}, files)
}

func newCache(t *testing.T, store blobstore.Store) *blobcache.Cache {
	t.Helper()
	return blobcache.New(store, blobcache.Config{}, nil, nil)
}

func TestEnumeratePartitionPruning(t *testing.T) {
	store := newMemStore()
	acmeBytes := writeOrders(t, []order{{ID: 1, Amount: 10, Name: "a"}})
	otherBytes := writeOrders(t, []order{{ID: 2, Amount: 20, Name: "b"}})
	store.put("acme/f1.parquet", acmeBytes)
	store.put("other/f1.parquet", otherBytes)

	acmeFile := &discovery.ParquetFile{Path: "acme/f1.parquet"}
	otherFile := &discovery.ParquetFile{Path: "other/f1.parquet"}
	partitions := []*discovery.Partition{
		newPartition("acme", "acme", acmeFile),
		newPartition("other", "other", otherFile),
	}

	bindings := testBindings()
	cache := newCache(t, store)
	reader := parquetio.New()

	var seen []int64
	mapper := func(v *rowmat.View) (int64, error) {
		val, err := v.Field("ID", parquetio.KindInt64)
		if err != nil {
			return 0, err
		}
		return val.(int64), nil
	}

	cfg := Config[int64]{
		Discoverer:   &fakeDiscoverer{partitions: partitions},
		Reader:       reader,
		Cache:        cache,
		Bindings:     bindings,
		Mapper:       mapper,
		Filter:       predicate.Field("Tenant").Eq("acme"),
		SelectFields: []string{"ID"},
	}

	for v, err := range Enumerate(context.Background(), cfg) {
		require.NoError(t, err)
		seen = append(seen, v)
	}
	require.Equal(t, []int64{1}, seen)
}

func TestEnumerateResidualFiltersDataColumn(t *testing.T) {
	store := newMemStore()
	bytes1 := writeOrders(t, []order{
		{ID: 1, Amount: 10, Name: "a"},
		{ID: 2, Amount: 200, Name: "b"},
		{ID: 3, Amount: 30, Name: "c"},
	})
	store.put("acme/f1.parquet", bytes1)

	f := &discovery.ParquetFile{Path: "acme/f1.parquet"}
	partitions := []*discovery.Partition{newPartition("acme", "acme", f)}

	bindings := testBindings()
	cache := newCache(t, store)
	reader := parquetio.New()

	mapper := func(v *rowmat.View) (int64, error) {
		val, err := v.Field("ID", parquetio.KindInt64)
		if err != nil {
			return 0, err
		}
		return val.(int64), nil
	}

	cfg := Config[int64]{
		Discoverer:   &fakeDiscoverer{partitions: partitions},
		Reader:       reader,
		Cache:        cache,
		Bindings:     bindings,
		Mapper:       mapper,
		Filter:       predicate.Field("Amount").Gt(100),
		SelectFields: []string{"ID", "Amount"},
	}

	var seen []int64
	for v, err := range Enumerate(context.Background(), cfg) {
		require.NoError(t, err)
		seen = append(seen, v)
	}
	require.Equal(t, []int64{2}, seen)
}

func TestEnumerateStatsPruningSkipsNonMatchingFile(t *testing.T) {
	store := newMemStore()
	lowBytes := writeOrders(t, []order{{ID: 1, Amount: 1, Name: "a"}, {ID: 2, Amount: 2, Name: "b"}})
	highBytes := writeOrders(t, []order{{ID: 3, Amount: 900, Name: "c"}, {ID: 4, Amount: 950, Name: "d"}})
	store.put("acme/low.parquet", lowBytes)
	store.put("acme/high.parquet", highBytes)

	lowFile := &discovery.ParquetFile{Path: "acme/low.parquet"}
	highFile := &discovery.ParquetFile{Path: "acme/high.parquet"}
	partitions := []*discovery.Partition{newPartition("acme", "acme", lowFile, highFile)}

	bindings := testBindings()
	cache := newCache(t, store)
	reader := parquetio.New()
	enricher := discovery.NewEnricher(store, reader, 0, nil)

	mapper := func(v *rowmat.View) (int64, error) {
		val, err := v.Field("ID", parquetio.KindInt64)
		if err != nil {
			return 0, err
		}
		return val.(int64), nil
	}

	cfg := Config[int64]{
		Discoverer:   &fakeDiscoverer{partitions: partitions},
		Enricher:     enricher,
		Reader:       reader,
		Cache:        cache,
		Bindings:     bindings,
		Mapper:       mapper,
		Filter:       predicate.Field("Amount").Gt(500),
		SelectFields: []string{"ID", "Amount"},
	}

	var seen []int64
	for v, err := range Enumerate(context.Background(), cfg) {
		require.NoError(t, err)
		seen = append(seen, v)
	}
	require.ElementsMatch(t, []int64{3, 4}, seen)
	// Only the surviving file's rows go through the blob cache; the pruned
	// low file is read for its footer statistics by the enricher alone.
	require.Equal(t, 1, cache.Len())
}

func TestEnumeratePartitionOnlyFastPath(t *testing.T) {
	store := newMemStore()
	// No files registered in the store: a PartitionOnly query must never
	// open a Parquet file.
	f := &discovery.ParquetFile{Path: "acme/never-opened.parquet"}
	partitions := []*discovery.Partition{newPartition("acme", "acme", f)}

	bindings := testBindings()
	cache := newCache(t, store)
	reader := parquetio.New()

	mapper := func(v *rowmat.View) (string, error) {
		val, err := v.Field("Tenant", parquetio.KindString)
		if err != nil {
			return "", err
		}
		return val.(string), nil
	}

	cfg := Config[string]{
		Discoverer:   &fakeDiscoverer{partitions: partitions},
		Reader:       reader,
		Cache:        cache,
		Bindings:     bindings,
		Mapper:       mapper,
		SelectFields: []string{"Tenant"},
	}

	var seen []string
	for v, err := range Enumerate(context.Background(), cfg) {
		require.NoError(t, err)
		seen = append(seen, v)
	}
	require.Equal(t, []string{"acme"}, seen)
}
