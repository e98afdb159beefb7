package pqtable_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable"
	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/rowmat"
)

// countingStore wraps a blobstore.Store, counting GetSize calls. GetSize is
// called by parquetio.NewSource (the enrichFile footer-read path) and by
// blobcache.Cache.OpenStream on a cache miss (the first read of a file's
// row data), but never by HiveStrategy's directory listing — so it isolates
// "did we re-read something from this file" from "did we re-list the
// directory," mirroring internal/index/index_test.go's countingReader.
type countingStore struct {
	blobstore.Store
	getSizeCalls int32
}

func (s *countingStore) GetSize(ctx context.Context, path string) (int64, error) {
	atomic.AddInt32(&s.getSizeCalls, 1)
	return s.Store.GetSize(ctx, path)
}

type event struct {
	ID     int64  `parquet:"id"`
	Amount int64  `parquet:"amount"`
	Tenant string `parquet:"-"`
}

var registerOnce sync.Once

func registerEvent() {
	registerOnce.Do(func() {
		pqtable.RegisterType[event]([]pqtable.ColumnBinding{
			{FieldName: "ID", ParquetName: "id", Kind: pqtable.DataColumn},
			{FieldName: "Amount", ParquetName: "amount", Kind: pqtable.DataColumn},
			{FieldName: "Tenant", ParquetName: "tenant", Kind: pqtable.PartitionColumn},
		}, nil)
	})
}

func eventMapper(v *rowmat.View) (event, error) {
	id, err := v.Field("ID", parquetio.KindInt64)
	if err != nil {
		return event{}, err
	}
	amount, err := v.Field("Amount", parquetio.KindInt64)
	if err != nil {
		return event{}, err
	}
	tenant, err := v.Field("Tenant", parquetio.KindString)
	if err != nil {
		return event{}, err
	}
	return event{ID: id.(int64), Amount: amount.(int64), Tenant: tenant.(string)}, nil
}

// writeHivePartition writes rows as a single Parquet file under
// <root>/tenant=<tenant>/data.parquet, the directory shape HiveStrategy
// expects (spec §4.4).
func writeHivePartition(t *testing.T, root, tenant string, rows []struct {
	ID     int64
	Amount int64
}) {
	t.Helper()

	type row struct {
		ID     int64 `parquet:"id"`
		Amount int64 `parquet:"amount"`
	}
	converted := make([]row, len(rows))
	for i, r := range rows {
		converted[i] = row{ID: r.ID, Amount: r.Amount}
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[row](&buf)
	_, err := w.Write(converted)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dir := filepath.Join(root, "tenant="+tenant)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.parquet"), buf.Bytes(), 0o644))
}

func TestTableQueryEndToEnd(t *testing.T) {
	registerEvent()

	root := t.TempDir()
	writeHivePartition(t, root, "acme", []struct {
		ID     int64
		Amount int64
	}{{ID: 1, Amount: 10}, {ID: 2, Amount: 200}})
	writeHivePartition(t, root, "globex", []struct {
		ID     int64
		Amount int64
	}{{ID: 3, Amount: 500}})

	table, err := pqtable.OpenFilesystem[event](root, eventMapper)
	require.NoError(t, err)

	var seen []event
	for v, err := range table.Query().
		Where(pqtable.Field("Tenant").Eq("acme")).
		Enumerate(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, v)
	}

	require.Len(t, seen, 2)
	for _, e := range seen {
		require.Equal(t, "acme", e.Tenant)
	}
}

func TestTableQueryResidualFilter(t *testing.T) {
	registerEvent()

	root := t.TempDir()
	writeHivePartition(t, root, "acme", []struct {
		ID     int64
		Amount int64
	}{{ID: 1, Amount: 10}, {ID: 2, Amount: 200}})

	table, err := pqtable.OpenFilesystem[event](root, eventMapper)
	require.NoError(t, err)

	var seen []event
	for v, err := range table.Query().
		Where(pqtable.Field("Amount").Gt(100)).
		Enumerate(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, v)
	}

	require.Len(t, seen, 1)
	require.Equal(t, int64(2), seen[0].ID)
}

// TestTableQueryEnumerateReusesDiscoveryAcrossQueries guards the cross-query
// memoization spec §3 and §4.5 require: a second Enumerate over the same
// Table[T] handle must not re-read a surviving file's footer or content,
// since CachingDiscoverer keeps serving the same *discovery.ParquetFile
// pointers (and their Enricher-populated RowGroups) rather than letting
// Open's discoverer rebuild them fresh every call.
func TestTableQueryEnumerateReusesDiscoveryAcrossQueries(t *testing.T) {
	registerEvent()

	root := t.TempDir()
	writeHivePartition(t, root, "acme", []struct {
		ID     int64
		Amount int64
	}{{ID: 1, Amount: 10}, {ID: 2, Amount: 200}})

	fs, err := blobstore.NewFilesystem(root)
	require.NoError(t, err)
	store := &countingStore{Store: fs}

	table, err := pqtable.Open[event](store, "", eventMapper)
	require.NoError(t, err)

	runQuery := func() []event {
		var seen []event
		for v, err := range table.Query().
			Where(pqtable.Field("Amount").Gt(100)).
			Enumerate(context.Background()) {
			require.NoError(t, err)
			seen = append(seen, v)
		}
		return seen
	}

	first := runQuery()
	require.Len(t, first, 1)
	require.Equal(t, int64(2), first[0].ID)

	afterFirst := atomic.LoadInt32(&store.getSizeCalls)
	require.Positive(t, afterFirst, "first query should have read the file's footer and/or content at least once")

	second := runQuery()
	require.Equal(t, first, second)

	afterSecond := atomic.LoadInt32(&store.getSizeCalls)
	require.Equal(t, afterFirst, afterSecond,
		"second Enumerate over the same Table[T] handle re-read a file that discovery should have reused from its cache")
}

func TestOpenFilesystemUnregisteredTypeErrors(t *testing.T) {
	type unregistered struct {
		ID int64 `parquet:"id"`
	}

	root := t.TempDir()
	_, err := pqtable.OpenFilesystem[unregistered](root, func(v *rowmat.View) (unregistered, error) {
		return unregistered{}, nil
	})
	require.ErrorIs(t, err, pqtable.ErrNoMetadata)
}
