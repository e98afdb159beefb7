package parquetio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/parqtable/parqtable/internal/blobcache"
	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/xerr"
)

// blobSource adapts a blobstore.Store path into a Source, pairing the
// store's ranged reads with its one-time size lookup so parquet.OpenFile
// can seek the footer without buffering the whole object. Used for
// one-off reads (e.g. statistics enrichment) that don't need the blob
// cache's LRU/single-flight coordination.
type blobSource struct {
	*blobstore.ReaderAt
	size int64
}

func (s *blobSource) Size() int64 { return s.size }

// NewSource builds a Source directly over path in store.
func NewSource(ctx context.Context, store blobstore.Store, path string) (Source, error) {
	size, err := store.GetSize(ctx, path)
	if err != nil {
		return nil, err
	}
	return &blobSource{ReaderAt: blobstore.NewReaderAt(ctx, store, path), size: size}, nil
}

// NewCachedSource builds a Source over path via cache, so repeated query
// reads of the same file within a table handle's lifetime are served from
// the blob cache instead of re-downloading (spec §4.3, §5).
func NewCachedSource(ctx context.Context, cache *blobcache.Cache, path string) (Source, error) {
	rc, err := cache.OpenStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", xerr.ErrTransport, path, err)
	}
	return bytes.NewReader(data), nil
}
