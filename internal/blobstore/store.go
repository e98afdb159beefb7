// Package blobstore adapts an object-store backend to the BlobStore
// interface described in spec §6. It generalizes the teacher's
// (frostdb's store.go) single upload/iterate path against a
// thanos-io/objstore bucket into the full read surface the query engine
// needs: list, exists, download, ranged download, and size.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
	"github.com/thanos-io/objstore/providers/s3"

	"github.com/parqtable/parqtable/internal/xerr"
)

// Store is the engine-facing BlobStore interface (spec §6). It is
// satisfied by objstoreStore, and by any test fake that wants to avoid
// pulling in real object-store transports.
type Store interface {
	// ListByPrefix lists every blob name (key) under prefix, recursing
	// into nested directories.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether path exists in the store.
	Exists(ctx context.Context, path string) (bool, error)
	// DownloadTo copies the full contents of path into w.
	DownloadTo(ctx context.Context, path string, w io.Writer) error
	// DownloadRange opens a streaming reader over [offset, offset+length).
	DownloadRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error)
	// GetSize returns the size in bytes of path.
	GetSize(ctx context.Context, path string) (int64, error)
}

// objstoreStore implements Store over a thanos-io/objstore.Bucket, the
// same Bucket abstraction the teacher already depends on for its block
// upload path (frostdb's store.go). Unlike the teacher, which only ever
// uploads and does a flat Iter, this wraps the full read-side surface.
type objstoreStore struct {
	bucket objstore.Bucket
}

// NewFilesystem opens a Store rooted at a local directory, for Hive-style
// layouts on disk.
func NewFilesystem(root string) (Store, error) {
	b, err := filesystem.NewBucket(root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open filesystem bucket: %w", err)
	}
	return &objstoreStore{bucket: b}, nil
}

// NewS3 opens a Store against an S3-compatible bucket, for tables rooted
// at an s3:// prefix.
func NewS3(cfg s3.Config) (Store, error) {
	b, err := s3.NewBucketWithConfig(nil, cfg, "pqtable", nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open s3 bucket: %w", err)
	}
	return &objstoreStore{bucket: b}, nil
}

// NewFromBucket wraps an already-constructed objstore.Bucket, for callers
// that bring their own credentialed client (spec §6: "Authentication is
// injected as a pre-configured client").
func NewFromBucket(bucket objstore.Bucket) Store {
	return &objstoreStore{bucket: bucket}
}

func (s *objstoreStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.bucket.Iter(ctx, prefix, func(name string) error {
		names = append(names, name)
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		return nil, classify(err, prefix)
	}
	return names, nil
}

func (s *objstoreStore) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, path)
	if err != nil {
		return false, classify(err, path)
	}
	return ok, nil
}

func (s *objstoreStore) DownloadTo(ctx context.Context, path string, w io.Writer) error {
	r, err := s.bucket.Get(ctx, path)
	if err != nil {
		return classify(err, path)
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("%w: copy %s: %v", xerr.ErrTransport, path, err)
	}
	return nil
}

func (s *objstoreStore) DownloadRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	r, err := s.bucket.GetRange(ctx, path, offset, length)
	if err != nil {
		return nil, classify(err, path)
	}
	return r, nil
}

func (s *objstoreStore) GetSize(ctx context.Context, path string) (int64, error) {
	attrs, err := s.bucket.Attributes(ctx, path)
	if err != nil {
		return 0, classify(err, path)
	}
	return attrs.Size, nil
}

func classify(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, objstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", xerr.ErrNotFound, path)
	}
	return fmt.Errorf("%w: %s: %v", xerr.ErrTransport, path, err)
}

// ReaderAt adapts a Store to io.ReaderAt for a single path, the direct
// generalization of frostdb's store.go BucketReaderAt, so parquet-go's
// parquet.OpenFile can read footer and column-chunk bytes without
// downloading the whole object. ReaderAt itself does not cache; callers
// typically layer blobcache.Cache underneath for that.
type ReaderAt struct {
	ctx   context.Context
	path  string
	store Store
}

// NewReaderAt builds an io.ReaderAt over path, backed by store's ranged
// reads.
func NewReaderAt(ctx context.Context, store Store, path string) *ReaderAt {
	return &ReaderAt{ctx: ctx, path: path, store: store}
}

func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	rc, err := r.store.DownloadRange(r.ctx, r.path, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return io.ReadFull(rc, p)
}
