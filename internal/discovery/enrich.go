package discovery

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/parquetio"
)

// DefaultEnrichConcurrency bounds how many files the Statistics Enricher
// reads footers for at once (spec §4.5, §5).
const DefaultEnrichConcurrency = 16

// Enricher populates ParquetFile.RowGroups with per-row-group column
// statistics on demand (spec §4.5). A file already carrying RowGroups is
// left untouched: enrichment is memoized for the table handle's lifetime,
// keyed by nothing more than "already populated," since a ParquetFile
// value is only ever discovered once per handle generation.
type Enricher struct {
	store       blobstore.Store
	reader      parquetio.Reader
	concurrency int
	logger      log.Logger
}

// NewEnricher builds an Enricher reading Parquet footers through store via
// reader, bounded to concurrency simultaneous file opens.
func NewEnricher(store blobstore.Store, reader parquetio.Reader, concurrency int, logger log.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultEnrichConcurrency
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Enricher{store: store, reader: reader, concurrency: concurrency, logger: logger}
}

// Enrich populates row-group statistics for every file across partitions
// that doesn't already have them. Per-file failures degrade to "unknown
// stats" (the file keeps no RowGroups, and spec §4.7's conservative
// pruning lets such a file survive) and are logged, never returned:
// a single unreadable footer must not fail the whole query.
func (e *Enricher) Enrich(ctx context.Context, partitions []*Partition) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, p := range partitions {
		for _, f := range p.Files {
			f := f
			g.Go(func() error {
				e.enrichFile(gctx, f)
				return nil
			})
		}
	}
	return g.Wait()
}

func (e *Enricher) enrichFile(ctx context.Context, f *ParquetFile) {
	if len(f.RowGroups) > 0 {
		return
	}

	src, err := parquetio.NewSource(ctx, e.store, f.Path)
	if err != nil {
		level.Warn(e.logger).Log("msg", "enrich: cannot open file, stats unknown", "path", f.Path, "err", err)
		return
	}

	metas, err := e.reader.RowGroupStats(src)
	if err != nil {
		level.Warn(e.logger).Log("msg", "enrich: cannot read row group stats, stats unknown", "path", f.Path, "err", err)
		return
	}

	rowGroups := make([]*RowGroup, len(metas))
	var totalRows uint64
	for i, m := range metas {
		numRows := uint64(m.NumRows)
		totalByteSize := uint64(m.TotalByteSize)
		rowGroups[i] = &RowGroup{
			Index:         uint32(m.Index),
			NumRows:       &numRows,
			TotalByteSize: &totalByteSize,
			ColumnStats:   m.ColumnStats,
		}
		totalRows += numRows
	}
	f.RowGroups = rowGroups
	if f.RowCount == nil {
		f.RowCount = &totalRows
	}
}
