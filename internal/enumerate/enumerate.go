// Package enumerate implements the Enumeration Strategy (spec §4.9): the
// orchestrator that turns a query's analyzed predicate into a stream of
// typed rows by walking discovery → pruning → indexed lookup → row
// materialization, exposed as the public iter.Seq2[T, error] idiom (spec
// §4.10, grounded in the buildkite/buildkite-logs teacher's streaming
// row API).
package enumerate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/parqtable/parqtable/internal/blobcache"
	"github.com/parqtable/parqtable/internal/discovery"
	"github.com/parqtable/parqtable/internal/index"
	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/prune"
	"github.com/parqtable/parqtable/internal/query/analyze"
	"github.com/parqtable/parqtable/internal/rowmat"
	"github.com/parqtable/parqtable/internal/schema"
	"github.com/parqtable/parqtable/internal/xerr"
)

// Discoverer is satisfied by discovery.HiveStrategy, discovery.DeltaStrategy,
// and discovery.CachingDiscoverer (which Table[T].Open wraps one of the
// former two in).
type Discoverer interface {
	DiscoverPartitions(ctx context.Context) ([]*discovery.Partition, error)
}

// Mapper builds a T out of one materialized row view (spec §4.2).
type Mapper[T any] func(v *rowmat.View) (T, error)

// Config bundles everything the orchestrator needs to run one query.
type Config[T any] struct {
	Discoverer     Discoverer
	Enricher       *discovery.Enricher
	IndexEngine    *index.Engine
	Reader         parquetio.Reader
	Cache          *blobcache.Cache
	Bindings       *metadata.Bindings
	Mapper         Mapper[T]
	Filter         predicate.Expr
	SelectFields   []string
	PrefetchWindow int
	Logger         log.Logger
}

// Enumerate runs the 8-step query algorithm (spec §4.9) and returns a
// streaming iterator of (T, error) pairs. Iteration stops at the first
// error; callers inspect the error half of each pair the same way
// buildkite-logs' iter.Seq2 readers do.
func Enumerate[T any](ctx context.Context, cfg Config[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		logger := cfg.Logger
		if logger == nil {
			logger = log.NewNopLogger()
		}

		allFields := dedupFields(cfg.SelectFields, fieldsUsed(cfg.Filter))
		analysis, err := analyze.Analyze(cfg.Filter, allFields, cfg.Bindings)
		if err != nil {
			yield(zero, err)
			return
		}
		if analysis.Contradiction {
			return
		}

		partitions, err := cfg.Discoverer.DiscoverPartitions(ctx)
		if err != nil {
			yield(zero, err)
			return
		}

		partitions = prunePartitions(partitions, analysis)
		if len(partitions) == 0 {
			return
		}

		if analysis.PartitionOnly {
			for _, p := range partitions {
				view := rowmat.New(nil, partitionValueMap(p), cfg.Bindings)
				row, err := cfg.Mapper(view)
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(row, nil) {
					return
				}
			}
			return
		}

		needsStats := len(analysis.RangeFilters) > 0 || len(analysis.EqualityFilters) > 0
		if needsStats && cfg.Enricher != nil {
			if err := cfg.Enricher.Enrich(ctx, partitions); err != nil {
				yield(zero, err)
				return
			}
		}

		surviving := pruneFiles(partitions, analysis, needsStats)
		prefetchPaths := make([]string, 0, len(surviving))
		for _, f := range surviving {
			prefetchPaths = append(prefetchPaths, f.Path)
		}
		if cfg.Cache != nil && len(prefetchPaths) > 0 {
			window := cfg.PrefetchWindow
			go cfg.Cache.Prefetch(context.WithoutCancel(ctx), prefetchPaths, window)
		}

		for _, pf := range surviving {
			select {
			case <-ctx.Done():
				yield(zero, fmt.Errorf("%w: %v", xerr.ErrCancelled, ctx.Err()))
				return
			default:
			}

			ok := streamFile(ctx, cfg, analysis, pf, logger, yield)
			if !ok {
				return
			}
		}
	}
}

type filePartition struct {
	file       *discovery.ParquetFile
	partitions map[string]string
}

func streamFile[T any](ctx context.Context, cfg Config[T], analysis *analyze.Analysis, pf filePartition, logger log.Logger, yield func(T, error) bool) bool {
	var zero T

	src, err := parquetio.NewCachedSource(ctx, cfg.Cache, pf.file.Path)
	if err != nil {
		yield(zero, err)
		return false
	}

	rowGroups := candidateRowGroups(ctx, cfg, analysis, src, pf.file)

	dataColumns, _ := cfg.Bindings.ProjectedColumns(dedupFields(cfg.SelectFields, fieldsUsed(cfg.Filter)))
	it, err := cfg.Reader.ReadRows(ctx, src, dataColumns, rowGroups)
	if err != nil {
		yield(zero, err)
		return false
	}
	defer it.Close()

	for {
		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			yield(zero, err)
			return false
		}

		view := rowmat.New(row, pf.partitions, cfg.Bindings)
		if analysis.Residual != nil {
			matched, err := evalExpr(analysis.Residual, view)
			if err != nil {
				level.Debug(logger).Log("msg", "residual predicate evaluation failed", "err", err)
				yield(zero, err)
				return false
			}
			if !matched {
				continue
			}
		}

		out, err := cfg.Mapper(view)
		if err != nil {
			yield(zero, err)
			return false
		}
		if !yield(out, nil) {
			return false
		}
	}
}

func prunePartitions(partitions []*discovery.Partition, a *analyze.Analysis) []*discovery.Partition {
	if len(a.PartitionFilters) == 0 {
		return partitions
	}

	out := make([]*discovery.Partition, 0, len(partitions))
	for _, p := range partitions {
		if partitionMatches(p, a.PartitionFilters) {
			out = append(out, p)
		}
	}
	return out
}

func partitionMatches(p *discovery.Partition, filters []*predicate.Comparison) bool {
	for _, cmp := range filters {
		raw, ok := p.Values.Get(cmp.Field)
		if !ok {
			return false
		}
		kind, ok := parquetio.KindOf(cmp.Value)
		if !ok {
			continue
		}
		val, err := rowmat.ParsePartitionValue(raw, kind)
		if err != nil {
			continue
		}
		if !compareMatches(val, cmp.Op, cmp.Value) {
			return false
		}
	}
	return true
}

func pruneFiles(partitions []*discovery.Partition, a *analyze.Analysis, haveStats bool) []filePartition {
	var out []filePartition
	for _, p := range partitions {
		pv := partitionValueMap(p)
		for _, f := range p.Files {
			if haveStats && !fileMayMatch(f, a) {
				continue
			}
			out = append(out, filePartition{file: f, partitions: pv})
		}
	}
	return out
}

// fileMayMatch reports whether any row group in f could satisfy a's
// statistics-prunable filters; a file with no enriched row groups yet
// (enrichment disabled or failed) conservatively survives.
func fileMayMatch(f *discovery.ParquetFile, a *analyze.Analysis) bool {
	if len(f.RowGroups) == 0 {
		return true
	}
	for _, rg := range f.RowGroups {
		if prune.MayMatch(rg.ColumnStats, a) {
			return true
		}
	}
	return false
}

func candidateRowGroups[T any](ctx context.Context, cfg Config[T], a *analyze.Analysis, src parquetio.Source, f *discovery.ParquetFile) []int {
	if len(f.RowGroups) == 0 {
		return nil
	}

	statsPruned := make(map[int]bool, len(f.RowGroups))
	for _, rg := range f.RowGroups {
		if prune.MayMatch(rg.ColumnStats, a) {
			statsPruned[int(rg.Index)] = true
		}
	}

	if cfg.IndexEngine != nil {
		for _, cmp := range a.IndexedPredicates {
			def, ok := cfg.Bindings.Indexed[cmp.Field]
			if !ok {
				continue
			}
			idx, err := cfg.IndexEngine.Index(ctx, src, f.Path, def.ColumnName, def)
			if err != nil || idx == nil {
				continue
			}
			kind := index.Equals
			if cmp.Op == predicate.OpStartsWith {
				kind = index.StartsWith
			}
			constraint := index.Constraint{Kind: kind, Value: cmp.Value}
			if kind == index.StartsWith {
				if s, ok := cmp.Value.(string); ok {
					constraint.Prefix = s
				}
			}
			bm := idx.Candidates(constraint)
			if bm == nil {
				continue
			}
			for rgIdx := range statsPruned {
				if !bm.ContainsInt(rgIdx) {
					delete(statsPruned, rgIdx)
				}
			}
		}
	}

	out := make([]int, 0, len(statsPruned))
	for i := range statsPruned {
		out = append(out, i)
	}
	return out
}

func partitionValueMap(p *discovery.Partition) map[string]string {
	m := make(map[string]string, p.Values.Len())
	for _, k := range p.Values.Keys() {
		v, _ := p.Values.Get(k)
		m[k] = v
	}
	return m
}

func dedupFields(groups ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range groups {
		for _, f := range g {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func fieldsUsed(e predicate.Expr) []string {
	if e == nil {
		return nil
	}
	return e.FieldsUsed()
}

func compareMatches(val any, op predicate.Op, want any) bool {
	cmp, err := schema.Compare(val, want)
	if err != nil {
		return true
	}
	switch op {
	case predicate.OpEq:
		return cmp == 0
	case predicate.OpNotEq:
		return cmp != 0
	case predicate.OpLt:
		return cmp < 0
	case predicate.OpLtEq:
		return cmp <= 0
	case predicate.OpGt:
		return cmp > 0
	case predicate.OpGtEq:
		return cmp >= 0
	case predicate.OpStartsWith:
		s, ok1 := val.(string)
		prefix, ok2 := want.(string)
		return ok1 && ok2 && strings.HasPrefix(s, prefix)
	default:
		return true
	}
}
