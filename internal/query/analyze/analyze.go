// Package analyze implements the Query Analyzer (spec §4.6): it walks a
// predicate.Expr tree once and classifies it into the filter groups the
// rest of the engine consumes — partition filters evaluated against
// discovered partition values, tightened per-column ranges handed to the
// pruner, indexed-column predicates eligible for index lookup, and the
// residual predicate every surviving row must still be checked against.
package analyze

import (
	"fmt"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/schema"
)

// RangeFilter is a tightened inequality range on one column, the
// conjunction of every Lt/LtEq/Gt/GtEq comparison the analyzer found for
// that column (spec §4.6: "range filters are tightened; a provably empty
// range short-circuits the whole query").
type RangeFilter struct {
	Column                     string
	Min, Max                   any
	MinInclusive, MaxInclusive bool
	HasMin, HasMax             bool
}

// Analysis is the Query Analyzer's output (spec §4.6).
type Analysis struct {
	// PartitionFilters are equality/inequality comparisons on partition
	// columns, evaluated directly against discovery.Partition.Values.
	PartitionFilters []*predicate.Comparison
	// RangeFilters are per-column tightened ranges over data columns,
	// handed to the Partition/File/Row-Group Pruner.
	RangeFilters []RangeFilter
	// IndexedPredicates are equality/StartsWith comparisons on indexed
	// columns, eligible for the Indexed Column Engine (spec §4.8).
	IndexedPredicates []*predicate.Comparison
	// EqualityFilters are every top-level Eq/NotEq comparison on a data
	// column, indexed or not, fed to the Partition/File/Row-Group Pruner
	// alongside RangeFilters (spec §4.7).
	EqualityFilters []*predicate.Comparison
	// Residual is the exact predicate every materialized row must still
	// be evaluated against; pruning/indexing are accelerations, never a
	// replacement for this check.
	Residual predicate.Expr
	// ProjectedDataColumns and ProjectedPartitionColumns are the Parquet
	// and partition column names of the fields passed to Analyze as
	// selectFields.
	ProjectedDataColumns, ProjectedPartitionColumns []string
	// PartitionOnly is true when every column this query touches
	// (filter + projection) is a partition column, so no Parquet file
	// ever needs to be opened (spec §4.6, §4.9 fast path).
	PartitionOnly bool
	// Contradiction is true when a RangeFilter's bounds are provably
	// empty (e.g. x > 10 AND x < 5): the query matches no rows and
	// enumeration can stop before touching discovery at all.
	Contradiction bool
}

// Analyze classifies filter against the column bindings for row type T and
// the set of fields the query projects.
func Analyze(filter predicate.Expr, selectFields []string, bindings *metadata.Bindings) (*Analysis, error) {
	a := &Analysis{Residual: filter}

	dataCols, partCols := bindings.ProjectedColumns(selectFields)
	a.ProjectedDataColumns = dataCols
	a.ProjectedPartitionColumns = partCols

	if filter != nil {
		ranges := map[string]*RangeFilter{}
		for _, conjunct := range flattenAnd(filter) {
			cmp, ok := conjunct.(*predicate.Comparison)
			if !ok {
				// Anything that isn't a bare top-level comparison (an Or,
				// a Not, a nested And already flattened into its own
				// conjuncts) is pushed down only as part of Residual;
				// it contributes no pruning hint.
				continue
			}
			if err := classify(a, ranges, bindings, cmp); err != nil {
				return nil, err
			}
		}

		for _, rf := range ranges {
			a.RangeFilters = append(a.RangeFilters, *rf)
			if rf.HasMin && rf.HasMax {
				if contradicts(*rf) {
					a.Contradiction = true
				}
			}
		}
	}

	touchesOnlyPartitions := true
	for _, f := range selectFields {
		b, ok := bindings.Fields[f]
		if ok && b.Kind != metadata.Partition {
			touchesOnlyPartitions = false
			break
		}
	}
	if touchesOnlyPartitions && filter != nil {
		for _, field := range filter.FieldsUsed() {
			b, ok := bindings.Fields[field]
			if !ok || b.Kind != metadata.Partition {
				touchesOnlyPartitions = false
				break
			}
		}
	}
	a.PartitionOnly = touchesOnlyPartitions

	return a, nil
}

func classify(a *Analysis, ranges map[string]*RangeFilter, bindings *metadata.Bindings, cmp *predicate.Comparison) error {
	binding, ok := bindings.Fields[cmp.Field]
	if !ok {
		return fmt.Errorf("analyze: unknown field %q in predicate", cmp.Field)
	}

	if binding.Kind == metadata.Partition {
		a.PartitionFilters = append(a.PartitionFilters, &predicate.Comparison{
			Field: binding.ParquetName,
			Op:    cmp.Op,
			Value: cmp.Value,
		})
		return nil
	}

	if binding.Indexed && (cmp.Op == predicate.OpEq || cmp.Op == predicate.OpStartsWith) {
		a.IndexedPredicates = append(a.IndexedPredicates, cmp)
	}

	switch cmp.Op {
	case predicate.OpEq, predicate.OpNotEq:
		a.EqualityFilters = append(a.EqualityFilters, &predicate.Comparison{
			Field: binding.ParquetName,
			Op:    cmp.Op,
			Value: cmp.Value,
		})
	case predicate.OpLt, predicate.OpLtEq, predicate.OpGt, predicate.OpGtEq:
		rf := ranges[binding.ParquetName]
		if rf == nil {
			rf = &RangeFilter{Column: binding.ParquetName}
			ranges[binding.ParquetName] = rf
		}
		tighten(rf, cmp)
	}

	return nil
}

func tighten(rf *RangeFilter, cmp *predicate.Comparison) {
	switch cmp.Op {
	case predicate.OpGt, predicate.OpGtEq:
		if !rf.HasMin || better(cmp.Value, rf.Min, true) {
			rf.Min = cmp.Value
			rf.MinInclusive = cmp.Op == predicate.OpGtEq
			rf.HasMin = true
		}
	case predicate.OpLt, predicate.OpLtEq:
		if !rf.HasMax || better(cmp.Value, rf.Max, false) {
			rf.Max = cmp.Value
			rf.MaxInclusive = cmp.Op == predicate.OpLtEq
			rf.HasMax = true
		}
	}
}

// better reports whether candidate tightens the bound further than
// current: for a lower bound (wantHigher) a larger candidate is tighter;
// for an upper bound a smaller candidate is tighter. Incomparable values
// keep the existing bound rather than failing the whole analysis —
// tightening is an optimization, never required for correctness.
func better(candidate, current any, wantHigher bool) bool {
	cmp, err := schema.Compare(candidate, current)
	if err != nil {
		return false
	}
	if wantHigher {
		return cmp > 0
	}
	return cmp < 0
}

func contradicts(rf RangeFilter) bool {
	cmp, err := schema.Compare(rf.Min, rf.Max)
	if err != nil {
		return false
	}
	if cmp > 0 {
		return true
	}
	if cmp == 0 {
		return !(rf.MinInclusive && rf.MaxInclusive)
	}
	return false
}

// flattenAnd splits e into its top-level conjuncts, recursing through
// nested AndExprs so `And(And(a,b), c)` yields [a, b, c].
func flattenAnd(e predicate.Expr) []predicate.Expr {
	and, ok := e.(*predicate.AndExpr)
	if !ok {
		return []predicate.Expr{e}
	}
	var out []predicate.Expr
	for _, sub := range and.Exprs {
		out = append(out, flattenAnd(sub)...)
	}
	return out
}
