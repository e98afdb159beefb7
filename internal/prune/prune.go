// Package prune implements the Partition/File/Row-Group Pruner (spec
// §4.7): conservative statistics-driven candidate elimination, grounded in
// the teacher's (frostdb's) filter.go TrueNegativeFilter/AndExpr/OrExpr
// walk — but evaluated against schema.ColumnStatistics min/max bytes
// instead of an in-memory Arrow row group. "Unknown" statistics always
// keep the candidate: a pruner may produce false positives, never false
// negatives.
package prune

import (
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/query/analyze"
	"github.com/parqtable/parqtable/internal/schema"
)

// MayMatch reports whether a row group (or file, or partition — anything
// describable by a column→ColumnStatistics map, keyed by physical column
// name) could contain rows satisfying the analyzed filter. A false result
// is a true negative: the candidate is safe to skip entirely.
func MayMatch(stats map[string]schema.ColumnStatistics, a *analyze.Analysis) bool {
	for _, rf := range a.RangeFilters {
		if !rangeMayMatch(stats[rf.Column], rf) {
			return false
		}
	}
	for _, eq := range a.EqualityFilters {
		if eq.Op != predicate.OpEq {
			continue
		}
		if !eqMayMatch(stats[eq.Field], eq) {
			return false
		}
	}
	return true
}

func rangeMayMatch(stat schema.ColumnStatistics, rf analyze.RangeFilter) bool {
	if !stat.HasMinMax() {
		return true
	}

	if rf.HasMax {
		min, err := schema.DecodeValue(stat.PhysicalType, stat.LogicalType, stat.MinRaw)
		if err != nil {
			return true
		}
		cmp, err := schema.Compare(min, rf.Max)
		if err != nil {
			return true
		}
		if cmp > 0 || (cmp == 0 && !rf.MaxInclusive) {
			return false
		}
	}

	if rf.HasMin {
		max, err := schema.DecodeValue(stat.PhysicalType, stat.LogicalType, stat.MaxRaw)
		if err != nil {
			return true
		}
		cmp, err := schema.Compare(max, rf.Min)
		if err != nil {
			return true
		}
		if cmp < 0 || (cmp == 0 && !rf.MinInclusive) {
			return false
		}
	}

	return true
}

// eqMayMatch reports whether cmp.Value could fall within stat's [min, max]
// range. An Eq comparison outside the range is a true negative.
func eqMayMatch(stat schema.ColumnStatistics, cmp *predicate.Comparison) bool {
	if !stat.HasMinMax() {
		return true
	}

	min, err := schema.DecodeValue(stat.PhysicalType, stat.LogicalType, stat.MinRaw)
	if err != nil {
		return true
	}
	max, err := schema.DecodeValue(stat.PhysicalType, stat.LogicalType, stat.MaxRaw)
	if err != nil {
		return true
	}

	cmpMin, err := schema.Compare(cmp.Value, min)
	if err != nil {
		return true
	}
	cmpMax, err := schema.Compare(cmp.Value, max)
	if err != nil {
		return true
	}
	return cmpMin >= 0 && cmpMax <= 0
}
