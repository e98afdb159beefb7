package pqtable

import (
	"context"
	"iter"

	"github.com/parqtable/parqtable/internal/enumerate"
	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/predicate"
)

// Query[T] builds one query against a Table[T]: an optional filter
// expression plus an optional field projection (spec §4.6, §4.9). A
// zero-value Query[T] (via Table[T].Query) matches every row and
// projects every bound field.
type Query[T any] struct {
	table  *Table[T]
	filter Expr
	fields []string
}

// Where conjoins expr onto the query's filter (spec §4.6: repeated Where
// calls AND together, the same way a SQL builder's chained .Where does).
func (q *Query[T]) Where(expr Expr) *Query[T] {
	q.filter = predicate.And(q.filter, expr)
	return q
}

// Select restricts which bound struct fields the query reads. Data fields
// that are neither selected nor used by the filter are not read: View.Field
// returns ErrMissingColumn for them (nil for a Nullable binding), while
// partition fields stay readable. An empty or unset selection projects
// every bound field.
func (q *Query[T]) Select(fields ...string) *Query[T] {
	q.fields = fields
	return q
}

// Enumerate runs the query and returns a streaming iterator of (T, error)
// pairs (spec §4.9). Iteration stops at the first error.
func (q *Query[T]) Enumerate(ctx context.Context) iter.Seq2[T, error] {
	selectFields := q.fields
	if len(selectFields) == 0 {
		selectFields = allFieldNames(q.table.bindings)
	}

	cfg := enumerate.Config[T]{
		Discoverer:     q.table.discoverer,
		Enricher:       q.table.enricher,
		IndexEngine:    q.table.index,
		Reader:         q.table.reader,
		Cache:          q.table.cache,
		Bindings:       q.table.bindings,
		Mapper:         q.table.mapper.toEnumerate(),
		Filter:         q.filter,
		SelectFields:   selectFields,
		PrefetchWindow: q.table.cfg.prefetchWindow,
		Logger:         q.table.logger,
	}
	return enumerate.Enumerate(ctx, cfg)
}

func allFieldNames(b *metadata.Bindings) []string {
	names := make([]string, 0, len(b.Fields))
	for name := range b.Fields {
		names = append(names, name)
	}
	return names
}
