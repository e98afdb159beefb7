// Package index implements the Indexed Column Engine (spec §4.8):
// per-file, per-column sorted value indexes over roaring.Bitmap row-group
// candidate sets, built at most once per file+column for the lifetime of
// a table handle and reused across every query that touches that column.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/predicate"
)

// ConstraintKind identifies the shape of an indexed-column lookup.
type ConstraintKind int

const (
	AlwaysMatch ConstraintKind = iota
	Equals
	NotEquals
	Comparison
	StartsWith
)

// Constraint is one indexed-column lookup request (spec §4.8). For
// Comparison, Op is one of OpLt/OpLtEq/OpGt/OpGtEq; for StartsWith,
// matching is ordinal (byte-wise), never culture-aware — the one
// restriction spec §4.8 places on indexed acceleration of StartsWith.
type Constraint struct {
	Kind   ConstraintKind
	Op     predicate.Op
	Value  any
	Prefix string
}

// RowGroupIndex maps an indexed column's distinct values, sorted
// ascending, to the set of row groups (within one file) containing that
// value at least once.
type RowGroupIndex struct {
	entries []indexEntry
	compare metadata.TotalOrder[any]
}

type indexEntry struct {
	value     any
	rowGroups *roaring.Bitmap
}

// Build constructs a RowGroupIndex from a file's per-row-group decoded
// column values (parquetio.Reader.ReadColumnValuesByRowGroup), using def's
// total order to keep entries sorted.
func Build(valuesByRowGroup [][]any, def metadata.IndexedDefinition) *RowGroupIndex {
	byValue := map[any]*roaring.Bitmap{}
	var order []any

	for gi, values := range valuesByRowGroup {
		seen := map[any]bool{}
		for _, v := range values {
			if v == nil || seen[v] {
				continue
			}
			seen[v] = true
			bm, ok := byValue[v]
			if !ok {
				bm = roaring.New()
				byValue[v] = bm
				order = append(order, v)
			}
			bm.Add(uint32(gi))
		}
	}

	cmp := def.Compare
	if cmp == nil {
		cmp = func(a, b any) int { return 0 }
	}
	sort.Slice(order, func(i, j int) bool { return cmp(order[i], order[j]) < 0 })

	entries := make([]indexEntry, len(order))
	for i, v := range order {
		entries[i] = indexEntry{value: v, rowGroups: byValue[v]}
	}

	return &RowGroupIndex{entries: entries, compare: cmp}
}

// Candidates resolves a Constraint into the set of row-group indices that
// might contain a match. AlwaysMatch and comparisons the index can't
// service conservatively return nil, meaning "every row group is a
// candidate" — the caller falls back to statistics-based pruning.
func (idx *RowGroupIndex) Candidates(c Constraint) *roaring.Bitmap {
	switch c.Kind {
	case Equals:
		return idx.equals(c.Value)
	case NotEquals:
		return idx.notEquals(c.Value)
	case Comparison:
		return idx.comparison(c.Op, c.Value)
	case StartsWith:
		return idx.startsWith(c.Prefix)
	default:
		return nil
	}
}

func (idx *RowGroupIndex) find(value any) (int, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.compare(idx.entries[i].value, value) >= 0
	})
	if i < len(idx.entries) && idx.compare(idx.entries[i].value, value) == 0 {
		return i, true
	}
	return i, false
}

func (idx *RowGroupIndex) equals(value any) *roaring.Bitmap {
	i, ok := idx.find(value)
	if !ok {
		return roaring.New()
	}
	return idx.entries[i].rowGroups.Clone()
}

func (idx *RowGroupIndex) notEquals(value any) *roaring.Bitmap {
	out := roaring.New()
	for _, e := range idx.entries {
		if idx.compare(e.value, value) != 0 {
			out.Or(e.rowGroups)
		}
	}
	return out
}

func (idx *RowGroupIndex) comparison(op predicate.Op, value any) *roaring.Bitmap {
	lo, hi := 0, len(idx.entries)
	switch op {
	case predicate.OpGt:
		lo = sort.Search(len(idx.entries), func(i int) bool { return idx.compare(idx.entries[i].value, value) > 0 })
	case predicate.OpGtEq:
		lo = sort.Search(len(idx.entries), func(i int) bool { return idx.compare(idx.entries[i].value, value) >= 0 })
	case predicate.OpLt:
		hi = sort.Search(len(idx.entries), func(i int) bool { return idx.compare(idx.entries[i].value, value) >= 0 })
	case predicate.OpLtEq:
		hi = sort.Search(len(idx.entries), func(i int) bool { return idx.compare(idx.entries[i].value, value) > 0 })
	default:
		return nil
	}

	out := roaring.New()
	for _, e := range idx.entries[lo:hi] {
		out.Or(e.rowGroups)
	}
	return out
}

// startsWith matches ordinal (byte-wise) prefixes only; entries are
// sorted ascending so every matching value forms one contiguous run
// starting at the first entry >= prefix.
func (idx *RowGroupIndex) startsWith(prefix string) *roaring.Bitmap {
	lo := sort.Search(len(idx.entries), func(i int) bool {
		s, ok := idx.entries[i].value.(string)
		return ok && s >= prefix
	})

	out := roaring.New()
	for _, e := range idx.entries[lo:] {
		s, ok := e.value.(string)
		if !ok || len(s) < len(prefix) || s[:len(prefix)] != prefix {
			break
		}
		out.Or(e.rowGroups)
	}
	return out
}

type cacheKey struct{ path, column string }

type cacheEntry struct {
	once sync.Once
	idx  *RowGroupIndex
	err  error
}

// Engine owns the per-file-per-column RowGroupIndex cache for a table
// handle's lifetime (spec §8: "at most one call to
// readColumnValuesByRowGroup per file per column").
type Engine struct {
	reader parquetio.Reader

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
}

// NewEngine builds an Engine reading column values through reader.
func NewEngine(reader parquetio.Reader) *Engine {
	return &Engine{reader: reader, cache: make(map[cacheKey]*cacheEntry)}
}

// Index returns (building and caching, if necessary) the RowGroupIndex for
// column in the file backed by src.
func (e *Engine) Index(ctx context.Context, src parquetio.Source, path, column string, def metadata.IndexedDefinition) (*RowGroupIndex, error) {
	key := cacheKey{path: path, column: column}

	e.mu.Lock()
	entry, ok := e.cache[key]
	if !ok {
		entry = &cacheEntry{}
		e.cache[key] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		values, err := e.reader.ReadColumnValuesByRowGroup(src, column)
		if err != nil {
			entry.err = err
			return
		}
		entry.idx = Build(values, def)
	})

	return entry.idx, entry.err
}
