package enumerate

import (
	"strings"

	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/predicate"
	"github.com/parqtable/parqtable/internal/rowmat"
	"github.com/parqtable/parqtable/internal/schema"
)

// evalExpr evaluates a residual predicate tree against one materialized
// row, the row-by-row fallback for whatever analyze.Analyze couldn't push
// down into partition/range/equality/indexed pruning (spec §4.9 step 8).
func evalExpr(e predicate.Expr, view *rowmat.View) (bool, error) {
	switch n := e.(type) {
	case *predicate.Comparison:
		return evalComparison(n, view)
	case *predicate.AndExpr:
		for _, sub := range n.Exprs {
			ok, err := evalExpr(sub, view)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case *predicate.OrExpr:
		for _, sub := range n.Exprs {
			ok, err := evalExpr(sub, view)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *predicate.NotExpr:
		ok, err := evalExpr(n.Expr, view)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return true, nil
	}
}

func evalComparison(c *predicate.Comparison, view *rowmat.View) (bool, error) {
	kind, ok := parquetio.KindOf(c.Value)
	if !ok {
		return true, nil
	}

	val, err := view.Field(c.Field, kind)
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}

	if c.Op == predicate.OpStartsWith {
		s, ok1 := val.(string)
		prefix, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.HasPrefix(s, prefix), nil
	}

	cmp, err := schema.Compare(val, c.Value)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case predicate.OpEq:
		return cmp == 0, nil
	case predicate.OpNotEq:
		return cmp != 0, nil
	case predicate.OpLt:
		return cmp < 0, nil
	case predicate.OpLtEq:
		return cmp <= 0, nil
	case predicate.OpGt:
		return cmp > 0, nil
	case predicate.OpGtEq:
		return cmp >= 0, nil
	default:
		return true, nil
	}
}
