// Package predicate implements the structured filter-expression tree (spec
// §4.6): a typed builder API plus an Accept/Visitor walk, generalizing the
// teacher's (frostdb's) query/logicalplan.Expr/Visitor shape from Arrow
// column expressions to the row-type field predicates this engine prunes
// and filters against.
package predicate

import "fmt"

// Op identifies a comparison's operator.
type Op int

const (
	OpUnknown Op = iota
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpStartsWith
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpStartsWith:
		return "startswith"
	default:
		return "unknown"
	}
}

// Negate returns the operator's logical negation, where one exists (spec
// §4.6's contradiction/tightening logic walks ranges in terms of these).
func (o Op) Negate() (Op, bool) {
	switch o {
	case OpEq:
		return OpNotEq, true
	case OpNotEq:
		return OpEq, true
	case OpLt:
		return OpGtEq, true
	case OpLtEq:
		return OpGt, true
	case OpGt:
		return OpLtEq, true
	case OpGtEq:
		return OpLt, true
	default:
		return OpUnknown, false
	}
}

// Visitor walks an Expr tree; PreVisit/PostVisit returning false stops the
// walk at that branch, same contract as the teacher's logicalplan.Visitor.
type Visitor interface {
	PreVisit(Expr) bool
	PostVisit(Expr) bool
}

// Expr is a node in a filter-predicate tree.
type Expr interface {
	Accept(Visitor) bool
	// FieldsUsed lists the row-type field names this node (and its
	// children) reference, used by the Query Analyzer to classify
	// predicates as partition/indexed/residual (spec §4.6).
	FieldsUsed() []string
	String() string
}

// Comparison tests one field against a literal value.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

func (c *Comparison) Accept(v Visitor) bool {
	if !v.PreVisit(c) {
		return false
	}
	return v.PostVisit(c)
}

func (c *Comparison) FieldsUsed() []string { return []string{c.Field} }

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// FieldRef is a builder handle for one row-type field, the predicate
// package's equivalent of logicalplan.Col.
type FieldRef struct {
	name string
}

// Field starts a predicate builder for the named row-type field.
func Field(name string) *FieldRef {
	return &FieldRef{name: name}
}

func (f *FieldRef) Eq(v any) *Comparison          { return &Comparison{Field: f.name, Op: OpEq, Value: v} }
func (f *FieldRef) NotEq(v any) *Comparison       { return &Comparison{Field: f.name, Op: OpNotEq, Value: v} }
func (f *FieldRef) Lt(v any) *Comparison          { return &Comparison{Field: f.name, Op: OpLt, Value: v} }
func (f *FieldRef) LtEq(v any) *Comparison        { return &Comparison{Field: f.name, Op: OpLtEq, Value: v} }
func (f *FieldRef) Gt(v any) *Comparison          { return &Comparison{Field: f.name, Op: OpGt, Value: v} }
func (f *FieldRef) GtEq(v any) *Comparison        { return &Comparison{Field: f.name, Op: OpGtEq, Value: v} }
func (f *FieldRef) StartsWith(prefix string) *Comparison {
	return &Comparison{Field: f.name, Op: OpStartsWith, Value: prefix}
}

// AndExpr is a conjunction of sub-expressions.
type AndExpr struct{ Exprs []Expr }

// And builds a conjunction, flattening nil and single-expr degenerate
// cases the same way logicalplan.And/computeBinaryExpr does.
func And(exprs ...Expr) Expr {
	return combine(exprs, func(e []Expr) Expr { return &AndExpr{Exprs: e} })
}

func (a *AndExpr) Accept(v Visitor) bool {
	if !v.PreVisit(a) {
		return false
	}
	for _, e := range a.Exprs {
		if !e.Accept(v) {
			return false
		}
	}
	return v.PostVisit(a)
}

func (a *AndExpr) FieldsUsed() []string { return fieldsUsed(a.Exprs) }
func (a *AndExpr) String() string       { return joinExprs(a.Exprs, " AND ") }

// OrExpr is a disjunction of sub-expressions.
type OrExpr struct{ Exprs []Expr }

// Or builds a disjunction, same flattening rule as And.
func Or(exprs ...Expr) Expr {
	return combine(exprs, func(e []Expr) Expr { return &OrExpr{Exprs: e} })
}

func (o *OrExpr) Accept(v Visitor) bool {
	if !v.PreVisit(o) {
		return false
	}
	for _, e := range o.Exprs {
		if !e.Accept(v) {
			return false
		}
	}
	return v.PostVisit(o)
}

func (o *OrExpr) FieldsUsed() []string { return fieldsUsed(o.Exprs) }
func (o *OrExpr) String() string       { return joinExprs(o.Exprs, " OR ") }

// NotExpr negates a sub-expression.
type NotExpr struct{ Expr Expr }

func Not(e Expr) *NotExpr { return &NotExpr{Expr: e} }

func (n *NotExpr) Accept(v Visitor) bool {
	if !v.PreVisit(n) {
		return false
	}
	if !n.Expr.Accept(v) {
		return false
	}
	return v.PostVisit(n)
}

func (n *NotExpr) FieldsUsed() []string { return n.Expr.FieldsUsed() }
func (n *NotExpr) String() string       { return "NOT (" + n.Expr.String() + ")" }

func combine(exprs []Expr, build func([]Expr) Expr) Expr {
	nonNil := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return build(nonNil)
	}
}

func fieldsUsed(exprs []Expr) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range exprs {
		for _, f := range e.FieldsUsed() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func joinExprs(exprs []Expr, sep string) string {
	s := ""
	for i, e := range exprs {
		if i > 0 {
			s += sep
		}
		s += e.String()
	}
	return s
}

// Walk collects every Comparison leaf reachable from root, in
// left-to-right order, ignoring the boolean structure connecting them —
// the flattened view the Query Analyzer classifies one predicate at a
// time (spec §4.6).
func Walk(root Expr) []*Comparison {
	var out []*Comparison
	root.Accept(collector{out: &out})
	return out
}

type collector struct {
	out *[]*Comparison
}

func (c collector) PreVisit(e Expr) bool {
	if cmp, ok := e.(*Comparison); ok {
		*c.out = append(*c.out, cmp)
	}
	return true
}

func (c collector) PostVisit(Expr) bool { return true }
