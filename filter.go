package pqtable

import "github.com/parqtable/parqtable/internal/predicate"

// Expr is a node in a filter-predicate tree (spec §4.6), re-exported so
// callers can build and compose filters without importing internal/predicate.
type Expr = predicate.Expr

// FieldRef is a builder handle for one row-type field.
type FieldRef = predicate.FieldRef

// Field starts a predicate builder for the named row-type field, e.g.
// pqtable.Field("Amount").Gt(100).
func Field(name string) *FieldRef { return predicate.Field(name) }

// And conjoins expressions, flattening nil and single-expr cases.
func And(exprs ...Expr) Expr { return predicate.And(exprs...) }

// Or disjoins expressions, same flattening rule as And.
func Or(exprs ...Expr) Expr { return predicate.Or(exprs...) }

// Not negates an expression.
func Not(e Expr) Expr { return predicate.Not(e) }
