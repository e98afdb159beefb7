// Package xerr holds the engine's sentinel error values (spec §7). It
// imports nothing from this module, so every internal package can return
// these values, and the root package can re-export them, without creating
// an import cycle back through the root package.
package xerr

import "errors"

var (
	ErrNotFound       = errors.New("pqtable: not found")
	ErrMissingColumn  = errors.New("pqtable: missing column")
	ErrSchemaMismatch = errors.New("pqtable: schema mismatch")
	ErrFormat         = errors.New("pqtable: format error")
	ErrOverflow       = errors.New("pqtable: overflow")
	ErrTransport      = errors.New("pqtable: transport error")
	ErrNoMetadata     = errors.New("pqtable: row type has no registered metadata")
	ErrCancelled      = errors.New("pqtable: cancelled")
)
