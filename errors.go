package pqtable

import "github.com/parqtable/parqtable/internal/xerr"

// Sentinel errors surfaced by the engine (spec §7). Wrap with
// fmt.Errorf("...: %w", Err...) and unwrap with errors.Is/errors.As. These
// are aliases of internal/xerr's values so that internal packages can
// return them directly without importing this root package.
var (
	// ErrNotFound is returned when a partition, file, or blob is missing.
	ErrNotFound = xerr.ErrNotFound

	// ErrMissingColumn is returned when a requested column is absent from a
	// file's physical schema.
	ErrMissingColumn = xerr.ErrMissingColumn

	// ErrSchemaMismatch is returned when type coercion fails for a non-null
	// value, or a non-nullable indexed column contains a null.
	ErrSchemaMismatch = xerr.ErrSchemaMismatch

	// ErrFormat is returned when a partition value or Delta-log entry cannot
	// be parsed into its declared type.
	ErrFormat = xerr.ErrFormat

	// ErrOverflow is returned when numeric coercion is out of range.
	ErrOverflow = xerr.ErrOverflow

	// ErrTransport is returned for network/IO failures from the underlying
	// blob store, including timeouts.
	ErrTransport = xerr.ErrTransport

	// ErrNoMetadata is returned when a row type was never registered.
	ErrNoMetadata = xerr.ErrNoMetadata

	// ErrCancelled is surfaced internally when iteration is dropped mid-flight.
	ErrCancelled = xerr.ErrCancelled
)
