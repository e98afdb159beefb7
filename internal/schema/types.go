// Package schema holds the physical/logical Parquet type vocabulary shared
// between internal/parquetio (schema + column reads) and internal/discovery
// (statistics decoding), so the two packages agree on type identity
// without importing one another.
package schema

// PhysicalType mirrors the Parquet physical types the engine needs to
// decode and coerce (spec §3, §4.3).
type PhysicalType int

const (
	PhysicalUnknown PhysicalType = iota
	PhysicalBoolean
	PhysicalInt32
	PhysicalInt64
	PhysicalFloat
	PhysicalDouble
	PhysicalByteArray
	PhysicalFixedLenByteArray
)

func (p PhysicalType) String() string {
	switch p {
	case PhysicalBoolean:
		return "BOOLEAN"
	case PhysicalInt32:
		return "INT32"
	case PhysicalInt64:
		return "INT64"
	case PhysicalFloat:
		return "FLOAT"
	case PhysicalDouble:
		return "DOUBLE"
	case PhysicalByteArray:
		return "BYTE_ARRAY"
	case PhysicalFixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// LogicalType mirrors the Parquet logical-type annotations relevant to
// statistics decoding and coercion (spec §3).
type LogicalType int

const (
	LogicalNone LogicalType = iota
	LogicalString
	LogicalDate
	LogicalTimestamp
)

// ColumnMeta describes one column of a Parquet file's physical schema
// (spec §4.3).
type ColumnMeta struct {
	Path         string
	PhysicalType PhysicalType
	LogicalType  LogicalType
	Nullable     bool
}

// ColumnStatistics holds a row group's raw, undecoded min/max bytes for one
// column, plus null/distinct counts (spec §3). Decoding is deferred to
// comparison time and is physical+logical-type directed.
type ColumnStatistics struct {
	PhysicalType  PhysicalType
	LogicalType   LogicalType
	MinRaw        []byte
	MaxRaw        []byte
	HasMinRaw     bool
	HasMaxRaw     bool
	NullCount     *int64
	DistinctCount *int64
}

// HasMinMax reports spec §3's invariant: HasMinMax ⇔ minRaw.isSome ∧ maxRaw.isSome.
func (c ColumnStatistics) HasMinMax() bool {
	return c.HasMinRaw && c.HasMaxRaw
}
