package parquetio

import (
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/parqtable/parqtable/internal/schema"
	"github.com/parqtable/parqtable/internal/xerr"
)

// Kind identifies the Go-level target type a column's physical value is
// coerced into (spec §4.3: "physical→logical→target-type conversion").
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindDate
	KindTimestamp
)

// Coerce converts a raw parquet.Value of the given physical type into the
// requested target Kind, applying the widening/narrowing and
// string-parsing rules of spec §4.3. Narrowing conversions that would
// lose information return xerr.ErrOverflow; values that can't be parsed
// into the target type return xerr.ErrFormat.
func Coerce(v parquet.Value, physical parquet.Type, target Kind) (any, error) {
	switch target {
	case KindBool:
		return coerceBool(v)
	case KindInt32:
		return coerceInt32(v)
	case KindInt64:
		return coerceInt64(v)
	case KindFloat32:
		return coerceFloat32(v)
	case KindFloat64:
		return coerceFloat64(v)
	case KindString:
		return coerceString(v)
	case KindDate:
		return coerceDate(v)
	case KindTimestamp:
		return coerceTimestamp(v)
	default:
		return nil, fmt.Errorf("parquetio: unknown target kind %d", target)
	}
}

func coerceBool(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		b, err := strconv.ParseBool(string(v.ByteArray()))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", xerr.ErrFormat, v.ByteArray())
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to bool", xerr.ErrFormat, v.Kind())
	}
}

func coerceInt64(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32()), nil
	case parquet.Int64:
		return v.Int64(), nil
	case parquet.Float:
		f := v.Float()
		i := int64(f)
		if float32(i) != f {
			return nil, fmt.Errorf("%w: float %v does not fit int64 without loss", xerr.ErrOverflow, f)
		}
		return i, nil
	case parquet.Double:
		d := v.Double()
		i := int64(d)
		if float64(i) != d {
			return nil, fmt.Errorf("%w: double %v does not fit int64 without loss", xerr.ErrOverflow, d)
		}
		return i, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		i, err := strconv.ParseInt(string(v.ByteArray()), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an int64", xerr.ErrFormat, v.ByteArray())
		}
		return i, nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to int64", xerr.ErrFormat, v.Kind())
	}
}

func coerceInt32(v parquet.Value) (any, error) {
	i64, err := coerceInt64(v)
	if err != nil {
		return nil, err
	}
	i := i64.(int64)
	if i < -(1<<31) || i > (1<<31)-1 {
		return nil, fmt.Errorf("%w: %d does not fit int32", xerr.ErrOverflow, i)
	}
	return int32(i), nil
}

func coerceFloat64(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.Int32:
		return float64(v.Int32()), nil
	case parquet.Int64:
		return float64(v.Int64()), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Double:
		return v.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		f, err := strconv.ParseFloat(string(v.ByteArray()), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float64", xerr.ErrFormat, v.ByteArray())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to float64", xerr.ErrFormat, v.Kind())
	}
}

func coerceFloat32(v parquet.Value) (any, error) {
	f64, err := coerceFloat64(v)
	if err != nil {
		return nil, err
	}
	f := f64.(float64)
	f32 := float32(f)
	if float64(f32) != f {
		return nil, fmt.Errorf("%w: %v does not fit float32 without loss", xerr.ErrOverflow, f)
	}
	return f32, nil
}

func coerceString(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray()), nil
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean()), nil
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10), nil
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10), nil
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32), nil
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to string", xerr.ErrFormat, v.Kind())
	}
}

func coerceDate(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.Int32:
		return epochDay(v.Int32()), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		t, err := time.Parse("2006-01-02", string(v.ByteArray()))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a date", xerr.ErrFormat, v.ByteArray())
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to date", xerr.ErrFormat, v.Kind())
	}
}

func coerceTimestamp(v parquet.Value) (any, error) {
	switch v.Kind() {
	case parquet.Int64:
		return time.UnixMicro(v.Int64()).UTC(), nil
	case parquet.Int32:
		return epochDay(v.Int32()), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		t, err := time.Parse(time.RFC3339Nano, string(v.ByteArray()))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a timestamp", xerr.ErrFormat, v.ByteArray())
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %s to timestamp", xerr.ErrFormat, v.Kind())
	}
}

func epochDay(days int32) time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(days))
}

// decodeValueFromParquet decodes a parquet.Value into its natural Go
// representation given the column's physical+logical type, the same
// mapping schema.DecodeValue applies to raw statistic bytes — used by
// ReadColumnValuesByRowGroup so indexed-column values and pruning
// statistics compare equal (spec §4.8).
func decodeValueFromParquet(v parquet.Value, physical schema.PhysicalType, logical schema.LogicalType) (any, error) {
	switch physical {
	case schema.PhysicalBoolean:
		return v.Boolean(), nil
	case schema.PhysicalInt32:
		if logical == schema.LogicalDate {
			return epochDay(v.Int32()), nil
		}
		return int64(v.Int32()), nil
	case schema.PhysicalInt64:
		if logical == schema.LogicalTimestamp {
			return time.UnixMicro(v.Int64()).UTC(), nil
		}
		return v.Int64(), nil
	case schema.PhysicalFloat:
		return float64(v.Float()), nil
	case schema.PhysicalDouble:
		return v.Double(), nil
	case schema.PhysicalByteArray, schema.PhysicalFixedLenByteArray:
		return string(v.ByteArray()), nil
	default:
		return nil, fmt.Errorf("parquetio: cannot decode unknown physical type")
	}
}
