// Package rowmat implements the Row Materializer (spec §4.10): it packs a
// parquetio.Row (the file's data-column buffers for one physical row)
// together with that file's partition key/value tuple into a single row
// view, giving a Mapper[T] access to every bound field regardless of
// whether it lives in the Parquet file or the directory/Delta partition
// key space. One View is allocated per row, and a data field is found via
// parquetio.Row.Value's linear scan of the row's column names.
package rowmat

import (
	"fmt"
	"strconv"
	"time"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/parquetio"
	"github.com/parqtable/parqtable/internal/xerr"
)

// View is one materialized row: a data-column row plus the partition
// values shared by every row in the same file.
type View struct {
	row        *parquetio.Row
	partitions map[string]string
	bindings   *metadata.Bindings
}

// New builds a View over row, resolving partition-bound fields against
// partitionValues (physical/partition column name → raw string value).
func New(row *parquetio.Row, partitionValues map[string]string, bindings *metadata.Bindings) *View {
	return &View{row: row, partitions: partitionValues, bindings: bindings}
}

// Field resolves the named struct field (per the row type's registered
// bindings) to a typed value, reading from the Parquet row buffer for
// Data-kind fields or parsing the partition string for Partition-kind
// fields.
func (v *View) Field(fieldName string, target parquetio.Kind) (any, error) {
	binding, ok := v.bindings.Fields[fieldName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", xerr.ErrMissingColumn, fieldName)
	}

	if binding.Kind == metadata.Partition {
		raw, ok := v.partitions[binding.ParquetName]
		if !ok {
			if binding.Nullable {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: partition key %s", xerr.ErrMissingColumn, binding.ParquetName)
		}
		return ParsePartitionValue(raw, target)
	}

	val, ok, err := v.row.Value(binding.ParquetName, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		if binding.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", xerr.ErrMissingColumn, binding.ParquetName)
	}
	return val, nil
}

// ParsePartitionValue converts a partition key's raw string
// representation (spec §3: partition values are always strings as
// discovered) into the field's target Kind.
func ParsePartitionValue(raw string, target parquetio.Kind) (any, error) {
	switch target {
	case parquetio.KindString:
		return raw, nil
	case parquetio.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not a bool", xerr.ErrFormat, raw)
		}
		return b, nil
	case parquetio.KindInt32:
		i, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not an int32", xerr.ErrFormat, raw)
		}
		return int32(i), nil
	case parquetio.KindInt64:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not an int64", xerr.ErrFormat, raw)
		}
		return i, nil
	case parquetio.KindFloat32:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not a float32", xerr.ErrFormat, raw)
		}
		return float32(f), nil
	case parquetio.KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not a float64", xerr.ErrFormat, raw)
		}
		return f, nil
	case parquetio.KindDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not a date", xerr.ErrFormat, raw)
		}
		return t, nil
	case parquetio.KindTimestamp:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: partition value %q is not a timestamp", xerr.ErrFormat, raw)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("parquetio: unknown target kind %d", target)
	}
}
