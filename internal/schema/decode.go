package schema

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DecodeValue decodes a raw statistic (or raw column value) according to
// its physical+logical type (spec §3): UTF-8 for byte arrays annotated as
// String, days-since-1970 for Int32+Date, little-endian ints/floats
// otherwise. The returned value is one of: bool, int64, float64,
// time.Time, or string — always a type comparable with Go's built-in
// operators or time.Time.Compare/Before/After.
func DecodeValue(physical PhysicalType, logical LogicalType, raw []byte) (any, error) {
	switch physical {
	case PhysicalBoolean:
		if len(raw) < 1 {
			return nil, fmt.Errorf("schema: short boolean value")
		}
		return raw[0] != 0, nil

	case PhysicalInt32:
		if len(raw) < 4 {
			return nil, fmt.Errorf("schema: short int32 value")
		}
		v := int32(binary.LittleEndian.Uint32(raw))
		if logical == LogicalDate {
			return epochDay(v), nil
		}
		return int64(v), nil

	case PhysicalInt64:
		if len(raw) < 8 {
			return nil, fmt.Errorf("schema: short int64 value")
		}
		v := int64(binary.LittleEndian.Uint64(raw))
		if logical == LogicalTimestamp {
			return time.UnixMicro(v).UTC(), nil
		}
		return v, nil

	case PhysicalFloat:
		if len(raw) < 4 {
			return nil, fmt.Errorf("schema: short float value")
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil

	case PhysicalDouble:
		if len(raw) < 8 {
			return nil, fmt.Errorf("schema: short double value")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil

	case PhysicalByteArray, PhysicalFixedLenByteArray:
		if logical == LogicalString {
			return string(raw), nil
		}
		return string(raw), nil

	default:
		return nil, fmt.Errorf("schema: cannot decode unknown physical type")
	}
}

func epochDay(days int32) time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(days))
}

// Compare orders two decoded values of the same dynamic type, the way
// sort.Interface comparators do: <0, 0, >0. Supported dynamic types are
// the ones DecodeValue can produce, plus the plain Go numeric/string types
// a caller might supply as a filter literal.
func Compare(a, b any) (int, error) {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("schema: cannot compare bool to %T", b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case int64, int, int32:
		av64, err := asInt64(av)
		if err != nil {
			return 0, err
		}
		bv, err := asInt64(b)
		if err != nil {
			return 0, err
		}
		return cmpInt64(av64, bv), nil
	case float64, float32:
		av64, err := asFloat64(av)
		if err != nil {
			return 0, err
		}
		bv, err := asFloat64(b)
		if err != nil {
			return 0, err
		}
		return cmpFloat64(av64, bv), nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("schema: cannot compare string to %T", b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("schema: cannot compare time.Time to %T", b)
		}
		return av.Compare(bv), nil
	default:
		return 0, fmt.Errorf("schema: unsupported comparable type %T", a)
	}
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("schema: cannot compare int64 to %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("schema: cannot compare float64 to %T", v)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
