package parquetio

import "time"

// KindOf infers the target Kind that would decode a Go literal's dynamic
// type, used by the residual-predicate evaluator to know which Kind to
// request from a row view when all it has is a filter literal (spec
// §4.9's row-by-row residual check).
func KindOf(v any) (Kind, bool) {
	switch v.(type) {
	case bool:
		return KindBool, true
	case int32:
		return KindInt32, true
	case int, int64:
		return KindInt64, true
	case float32:
		return KindFloat32, true
	case float64:
		return KindFloat64, true
	case string:
		return KindString, true
	case time.Time:
		return KindTimestamp, true
	default:
		return KindString, false
	}
}
