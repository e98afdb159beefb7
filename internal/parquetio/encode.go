package parquetio

import (
	"encoding/binary"
	"math"
)

// int32LE/int64LE little-endian-encode raw numeric statistic values
// (spec §3: "little-endian ints/floats otherwise").
func int32LE(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func int64LE(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func int32FromFloat(f float32) int32 {
	return int32(math.Float32bits(f))
}

func int64FromDouble(d float64) int64 {
	return int64(math.Float64bits(d))
}
