// Package endian provides the byte order engine used by the spill codec.
//
// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so the
// spill writer can append fixed-width fields to pooled buffers without
// temporary allocations, and the reader can decode them in place.
//
// Spill files are always little-endian:
//
//	engine := endian.GetSpillEngine()
//	buf = endian.AppendInt32(engine, buf, binX)
//	buf = endian.AppendFloat32(engine, buf, count)
//
// All functions in this package are safe for concurrent use; the engines are
// immutable and stateless.
package endian

import (
	"encoding/binary"
	"math"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary.
//
// It is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetSpillEngine returns the engine mandated by the spill file format.
func GetSpillEngine() EndianEngine {
	return binary.LittleEndian
}

// AppendInt32 appends a two's complement int32.
func AppendInt32(engine EndianEngine, b []byte, v int32) []byte {
	return engine.AppendUint32(b, uint32(v)) //nolint:gosec
}

// AppendFloat32 appends the IEEE-754 bits of a float32.
func AppendFloat32(engine EndianEngine, b []byte, v float32) []byte {
	return engine.AppendUint32(b, math.Float32bits(v))
}

// Int32 decodes a two's complement int32 from the first 4 bytes of b.
func Int32(engine EndianEngine, b []byte) int32 {
	return int32(engine.Uint32(b)) //nolint:gosec
}

// Float32 decodes an IEEE-754 float32 from the first 4 bytes of b.
func Float32(engine EndianEngine, b []byte) float32 {
	return math.Float32frombits(engine.Uint32(b))
}
