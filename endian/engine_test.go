package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSpillEngine(t *testing.T) {
	require.Equal(t, binary.LittleEndian, GetSpillEngine())
	require.NotEqual(t, binary.BigEndian, GetSpillEngine())
}

func TestInt32RoundTrip(t *testing.T) {
	engine := GetSpillEngine()
	values := []int32{0, 1, -1, 42, math.MaxInt32, math.MinInt32}

	for _, v := range values {
		buf := AppendInt32(engine, nil, v)
		require.Len(t, buf, 4)
		require.Equal(t, v, Int32(engine, buf))
	}
}

func TestInt32_LittleEndianLayout(t *testing.T) {
	buf := AppendInt32(GetSpillEngine(), nil, -2)
	require.Equal(t, []byte{0xFE, 0xFF, 0xFF, 0xFF}, buf)

	buf = AppendInt32(binary.BigEndian, nil, -2)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFE}, buf)
}

func TestFloat32RoundTrip(t *testing.T) {
	engine := GetSpillEngine()
	values := []float32{0, 1.5, -3.25, math.MaxFloat32, math.SmallestNonzeroFloat32}

	for _, v := range values {
		buf := AppendFloat32(engine, nil, v)
		require.Len(t, buf, 4)
		require.Equal(t, v, Float32(engine, buf))
	}

	buf := AppendFloat32(engine, nil, float32(math.NaN()))
	require.True(t, math.IsNaN(float64(Float32(engine, buf))))
}

func TestAppend_PreservesPrefix(t *testing.T) {
	engine := GetSpillEngine()
	buf := []byte{0xAA}
	buf = AppendInt32(engine, buf, 7)
	buf = AppendFloat32(engine, buf, 1)

	require.Len(t, buf, 9)
	require.Equal(t, byte(0xAA), buf[0])
	require.Equal(t, int32(7), Int32(engine, buf[1:]))
	require.Equal(t, float32(1), Float32(engine, buf[5:]))
}
