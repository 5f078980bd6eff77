package balance

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/errs"
)

// randomMatrix builds a symmetric matrix with a positive diagonal and roughly
// density of the off-diagonal pairs filled.
func randomMatrix(k int, density float64, seed uint64) *SparseMatrix {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec
	m := &SparseMatrix{K: k}
	for i := range k {
		for j := i; j < k; j++ {
			if i != j && rng.Float64() > density {
				continue
			}
			m.I = append(m.I, int32(i)) //nolint:gosec
			m.J = append(m.J, int32(j)) //nolint:gosec
			m.X = append(m.X, 1+9*rng.Float64())
		}
	}

	return m
}

func denseMul(m *SparseMatrix, v []float64) []float64 {
	y := make([]float64, m.K)
	for p := range m.X {
		i, j, x := m.I[p], m.J[p], m.X[p]
		y[i] += x * v[j]
		if i != j {
			y[j] += x * v[i]
		}
	}

	return y
}

func TestNewSparseMatrix_Validation(t *testing.T) {
	tests := []struct {
		name string
		i, j []int32
		x    []float64
		k    int
		want error
	}{
		{"LengthMismatch", []int32{0, 1}, []int32{1}, []float64{1, 2}, 3, errs.ErrDimensionMismatch},
		{"ValueLengthMismatch", []int32{0}, []int32{1}, nil, 3, errs.ErrDimensionMismatch},
		{"ZeroDimension", nil, nil, nil, 0, errs.ErrInvalidDimension},
		{"NegativeIndex", []int32{-1}, []int32{1}, []float64{1}, 3, errs.ErrIndexOutOfRange},
		{"IndexTooLarge", []int32{0}, []int32{3}, []float64{1}, 3, errs.ErrIndexOutOfRange},
		{"LowerTriangle", []int32{2}, []int32{1}, []float64{1}, 3, errs.ErrLowerTriangle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSparseMatrix(tt.i, tt.j, tt.x, tt.k)
			require.ErrorIs(t, err, tt.want)
		})
	}

	m, err := NewSparseMatrix([]int32{0, 1}, []int32{2, 1}, []float64{1, 2}, 3)
	require.NoError(t, err)
	require.Equal(t, 2, m.NNZ())
}

func TestSparseMatrix_Degree(t *testing.T) {
	m, err := NewSparseMatrix(
		[]int32{0, 0, 1, 2, 2},
		[]int32{0, 1, 3, 2, 3},
		[]float64{1, 2, 3, 0, 5},
		5,
	)
	require.NoError(t, err)

	// (2,2) holds a zero value and does not count.
	require.Equal(t, []int{2, 2, 1, 2, 0}, m.Degree())
}

func TestFromRecords(t *testing.T) {
	records := []contact.Record{
		{BinX: 3, BinY: 1, Count: 2},
		{BinX: 0, BinY: 0, Count: 1.5},
		{BinX: 2, BinY: 4, Count: 1},
	}

	m, err := FromRecords(slices.Values(records), 0)
	require.NoError(t, err)
	require.Equal(t, 5, m.K)
	require.Equal(t, []int32{1, 0, 2}, m.I)
	require.Equal(t, []int32{3, 0, 4}, m.J)
	require.Equal(t, []float64{2, 1.5, 1}, m.X)

	m, err = FromRecords(slices.Values(records), 10)
	require.NoError(t, err)
	require.Equal(t, 10, m.K)

	_, err = FromRecords(slices.Values(records), 3)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	_, err = FromRecords(slices.Values([]contact.Record(nil)), 0)
	require.ErrorIs(t, err, errs.ErrInvalidDimension)
}

func TestUTMVMul(t *testing.T) {
	m := randomMatrix(40, 0.2, 7)
	v := make([]float64, m.K)
	for g := range v {
		v[g] = float64(g%5) + 0.25
	}
	want := denseMul(m, v)

	for _, threads := range []int{1, 2, 3, 8, 1000} {
		y := make([]float64, m.K)
		for g := range y {
			y[g] = -1 // stale content must be overwritten
		}
		require.NoError(t, UTMVMul(m, v, y, threads))
		require.InDeltaSlice(t, want, y, 1e-9, "threads=%d", threads)
	}
}

func TestUTMVMul_Deterministic(t *testing.T) {
	m := randomMatrix(60, 0.3, 11)
	v := make([]float64, m.K)
	for g := range v {
		v[g] = 1 / float64(g+1)
	}

	first := make([]float64, m.K)
	require.NoError(t, UTMVMul(m, v, first, 4))
	for range 5 {
		again := make([]float64, m.K)
		require.NoError(t, UTMVMul(m, v, again, 4))
		require.Equal(t, first, again)
	}
}

func TestUTMVMul_BufferSize(t *testing.T) {
	m := randomMatrix(5, 1, 1)
	err := UTMVMul(m, make([]float64, 4), make([]float64, 5), 1)
	require.ErrorIs(t, err, errs.ErrBufferSize)
}

func TestUTMVMul_Empty(t *testing.T) {
	m := &SparseMatrix{K: 3}
	y := []float64{1, 2, 3}
	require.NoError(t, UTMVMul(m, []float64{1, 1, 1}, y, 4))
	require.Equal(t, []float64{0, 0, 0}, y)
}
