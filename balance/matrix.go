package balance

import (
	"fmt"
	"iter"

	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/errs"
)

// SparseMatrix is the upper triangle of a symmetric k x k matrix in
// coordinate form: entry p is (I[p], J[p], X[p]) with I[p] <= J[p].
//
// Duplicate coordinates are allowed and act as their sum in products, but
// each counts separately toward the bin degree.
type SparseMatrix struct {
	I []int32
	J []int32
	X []float64
	K int
}

// NewSparseMatrix validates and wraps coordinate arrays. The slices are not copied.
func NewSparseMatrix(i, j []int32, x []float64, k int) (*SparseMatrix, error) {
	m := &SparseMatrix{I: i, J: j, X: x, K: k}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// FromRecords builds a matrix from a record sequence, swapping lower-triangle
// records into the upper triangle. A k <= 0 sizes the matrix to the largest
// bin index plus one.
func FromRecords(records iter.Seq[contact.Record], k int) (*SparseMatrix, error) {
	m := &SparseMatrix{}
	var maxBin int32 = -1
	for r := range records {
		r = r.Upper()
		m.I = append(m.I, r.BinX)
		m.J = append(m.J, r.BinY)
		m.X = append(m.X, float64(r.Count))
		maxBin = max(maxBin, r.BinY)
	}

	m.K = k
	if k <= 0 {
		m.K = int(maxBin) + 1
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks array lengths, the dimension, bounds and triangle order.
func (m *SparseMatrix) Validate() error {
	if len(m.I) != len(m.J) || len(m.I) != len(m.X) {
		return fmt.Errorf("%w: i=%d j=%d x=%d", errs.ErrDimensionMismatch, len(m.I), len(m.J), len(m.X))
	}
	if m.K < 1 {
		return fmt.Errorf("%w: k=%d", errs.ErrInvalidDimension, m.K)
	}

	for p := range m.I {
		i, j := m.I[p], m.J[p]
		if i < 0 || int(j) >= m.K {
			return fmt.Errorf("%w: entry %d (%d, %d) with k=%d", errs.ErrIndexOutOfRange, p, i, j, m.K)
		}
		if i > j {
			return fmt.Errorf("%w: entry %d (%d, %d)", errs.ErrLowerTriangle, p, i, j)
		}
	}

	return nil
}

// NNZ returns the number of stored entries.
func (m *SparseMatrix) NNZ() int {
	return len(m.X)
}

// Degree counts, per bin, the nonzero entries touching it. Off-diagonal
// entries count for both endpoints, diagonal entries once.
func (m *SparseMatrix) Degree() []int {
	nz := make([]int, m.K)
	for p, x := range m.X {
		if x == 0 {
			continue
		}
		i, j := m.I[p], m.J[p]
		nz[i]++
		if i != j {
			nz[j]++
		}
	}

	return nz
}
