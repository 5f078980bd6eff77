package balance

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/pool"
)

// UTMVMul computes y = M·v for the symmetric matrix stored in m.
//
// The nonzeros are split into threads contiguous chunks. Each worker
// accumulates into a private buffer and the buffers are summed into y in
// worker order once all workers finish.
func UTMVMul(m *SparseMatrix, v, y []float64, threads int) error {
	if len(v) != m.K || len(y) != m.K {
		return fmt.Errorf("%w: k=%d, len(v)=%d, len(y)=%d", errs.ErrBufferSize, m.K, len(v), len(y))
	}

	mul := newMultiplier(m, threads)
	defer mul.release()
	mul.mul(v, y)

	return nil
}

// multiplier keeps the worker partition and private buffers of one balancing
// run so repeated products do not allocate.
type multiplier struct {
	m       *SparseMatrix
	bounds  []int // worker w owns entries [bounds[w], bounds[w+1])
	buffers [][]float64
	cleanup []func()
}

func newMultiplier(m *SparseMatrix, threads int) *multiplier {
	nnz := m.NNZ()
	workers := max(1, min(threads, nnz))

	mul := &multiplier{
		m:      m,
		bounds: make([]int, workers+1),
	}

	chunk := (nnz + workers - 1) / workers
	for w := 1; w <= workers; w++ {
		mul.bounds[w] = min(w*chunk, nnz)
	}

	// A single worker accumulates straight into the output.
	if workers > 1 {
		mul.buffers = make([][]float64, workers)
		mul.cleanup = make([]func(), workers)
		for w := range workers {
			mul.buffers[w], mul.cleanup[w] = pool.GetFloat64Slice(m.K)
		}
	}

	return mul
}

func (mul *multiplier) workers() int {
	return len(mul.bounds) - 1
}

func (mul *multiplier) mul(v, y []float64) {
	if mul.workers() == 1 {
		clear(y)
		mul.accumulate(0, v, y)

		return
	}

	var eg errgroup.Group
	for w := range mul.workers() {
		eg.Go(func() error {
			buf := mul.buffers[w]
			clear(buf)
			mul.accumulate(w, v, buf)

			return nil
		})
	}
	_ = eg.Wait()

	copy(y, mul.buffers[0])
	for _, buf := range mul.buffers[1:] {
		for idx, val := range buf {
			y[idx] += val
		}
	}
}

func (mul *multiplier) accumulate(w int, v, y []float64) {
	m := mul.m
	for p := mul.bounds[w]; p < mul.bounds[w+1]; p++ {
		i, j, x := m.I[p], m.J[p], m.X[p]
		y[i] += x * v[j]
		if i != j {
			y[j] += x * v[i]
		}
	}
}

func (mul *multiplier) release() {
	for _, fn := range mul.cleanup {
		fn()
	}
	mul.buffers = nil
	mul.cleanup = nil
}
