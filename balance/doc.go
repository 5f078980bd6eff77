// Package balance computes matrix balancing vectors for symmetric contact matrices.
//
// A SparseMatrix stores the upper triangle of a symmetric k x k matrix in
// coordinate form. The Balancer finds a scaling vector b such that, for every
// bin that was not excluded, the row sums of diag(b)·M·diag(b) are close to 1.
//
// Bins with too few nonzero entries cannot be scaled reliably and are
// excluded up front. When convergence stalls the exclusion percentile is
// raised step by step, optionally restarting from the initial row sums, until
// the run converges or a ceiling is reached. Excluded bins are NaN in the
// result; numerical degeneracy is never reported as an error.
//
// Basic usage:
//
//	m, err := balance.NewSparseMatrix(i, j, x, k)
//	if err != nil {
//		return err
//	}
//
//	balancer, err := balance.NewBalancer(
//		balance.WithTolerance(1e-4),
//		balance.WithThreads(runtime.NumCPU()),
//	)
//	if err != nil {
//		return err
//	}
//
//	result, err := balancer.Balance(m)
//
// The dominant cost is the symmetric matrix-vector product UTMVMul, which
// splits the nonzeros into contiguous chunks across workers. Worker buffers
// are reduced in a fixed order, so results are bit-identical for identical
// inputs and thread counts.
package balance
