package balance

import (
	"github.com/sirupsen/logrus"
)

// Balance is the buffer-oriented form of Balancer.Balance.
//
// The scaling vector is written into b, which must have length k, and the
// per-iteration scaling changes into report, truncated to len(report). A
// report of length totIter holds the whole history. The return value is the
// number of iterations since the last escalation, or -1 when the inputs are
// malformed, in which case b is left untouched.
func Balance(
	i, j []int32, x []float64, k int,
	b, report []float64,
	totIter int, tol, pppp float64, maxiter int, del, dp float64, threads int,
) int {
	m, err := NewSparseMatrix(i, j, x, k)
	if err != nil {
		logrus.WithError(err).Error("balance: invalid matrix")
		return -1
	}

	bal, err := NewBalancer(
		WithTolerance(tol),
		WithPercentile(pppp),
		WithMaxIterations(maxiter),
		WithTotalIterations(totIter),
		WithStallDelta(del),
		WithEscalationStep(dp),
		WithThreads(threads),
		WithScaleBuffer(b),
	)
	if err != nil {
		logrus.WithError(err).Error("balance: invalid parameters")
		return -1
	}

	res, err := bal.Balance(m)
	if err != nil {
		logrus.WithError(err).Error("balance: invalid input")
		return -1
	}
	copy(report, res.BerHistory)

	return res.Iterations
}
