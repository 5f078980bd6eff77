package balance

// Result is the outcome of one balancing run.
type Result struct {
	// Scale is the balancing vector; excluded bins are NaN.
	Scale []float64
	// Bad marks excluded bins.
	Bad []bool
	// Degree is the nonzero count per bin.
	Degree []int

	// Iterations counts the iterations since the last escalation.
	Iterations int
	// TotalIterations counts all iterations of the run.
	TotalIterations int
	// Escalations counts exclusion percentile increases.
	Escalations int
	// Restarts counts escalations that reset the scaling vector.
	Restarts int
	// Percentile is the final exclusion percentile.
	Percentile float64

	// BerHistory holds the largest relative scaling change of every iteration.
	BerHistory []float64
	// ErrHistory holds the row-sum residual of every tenth iteration in a segment.
	ErrHistory []float64

	// Residual is the largest |row sum - 1| over surviving bins at the end.
	Residual  float64
	// Converged reports whether the final change and the final residual are
	// within tolerance.
	Converged bool
}

// Excluded returns the number of excluded bins.
func (r *Result) Excluded() int {
	n := 0
	for _, bad := range r.Bad {
		if bad {
			n++
		}
	}

	return n
}
