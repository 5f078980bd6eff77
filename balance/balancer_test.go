package balance

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/hicnorm/cutoff"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/metrics"
)

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestBalancer(t *testing.T, opts ...Option) *Balancer {
	t.Helper()
	bal, err := NewBalancer(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)

	return bal
}

// completeMatrix connects every pair of k bins once, diagonal included.
func completeMatrix(k int) *SparseMatrix {
	m := &SparseMatrix{K: k}
	for i := range k {
		for j := i; j < k; j++ {
			m.I = append(m.I, int32(i)) //nolint:gosec
			m.J = append(m.J, int32(j)) //nolint:gosec
			m.X = append(m.X, 1)
		}
	}

	return m
}

func rowSumResidual(m *SparseMatrix, res *Result) float64 {
	b := make([]float64, m.K)
	for g, v := range res.Scale {
		if !res.Bad[g] {
			b[g] = v
		}
	}
	y := denseMul(m, b)

	worst := 0.0
	for g := range y {
		if res.Bad[g] {
			continue
		}
		worst = max(worst, math.Abs(y[g]*b[g]-1))
	}

	return worst
}

func requireNaNExactlyWhereBad(t *testing.T, res *Result) {
	t.Helper()
	for g, v := range res.Scale {
		if res.Bad[g] {
			require.True(t, math.IsNaN(v), "bin %d is excluded but scaled to %g", g, v)
		} else {
			require.False(t, math.IsNaN(v), "bin %d survives but is NaN", g)
			require.Greater(t, v, 0.0)
		}
	}
}

// ==============================================================================
// Scenarios
// ==============================================================================

func TestBalance_UniformMatrix(t *testing.T) {
	m := completeMatrix(4)
	bal := newTestBalancer(t,
		WithTolerance(1e-3),
		WithPercentile(0),
		WithMaxIterations(100),
		WithTotalIterations(1000),
	)

	res, err := bal.Balance(m)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Zero(t, res.Excluded())
	require.Zero(t, res.Escalations)

	for _, v := range res.Scale {
		require.InDelta(t, res.Scale[0], v, 1e-3)
	}
	require.InDelta(t, 0.5, res.Scale[0], 1e-3) // row sums of 4
	require.LessOrEqual(t, res.Residual, 5e-3)
}

func TestBalance_EmptyBin(t *testing.T) {
	m := completeMatrix(4)
	m.K = 5 // bin 4 has no entries

	for _, tol := range []float64{1e-2, 1e-4, 1e-6} {
		bal := newTestBalancer(t, WithTolerance(tol), WithPercentile(0))
		res, err := bal.Balance(m)
		require.NoError(t, err)

		require.True(t, res.Bad[4])
		require.True(t, math.IsNaN(res.Scale[4]))
		require.Zero(t, res.Degree[4])
		requireNaNExactlyWhereBad(t, res)
	}
}

func TestBalance_NoNonzeros(t *testing.T) {
	m := &SparseMatrix{K: 3}
	res, err := newTestBalancer(t).Balance(m)
	require.NoError(t, err)

	require.Equal(t, 3, res.Excluded())
	for _, v := range res.Scale {
		require.True(t, math.IsNaN(v))
	}
	require.Zero(t, res.TotalIterations)
	require.False(t, res.Converged)
}

// ==============================================================================
// Properties
// ==============================================================================

func TestBalance_ConvergesOnRandomMatrix(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		m := randomMatrix(80, 0.15, seed)
		tol := 1e-4

		res, err := newTestBalancer(t, WithTolerance(tol), WithThreads(3)).Balance(m)
		require.NoError(t, err)
		require.True(t, res.Converged, "seed %d", seed)

		requireNaNExactlyWhereBad(t, res)
		require.LessOrEqual(t, rowSumResidual(m, res), 5*tol+1e-12)
		require.InDelta(t, rowSumResidual(m, res), res.Residual, 1e-9)
		require.Len(t, res.BerHistory, res.TotalIterations)
	}
}

func TestBalance_ExclusionNeverShrinks(t *testing.T) {
	m := randomMatrix(60, 0.1, 5)
	pppp := 0.05

	res, err := newTestBalancer(t, WithPercentile(pppp)).Balance(m)
	require.NoError(t, err)

	// Bins excluded by the initial threshold must still be excluded at the end.
	r := newRun(newTestBalancer(t, WithPercentile(pppp)), m, make([]float64, m.K))
	defer r.release()
	require.True(t, r.setup())

	for g, bad := range r.bad {
		if bad {
			require.True(t, res.Bad[g], "bin %d re-admitted", g)
		}
	}
	require.GreaterOrEqual(t, res.Percentile, pppp)
}

func TestBalance_Deterministic(t *testing.T) {
	m := randomMatrix(120, 0.1, 9)

	bits := func(v []float64) []uint64 {
		out := make([]uint64, len(v))
		for g, f := range v {
			out[g] = math.Float64bits(f)
		}

		return out
	}

	first, err := newTestBalancer(t, WithThreads(4)).Balance(m)
	require.NoError(t, err)
	for range 3 {
		again, err := newTestBalancer(t, WithThreads(4)).Balance(m)
		require.NoError(t, err)
		require.Equal(t, bits(first.Scale), bits(again.Scale))
		require.Equal(t, first.TotalIterations, again.TotalIterations)
	}
}

func TestBalance_ThreadCountsAgree(t *testing.T) {
	m := randomMatrix(100, 0.1, 13)

	single, err := newTestBalancer(t, WithThreads(1)).Balance(m)
	require.NoError(t, err)
	multi, err := newTestBalancer(t, WithThreads(6)).Balance(m)
	require.NoError(t, err)

	require.Equal(t, single.Bad, multi.Bad)
	for g := range single.Scale {
		if single.Bad[g] {
			continue
		}
		require.InEpsilon(t, single.Scale[g], multi.Scale[g], 1e-4)
	}
}

// A path 0-1-2 has no balancing: rows 0 and 2 sum to 1 only if row 1 sums to 2.
func TestBalance_UnbalanceableMatrixTerminates(t *testing.T) {
	m, err := NewSparseMatrix([]int32{0, 1}, []int32{1, 2}, []float64{1, 1}, 3)
	require.NoError(t, err)

	escalationsBefore := testutil.ToFloat64(metrics.BalanceEscalations)

	res, err := newTestBalancer(t, WithTotalIterations(3000)).Balance(m)
	require.NoError(t, err)
	require.False(t, res.Converged)
	require.Positive(t, res.Escalations)
	require.LessOrEqual(t, res.TotalIterations, 3000)
	require.LessOrEqual(t, res.Percentile, PercentileCeiling)
	requireNaNExactlyWhereBad(t, res)

	assert.InDelta(t, float64(res.Escalations), testutil.ToFloat64(metrics.BalanceEscalations)-escalationsBefore, 0)
}

func TestBalance_TotalIterationCap(t *testing.T) {
	m, err := NewSparseMatrix([]int32{0, 1}, []int32{1, 2}, []float64{1, 1}, 3)
	require.NoError(t, err)

	res, err := newTestBalancer(t, WithTotalIterations(7)).Balance(m)
	require.NoError(t, err)
	require.Equal(t, 7, res.TotalIterations)
	require.False(t, res.Converged)
}

func TestBalance_CutoffTable(t *testing.T) {
	// Bins 0..5 form a clique; bin 6 touches only bin 0.
	m := completeMatrix(6)
	m.K = 7
	m.I = append(m.I, 0)
	m.J = append(m.J, 6)
	m.X = append(m.X, 1)

	res, err := newTestBalancer(t, WithPercentile(0), WithCutoffTable(cutoff.Table{3})).Balance(m)
	require.NoError(t, err)
	require.Equal(t, 1, res.Excluded())
	require.True(t, res.Bad[6])
	requireNaNExactlyWhereBad(t, res)
}

func TestBalance_ScaleBuffer(t *testing.T) {
	m := completeMatrix(4)
	buf := make([]float64, 4)

	res, err := newTestBalancer(t, WithScaleBuffer(buf)).Balance(m)
	require.NoError(t, err)
	require.Equal(t, buf, res.Scale)
	require.InDelta(t, 0.5, buf[0], 1e-3)

	_, err = newTestBalancer(t, WithScaleBuffer(make([]float64, 3))).Balance(m)
	require.ErrorIs(t, err, errs.ErrBufferSize)
}

func TestBalance_InvalidInput(t *testing.T) {
	bal := newTestBalancer(t)

	_, err := bal.Balance(nil)
	require.ErrorIs(t, err, errs.ErrInvalidDimension)

	_, err = bal.Balance(&SparseMatrix{I: []int32{1}, J: []int32{0}, X: []float64{1}, K: 2})
	require.ErrorIs(t, err, errs.ErrLowerTriangle)
}

func TestNewBalancer_InvalidOptions(t *testing.T) {
	opts := map[string]Option{
		"Tolerance":       WithTolerance(0),
		"PercentileLow":   WithPercentile(-0.1),
		"PercentileHigh":  WithPercentile(0.5),
		"MaxIterations":   WithMaxIterations(0),
		"TotalIterations": WithTotalIterations(-1),
		"StallDelta":      WithStallDelta(math.NaN()),
		"EscalationStep":  WithEscalationStep(0),
		"Threads":         WithThreads(0),
	}

	for name, opt := range opts {
		t.Run(name, func(t *testing.T) {
			_, err := NewBalancer(opt)
			require.ErrorIs(t, err, errs.ErrInvalidParameter)
		})
	}
}

// ==============================================================================
// Escalation internals
// ==============================================================================

func TestRun_EscalateRestartsWhenWorse(t *testing.T) {
	m := randomMatrix(30, 0.2, 21)
	bal := newTestBalancer(t, WithPercentile(0))
	r := newRun(bal, m, make([]float64, m.K))
	defer r.release()
	require.True(t, r.setup())

	for range 8 {
		r.step()
	}
	r.berHist[len(r.berHist)-1] = r.berHist[len(r.berHist)-6] + 1

	require.True(t, r.escalate())
	require.Equal(t, 1, r.escalations)
	require.Equal(t, 1, r.restarts)
	require.Zero(t, r.iter)
	require.InDelta(t, DefaultEscalationStep, r.pppp, 1e-15)
	require.Greater(t, r.ber, bal.tol)
}

func TestRun_EscalateContinuesWhenBetter(t *testing.T) {
	m := randomMatrix(30, 0.2, 22)
	bal := newTestBalancer(t, WithPercentile(0))
	r := newRun(bal, m, make([]float64, m.K))
	defer r.release()
	require.True(t, r.setup())

	for range 8 {
		r.step()
	}
	n := len(r.berHist)
	r.berHist[n-1] = r.berHist[n-6] / 2
	before := append([]float64(nil), r.b...)

	require.True(t, r.escalate())
	require.Zero(t, r.restarts)
	for g := range r.b {
		require.InDelta(t, before[g]*r.survive[g], r.b[g], 0)
	}
}

func TestRun_EscalateStopsAtCeiling(t *testing.T) {
	m := randomMatrix(10, 0.5, 3)
	r := newRun(newTestBalancer(t, WithPercentile(PercentileCeiling)), m, make([]float64, m.K))
	defer r.release()
	require.True(t, r.setup())

	require.False(t, r.escalate())
	require.InDelta(t, PercentileCeiling, r.pppp, 0)
	require.Zero(t, r.escalations)
}

func TestRun_SetupSortsPositiveDegrees(t *testing.T) {
	m := completeMatrix(4)
	m.I = append(m.I, 4)
	m.J = append(m.J, 4)
	m.X = append(m.X, 2)
	m.K = 6

	r := newRun(newTestBalancer(t, WithPercentile(0)), m, make([]float64, m.K))
	require.True(t, r.setup())
	require.Equal(t, []int{4, 4, 4, 4, 1, 0}, r.nz)
	require.Equal(t, []int{1, 4, 4, 4, 4}, r.sorted)
	require.True(t, r.bad[5])

	r.release()
	require.Nil(t, r.sorted)
	require.NotPanics(t, r.release)
}

func TestRun_Threshold(t *testing.T) {
	r := &run{
		cfg:    &Balancer{},
		sorted: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}

	tests := []struct {
		pppp float64
		want float64
	}{
		{0, 1},
		{0.04, 1},  // floor(0.4 + 0.5) = 0
		{0.05, 2},  // floor(0.5 + 0.5) = 1
		{0.2, 3},   // floor(2 + 0.5) = 2
		{0.99, 10}, // clamped to the last element
	}
	for _, tt := range tests {
		r.pppp = tt.pppp
		require.InDelta(t, tt.want, r.threshold(), 0, "pppp=%g", tt.pppp)
	}

	r.pppp = 0
	r.cfg.table = cutoff.Table{0, 4, 6}
	r.escalations = 2
	require.InDelta(t, 6.0, r.threshold(), 0)
}

func TestRun_Stalled(t *testing.T) {
	const tol = DefaultTolerance
	halving := []float64{32, 16, 8, 4, 2, 1}

	tests := []struct {
		name    string
		ber     float64
		berHist []float64
		iter    int
		segErrs int
		errHist []float64
		want    bool
	}{
		{
			name:    "every step shrinks enough",
			ber:     1,
			berHist: halving,
			iter:    7,
			want:    false,
		},
		{
			name:    "one step shrinks by less than 1+del",
			ber:     1,
			berHist: []float64{32, 16, 8, 4, 3.99, 1},
			iter:    7,
			want:    true,
		},
		{
			name:    "oldest step outside the window is ignored",
			ber:     1,
			berHist: []float64{1, 64, 32, 16, 8, 4, 2},
			iter:    7,
			want:    false,
		},
		{
			name:    "flat history below tolerance is not checked",
			ber:     tol / 2,
			berHist: []float64{1, 1, 1, 1, 1, 1},
			iter:    7,
			want:    false,
		},
		{
			name:    "residual shrinks below 0.75",
			ber:     tol / 2,
			berHist: halving,
			iter:    10,
			segErrs: 2,
			errHist: []float64{1, 0.74},
			want:    false,
		},
		{
			name:    "residual shrinks above 0.75",
			ber:     tol / 2,
			berHist: halving,
			iter:    10,
			segErrs: 2,
			errHist: []float64{1, 0.76},
			want:    true,
		},
		{
			name:    "single residual in the segment is not checked",
			ber:     tol / 2,
			berHist: halving,
			iter:    10,
			segErrs: 1,
			errHist: []float64{1, 0.76},
			want:    false,
		},
		{
			name:    "residual only checked when freshly recorded",
			ber:     tol / 2,
			berHist: halving,
			iter:    11,
			segErrs: 2,
			errHist: []float64{1, 0.76},
			want:    false,
		},
		{
			name:    "residual within tolerance is not checked",
			ber:     tol / 2,
			berHist: halving,
			iter:    10,
			segErrs: 2,
			errHist: []float64{2e-3, 2e-3},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &run{
				cfg:     &Balancer{tol: tol, del: DefaultStallDelta},
				ber:     tt.ber,
				berHist: tt.berHist,
				iter:    tt.iter,
				segErrs: tt.segErrs,
				errHist: tt.errHist,
			}
			if len(tt.errHist) > 0 {
				r.err = tt.errHist[len(tt.errHist)-1]
			}
			require.Equal(t, tt.want, r.stalled())
		})
	}
}

func TestRun_ConvergedUsesFinalResidual(t *testing.T) {
	m := completeMatrix(4)
	bal := newTestBalancer(t, WithPercentile(0))
	r := newRun(bal, m, make([]float64, m.K))
	defer r.release()
	require.True(t, r.setup())
	r.iterate()

	// A stale residual from an earlier check must not decide convergence.
	r.err = 1
	res := r.finish()
	require.LessOrEqual(t, res.Residual, 5*bal.tol)
	require.True(t, res.Converged)

	r.ber = 1
	require.False(t, r.finish().Converged)
}

// ==============================================================================
// Buffer form
// ==============================================================================

func TestBalanceFunc(t *testing.T) {
	m := completeMatrix(4)
	b := make([]float64, 4)
	report := make([]float64, 1000)

	iters := Balance(m.I, m.J, m.X, m.K, b, report, 1000, 1e-3, 0, 100, 1e-2, 5e-3, 2)
	require.Positive(t, iters)
	require.InDelta(t, 0.5, b[2], 1e-3)
	require.Zero(t, report[iters]) // history shorter than the buffer

	require.Equal(t, -1, Balance(m.I, m.J, m.X, m.K, make([]float64, 3), report, 1000, 1e-3, 0, 100, 1e-2, 5e-3, 2))
	require.Equal(t, -1, Balance(m.I, m.J, m.X, m.K, b, report, 1000, -1, 0, 100, 1e-2, 5e-3, 2))
	require.Equal(t, -1, Balance(m.J, m.I[:1], m.X, m.K, b, report, 1000, 1e-3, 0, 100, 1e-2, 5e-3, 2))
}
