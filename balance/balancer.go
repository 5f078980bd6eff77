package balance

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/cutoff"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/metrics"
	"github.com/arloliu/hicnorm/internal/options"
	"github.com/arloliu/hicnorm/internal/pool"
)

const (
	// stallWindow is the number of recent iterations checked for stalled progress.
	stallWindow = 5
	// residualEvery is the iteration period of exact residual checks.
	residualEvery = 10
	// residualFactor is the required residual reduction between two checks.
	residualFactor = 0.75
)

// Balancer computes balancing vectors. A Balancer holds only configuration
// and may be reused; concurrent calls to Balance need distinct scale buffers.
type Balancer struct {
	tol     float64
	pppp    float64
	del     float64
	dp      float64
	maxIter int
	totIter int
	threads int
	table   cutoff.Table
	scale   []float64
	logger  logrus.FieldLogger
}

// NewBalancer creates a Balancer with the default parameters overridden by opts.
func NewBalancer(opts ...Option) (*Balancer, error) {
	b := &Balancer{
		tol:     DefaultTolerance,
		pppp:    DefaultPercentile,
		del:     DefaultStallDelta,
		dp:      DefaultEscalationStep,
		maxIter: DefaultMaxIterations,
		totIter: DefaultTotalIterations,
		threads: DefaultThreads,
		logger:  logrus.StandardLogger(),
	}

	if err := options.Apply(b, opts...); err != nil {
		return nil, err
	}

	return b, nil
}

// Balance runs the scaling iteration on m.
//
// Errors are returned only for malformed input: an invalid matrix or a scale
// buffer of the wrong length. Bins that cannot be balanced are marked in
// Result.Bad and set to NaN in Result.Scale.
func (bal *Balancer) Balance(m *SparseMatrix) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", errs.ErrInvalidDimension)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	scale := bal.scale
	if scale == nil {
		scale = make([]float64, m.K)
	} else if len(scale) != m.K {
		return nil, fmt.Errorf("%w: scale buffer %d, k=%d", errs.ErrBufferSize, len(scale), m.K)
	}

	start := time.Now()
	r := newRun(bal, m, scale)
	defer r.release()

	if r.setup() {
		r.iterate()
	}
	res := r.finish()

	metrics.BalanceExcludedBins.Set(float64(res.Excluded()))
	metrics.BalanceDuration.Observe(time.Since(start).Seconds())

	bal.logger.WithFields(logrus.Fields{
		"k":           m.K,
		"nnz":         m.NNZ(),
		"iterations":  res.TotalIterations,
		"escalations": res.Escalations,
		"excluded":    res.Excluded(),
		"residual":    res.Residual,
		"converged":   res.Converged,
	}).Info("balancing finished")

	return res, nil
}

// run is the mutable state of one Balance call.
type run struct {
	cfg *Balancer
	m   *SparseMatrix
	mul *multiplier
	log logrus.FieldLogger

	nz      []int
	sorted  []int // positive degrees, ascending
	putSort func()
	bad     []bool
	survive []float64

	b    []float64
	prev []float64
	row  []float64
	row0 []float64
	y    []float64

	pppp        float64
	escalations int
	restarts    int
	iter        int
	allIters    int
	segErrs     int // residuals recorded since the last reset

	ber     float64
	err     float64
	berHist []float64
	errHist []float64
}

func newRun(cfg *Balancer, m *SparseMatrix, scale []float64) *run {
	k := m.K

	return &run{
		cfg:     cfg,
		m:       m,
		mul:     newMultiplier(m, cfg.threads),
		log:     cfg.logger,
		bad:     make([]bool, k),
		survive: make([]float64, k),
		b:       scale,
		prev:    make([]float64, k),
		row:     make([]float64, k),
		row0:    make([]float64, k),
		y:       make([]float64, k),
		pppp:    cfg.pppp,
	}
}

func (r *run) release() {
	r.mul.release()
	if r.putSort != nil {
		r.putSort()
		r.putSort = nil
		r.sorted = nil
	}
}

// setup computes degrees, the initial exclusion set and the starting vector.
// It returns false when no bin has a positive degree.
func (r *run) setup() bool {
	r.nz = r.m.Degree()
	positive := 0
	for _, d := range r.nz {
		if d > 0 {
			positive++
		}
	}

	r.sorted, r.putSort = pool.GetIntSlice(positive)
	r.sorted = r.sorted[:0]
	for _, d := range r.nz {
		if d > 0 {
			r.sorted = append(r.sorted, d)
		}
	}
	slices.Sort(r.sorted)

	if len(r.sorted) == 0 {
		for g := range r.bad {
			r.bad[g] = true
		}

		return false
	}

	for g := range r.survive {
		r.survive[g] = 1
	}
	r.exclude(r.threshold())

	r.mul.mul(r.survive, r.row0)
	for g := range r.row0 {
		r.row0[g] *= r.survive[g]
	}
	r.restart()

	r.resetCriteria()

	return true
}

// threshold returns the degree below which bins are excluded at the current
// percentile and escalation level.
func (r *run) threshold() float64 {
	idx := int(math.Floor(float64(len(r.sorted))*r.pppp + 0.5))
	idx = min(idx, len(r.sorted)-1)
	low := float64(r.sorted[idx])

	if r.cfg.table != nil {
		low = max(low, r.cfg.table.Get(r.escalations))
	}

	return low
}

// exclude marks bins with degree below low. The bad set only grows.
func (r *run) exclude(low float64) int {
	added := 0
	for g, d := range r.nz {
		if !r.bad[g] && float64(d) < low {
			r.markBad(g)
			added++
		}
	}

	return added
}

func (r *run) markBad(g int) {
	r.bad[g] = true
	r.survive[g] = 0
}

// restart resets the scaling vector from the initial row sums. A surviving
// bin with no surviving mass cannot be scaled and is excluded.
func (r *run) restart() {
	for g := range r.b {
		r.row[g] = r.row0[g]
		switch {
		case r.bad[g]:
			r.row[g] = 1
		case !(r.row[g] > 0):
			r.markBad(g)
			r.row[g] = 1
		}
		r.b[g] = r.survive[g] / math.Sqrt(r.row[g])
	}
}

func (r *run) resetCriteria() {
	r.ber = 10 * (1 + r.cfg.tol)
	r.err = 10 * (1 + r.cfg.tol)
	r.segErrs = 0
	r.iter = 0
}

func (r *run) iterate() {
	tol := r.cfg.tol
	for (r.ber > tol || r.err > 5*tol) && r.iter < r.cfg.maxIter && r.allIters < r.cfg.totIter {
		r.step()

		if r.iter%residualEvery == 0 {
			r.err = r.residual()
			r.errHist = append(r.errHist, r.err)
			r.segErrs++
		}

		if r.iter > stallWindow && r.stalled() {
			if !r.escalate() {
				return
			}
		}
	}
}

// step performs one scaling iteration and records its largest relative change.
func (r *run) step() {
	r.iter++
	r.allIters++
	metrics.BalanceIterations.Inc()

	copy(r.prev, r.b)
	r.mul.mul(r.b, r.row)

	for g := range r.row {
		r.row[g] *= r.b[g]
		switch {
		case r.bad[g]:
			r.row[g] = 1
		case !(r.row[g] > 0):
			r.markBad(g)
			r.row[g] = 1
		}
		r.b[g] *= r.survive[g] / math.Sqrt(r.row[g])
	}

	ber := 0.0
	for g, bad := range r.bad {
		if bad {
			continue
		}
		ber = max(ber, math.Abs(r.b[g]-r.prev[g])/(r.b[g]+r.prev[g]))
	}
	r.ber = ber
	r.berHist = append(r.berHist, ber)
}

// residual returns the largest |row sum - 1| over surviving bins.
func (r *run) residual() float64 {
	r.mul.mul(r.b, r.y)

	res := 0.0
	for g, bad := range r.bad {
		if bad {
			continue
		}
		res = max(res, math.Abs(r.y[g]*r.b[g]-1))
	}

	return res
}

// stalled reports whether progress over the current segment is too slow:
// one of the last stallWindow steps failed to shrink the change by a factor
// 1+del, or the newest residual is not below residualFactor times the previous.
func (r *run) stalled() bool {
	tol := r.cfg.tol

	if r.ber > tol {
		n := len(r.berHist)
		for t := 1; t <= stallWindow; t++ {
			if r.berHist[n-t]*(1+r.cfg.del) > r.berHist[n-t-1] {
				return true
			}
		}
	}

	if r.iter%residualEvery == 0 && r.segErrs >= 2 && r.err > 5*tol {
		n := len(r.errHist)
		if r.errHist[n-1] >= residualFactor*r.errHist[n-2] {
			return true
		}
	}

	return false
}

// escalate raises the exclusion percentile after a stall. It returns false
// when the percentile would pass PercentileCeiling, which ends the run.
func (r *run) escalate() bool {
	next := r.pppp + r.cfg.dp
	if next > PercentileCeiling {
		r.log.WithFields(logrus.Fields{
			"percentile": r.pppp,
			"iteration":  r.allIters,
		}).Warn("exclusion percentile ceiling reached, giving up")

		return false
	}

	r.pppp = next
	r.escalations++
	metrics.BalanceEscalations.Inc()

	added := r.exclude(r.threshold())

	n := len(r.berHist)
	restart := r.berHist[n-1] > r.berHist[n-1-stallWindow]

	r.log.WithFields(logrus.Fields{
		"iteration":  r.allIters,
		"ber":        r.ber,
		"err":        r.err,
		"percentile": r.pppp,
		"excluded":   added,
		"restart":    restart,
	}).Debug("convergence stalled, escalating exclusion")

	r.resetCriteria()

	if restart {
		r.restarts++
		metrics.BalanceRestarts.Inc()
		r.restart()

		return true
	}

	for g := range r.b {
		r.b[g] *= r.survive[g]
	}

	return true
}

func (r *run) finish() *Result {
	res := &Result{
		Bad:             r.bad,
		Degree:          r.nz,
		Iterations:      r.iter,
		TotalIterations: r.allIters,
		Escalations:     r.escalations,
		Restarts:        r.restarts,
		Percentile:      r.pppp,
		BerHistory:      r.berHist,
		ErrHistory:      r.errHist,
	}

	if len(r.sorted) > 0 {
		res.Residual = r.residual()
		res.Converged = r.ber <= r.cfg.tol && res.Residual <= 5*r.cfg.tol
	}

	for g, bad := range r.bad {
		if bad {
			r.b[g] = math.NaN()
		}
	}
	res.Scale = r.b

	return res
}
