package balance

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/cutoff"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/options"
)

// Default balancing parameters.
const (
	DefaultTolerance       = 5e-4
	DefaultPercentile      = 0.01
	DefaultMaxIterations   = 200
	DefaultTotalIterations = 3000
	DefaultStallDelta      = 1e-2
	DefaultEscalationStep  = 5e-3
	DefaultThreads         = 1

	// PercentileCeiling is the exclusion percentile past which a run gives up.
	PercentileCeiling = 0.2
)

// Option configures a Balancer.
type Option = options.Option[*Balancer]

// WithTolerance sets the convergence tolerance. Scaling changes must drop to
// tol and row-sum residuals to 5*tol.
func WithTolerance(tol float64) Option {
	return options.New(func(b *Balancer) error {
		if !(tol > 0) {
			return fmt.Errorf("%w: tolerance %g", errs.ErrInvalidParameter, tol)
		}
		b.tol = tol

		return nil
	})
}

// WithPercentile sets the initial exclusion percentile of low-degree bins.
func WithPercentile(pppp float64) Option {
	return options.New(func(b *Balancer) error {
		if !(pppp >= 0) || pppp > PercentileCeiling {
			return fmt.Errorf("%w: percentile %g", errs.ErrInvalidParameter, pppp)
		}
		b.pppp = pppp

		return nil
	})
}

// WithMaxIterations caps the iterations between two escalations.
func WithMaxIterations(n int) Option {
	return options.New(func(b *Balancer) error {
		if n < 1 {
			return fmt.Errorf("%w: max iterations %d", errs.ErrInvalidParameter, n)
		}
		b.maxIter = n

		return nil
	})
}

// WithTotalIterations caps the iterations of the whole run.
func WithTotalIterations(n int) Option {
	return options.New(func(b *Balancer) error {
		if n < 1 {
			return fmt.Errorf("%w: total iterations %d", errs.ErrInvalidParameter, n)
		}
		b.totIter = n

		return nil
	})
}

// WithStallDelta sets the minimum relative decrease per iteration below which
// progress counts as stalled.
func WithStallDelta(del float64) Option {
	return options.New(func(b *Balancer) error {
		if !(del >= 0) {
			return fmt.Errorf("%w: stall delta %g", errs.ErrInvalidParameter, del)
		}
		b.del = del

		return nil
	})
}

// WithEscalationStep sets how much the exclusion percentile grows per stall.
func WithEscalationStep(dp float64) Option {
	return options.New(func(b *Balancer) error {
		if !(dp > 0) {
			return fmt.Errorf("%w: escalation step %g", errs.ErrInvalidParameter, dp)
		}
		b.dp = dp

		return nil
	})
}

// WithThreads sets the number of matvec workers.
func WithThreads(n int) Option {
	return options.New(func(b *Balancer) error {
		if n < 1 {
			return fmt.Errorf("%w: threads %d", errs.ErrInvalidParameter, n)
		}
		b.threads = n

		return nil
	})
}

// WithCutoffTable adds a degree floor: at escalation level e, bins with degree
// below table.Get(e) are excluded as well.
func WithCutoffTable(table cutoff.Table) Option {
	return options.NoError(func(b *Balancer) {
		b.table = table
	})
}

// WithScaleBuffer makes Balance write the scaling vector into buf, which must
// have one entry per bin.
func WithScaleBuffer(buf []float64) Option {
	return options.NoError(func(b *Balancer) {
		b.scale = buf
	})
}

// WithLogger sets the logger for escalation and completion events.
func WithLogger(logger logrus.FieldLogger) Option {
	return options.NoError(func(b *Balancer) {
		if logger != nil {
			b.logger = logger
		}
	})
}
