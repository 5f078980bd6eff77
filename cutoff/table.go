package cutoff

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/hicnorm/errs"
)

// levelEpsilon absorbs rounding when (max-start)/delta is an exact integer.
const levelEpsilon = 1e-9

// Table maps severity levels to non-decreasing degree thresholds.
// Entry 0 is always 0, so level 0 excludes nothing.
type Table []float64

// BuildTable derives thresholds from stats.
//
// Entry i (i >= 1) is the lower-tail quantile at probability
// startLevel + (i-1)*deltaLevel of a normal distribution with the mean and
// standard deviation of stats, clamped at 0. Probabilities run while they stay
// below maxLevel. Entries are forced non-decreasing.
//
// Parameters:
//   - stats: Degree statistics from ComputeStatistics
//   - startLevel: First probability, in (0, 1)
//   - deltaLevel: Probability step, > 0
//   - maxLevel: Exclusive upper bound, in [startLevel, 1)
//
// Returns:
//   - Table: 1 + floor((maxLevel-startLevel)/deltaLevel) entries
//   - error: errs.ErrInvalidLevel for an invalid level range
func BuildTable(stats Stats, startLevel, deltaLevel, maxLevel float64) (Table, error) {
	if !(startLevel > 0) || !(deltaLevel > 0) || maxLevel < startLevel || !(maxLevel < 1) {
		return nil, fmt.Errorf("%w: start %g, delta %g, max %g", errs.ErrInvalidLevel, startLevel, deltaLevel, maxLevel)
	}

	n := int(math.Floor((maxLevel-startLevel)/deltaLevel + levelEpsilon))
	table := make(Table, 1+n)

	dist := distuv.Normal{Mu: stats.Mean, Sigma: stats.StdDev()}
	for i := 1; i <= n; i++ {
		level := startLevel + float64(i-1)*deltaLevel

		var v float64
		if dist.Sigma > 0 {
			v = dist.Quantile(level)
		} else {
			v = dist.Mu
		}
		table[i] = max(v, 0, table[i-1])
	}

	return table, nil
}

// Get returns the threshold for level. Levels past the end return the last
// entry; negative levels return entry 0.
func (t Table) Get(level int) float64 {
	switch {
	case len(t) == 0:
		return 0
	case level <= 0:
		return t[0]
	case level >= len(t):
		return t[len(t)-1]
	default:
		return t[level]
	}
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t)
}

// Classify marks bins whose value is strictly below the threshold of level.
func Classify(values []int, table Table, level int) []bool {
	threshold := table.Get(level)
	excluded := make([]bool, len(values))
	for g, v := range values {
		excluded[g] = float64(v) < threshold
	}

	return excluded
}
