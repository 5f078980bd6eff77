package cutoff

import (
	"iter"
	"math"
)

// Stats holds the running moments of the strictly positive values seen so far.
type Stats struct {
	Count int
	Mean  float64
	m2    float64
}

// ComputeStatistics consumes values once. Zero and negative values are ignored.
func ComputeStatistics(values iter.Seq[int]) Stats {
	var s Stats
	for v := range values {
		s.Add(v)
	}

	return s
}

// Add folds one value into the running moments. Non-positive values are ignored.
func (s *Stats) Add(v int) {
	if v <= 0 {
		return
	}

	s.Count++
	x := float64(v)
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.m2 += delta * (x - s.Mean)
}

// Variance returns the sample variance, or 0 with fewer than two values.
func (s Stats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}

	return s.m2 / float64(s.Count-1)
}

// StdDev returns the sample standard deviation.
func (s Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
