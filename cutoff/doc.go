// Package cutoff estimates per-bin exclusion thresholds from the distribution
// of bin degrees.
//
// Statistics are collected in a single pass with Welford's method, then turned
// into a Table of thresholds indexed by severity level. Each level is a
// lower-tail probability of a normal distribution fitted to the positive
// degrees; a bin whose degree falls below the threshold of the current level
// is considered degenerate.
//
//	stats := cutoff.ComputeStatistics(slices.Values(degrees))
//	table, err := cutoff.BuildTable(stats, 0.01, 0.005, 0.2)
//	excluded := cutoff.Classify(degrees, table, escalations)
package cutoff
