// Package hicnorm builds and balances genome-wide contact matrices from
// streams of pairwise contact records too large to hold in memory.
//
// # Core Features
//
//   - Binary spill files of 12-byte little-endian records, optionally framed
//     with Zstd, S2 or LZ4 compression and xxHash64 checksums
//   - Iterators that turn per-chromosome or whole-genome record streams into
//     resolution-scaled contacts
//   - Streaming degree statistics and a severity-indexed cutoff table
//   - Adaptive matrix balancing with stall detection, exclusion escalation
//     and a parallel symmetric matrix-vector product
//
// # Basic Usage
//
// Spilling records and balancing the resulting matrix:
//
//	w, _ := hicnorm.NewSpillWriter(dir)
//	paths, _ := w.Write(records, 1_000_000)
//
//	result, err := hicnorm.Normalize(hicnorm.OpenSpill(paths), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for bin, scale := range result.Scale {
//	    fmt.Println(bin, scale) // NaN for excluded bins
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the spill,
// contact, cutoff and balance packages for the common pipeline. For
// out-of-core aggregation with position randomization use the aggregate
// package directly.
package hicnorm

import (
	"iter"
	"slices"

	"github.com/arloliu/hicnorm/balance"
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/cutoff"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/spill"
)

// NewSpillWriter creates a spill session writing raw record files into dir.
//
// Parameters:
//   - dir: Existing directory receiving the files
//   - opts: Optional writer configuration (see spill.WriterOption)
//
// Returns:
//   - *spill.Writer: The spill session
//   - error: An error if the directory or the options are invalid
func NewSpillWriter(dir string, opts ...spill.WriterOption) (*spill.Writer, error) {
	return spill.NewWriter(dir, opts...)
}

// NewCompressedSpillWriter creates a spill session writing S2-compressed frames.
//
// S2 trades a little compression ratio for much faster encoding than Zstd,
// which suits short-lived spill files.
func NewCompressedSpillWriter(dir string, opts ...spill.WriterOption) (*spill.Writer, error) {
	allOpts := append([]spill.WriterOption{spill.WithCompression(format.CompressionS2)}, opts...)
	return spill.NewWriter(dir, allOpts...)
}

// OpenSpill chains spill files into one record stream, replayed in order.
func OpenSpill(paths []string) contact.RecordStream {
	return spill.OpenAll(paths)
}

// WholeGenome creates an iterator over the whole-genome streams of sources.
func WholeGenome(sources ...contact.Dataset) contact.Iterator {
	return contact.NewGenomeIterator(sources)
}

// Normalize balances the matrix formed by the records of stream.
//
// Records may be in either triangle; they are summed per stored entry by the
// matrix product. A k <= 0 sizes the matrix from the largest bin. The stream
// is drained and closed; a stream fault is returned instead of a result.
func Normalize(stream contact.RecordStream, k int, opts ...balance.Option) (*balance.Result, error) {
	m, err := readMatrix(stream, k)
	if err != nil {
		return nil, err
	}

	bal, err := balance.NewBalancer(opts...)
	if err != nil {
		return nil, err
	}

	return bal.Balance(m)
}

// NormalizeWithCutoff is Normalize with a degree cutoff table built from the
// matrix itself over levels startLevel, startLevel+deltaLevel, ... below maxLevel.
func NormalizeWithCutoff(
	stream contact.RecordStream, k int,
	startLevel, deltaLevel, maxLevel float64,
	opts ...balance.Option,
) (*balance.Result, error) {
	m, err := readMatrix(stream, k)
	if err != nil {
		return nil, err
	}

	stats := cutoff.ComputeStatistics(slices.Values(m.Degree()))
	table, err := cutoff.BuildTable(stats, startLevel, deltaLevel, maxLevel)
	if err != nil {
		return nil, err
	}

	bal, err := balance.NewBalancer(append(opts[:len(opts):len(opts)], balance.WithCutoffTable(table))...)
	if err != nil {
		return nil, err
	}

	return bal.Balance(m)
}

// Records adapts an iterator of contacts back to bin records at resolution.
// Positions are divided by resolution; chromosomes are dropped.
func Records(it contact.Iterator, resolution int) iter.Seq[contact.Record] {
	return func(yield func(contact.Record) bool) {
		for c := range contact.All(it) {
			r := contact.Record{
				BinX:  int32(c.Pos1 / resolution), //nolint:gosec
				BinY:  int32(c.Pos2 / resolution), //nolint:gosec
				Count: c.Score,
			}
			if !yield(r) {
				return
			}
		}
	}
}

func readMatrix(stream contact.RecordStream, k int) (*balance.SparseMatrix, error) {
	defer stream.Close()

	m, err := balance.FromRecords(contact.Records(stream), k)
	if serr := stream.Err(); serr != nil {
		return nil, serr
	}

	return m, err
}
