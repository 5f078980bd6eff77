package aggregate

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/balance"
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/options"
	"github.com/arloliu/hicnorm/spill"
)

type cell struct {
	x, y int32
}

// Accumulator sums contact scores into upper-triangular bins.
//
// Note: an Accumulator is NOT thread-safe.
type Accumulator struct {
	resolution int
	randomizer Randomizer
	chr        int
	filterChr  bool
	minScore   float32

	cells  map[cell]float32 // same precision as spilled records
	maxBin int32

	writer    *spill.Writer
	memLimit  int
	fileLimit int
	runs      [][]string // spilled runs, each sorted, in spill order

	added   int64
	skipped int64
	err     error
}

// NewAccumulator creates an accumulator binning positions at resolution base pairs.
func NewAccumulator(resolution int, opts ...Option) (*Accumulator, error) {
	if resolution < 1 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidResolution, resolution)
	}

	a := &Accumulator{
		resolution: resolution,
		randomizer: NoRandomization,
		minScore:   float32(math.Inf(-1)),
		cells:      make(map[cell]float32),
		maxBin:     -1,
	}

	if err := options.Apply(a, opts...); err != nil {
		return nil, err
	}

	return a, nil
}

// Add bins one contact. Contacts outside the configured chromosome, below
// the minimum score or at negative positions are skipped.
func (a *Accumulator) Add(c contact.Contact) error {
	if a.filterChr && (c.Chr1 != a.chr || c.Chr2 != a.chr) {
		a.skipped++
		return nil
	}
	if c.Score < a.minScore {
		a.skipped++
		return nil
	}

	pos1 := a.randomizer.Position(c.Chr1, c.Pos1)
	pos2 := a.randomizer.Position(c.Chr2, c.Pos2)
	bin1, bin2 := pos1/a.resolution, pos2/a.resolution
	if pos1 < 0 || pos2 < 0 || bin1 > math.MaxInt32 || bin2 > math.MaxInt32 {
		a.skipped++
		return nil
	}

	r := contact.Record{BinX: int32(bin1), BinY: int32(bin2)}.Upper() //nolint:gosec
	a.cells[cell{r.BinX, r.BinY}] += c.Score
	a.maxBin = max(a.maxBin, r.BinY)
	a.added++

	if a.writer != nil && len(a.cells) > a.memLimit {
		return a.flush()
	}

	return nil
}

// Consume adds every contact of it and returns the iterator's fault, if any.
// The iterator is not closed.
func (a *Accumulator) Consume(it contact.Iterator) error {
	for it.HasNext() {
		c, err := it.Next()
		if err != nil {
			return err
		}
		if err := a.Add(c); err != nil {
			return err
		}
	}

	return it.Err()
}

// flush writes the in-memory cells as one sorted run and clears memory.
func (a *Accumulator) flush() error {
	records := a.sortedCells()
	paths, err := a.writer.Write(slices.Values(records), a.fileLimit)
	if len(paths) > 0 {
		a.runs = append(a.runs, paths)
	}
	if err != nil {
		return fmt.Errorf("aggregate: spill: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"cells": len(records),
		"files": len(paths),
		"runs":  len(a.runs),
	}).Debug("contact cells spilled")

	clear(a.cells)

	return nil
}

func (a *Accumulator) sortedCells() []contact.Record {
	records := make([]contact.Record, 0, len(a.cells))
	for c, v := range a.cells {
		records = append(records, contact.Record{BinX: c.x, BinY: c.y, Count: v})
	}
	slices.SortFunc(records, compareRecords)

	return records
}

func compareRecords(a, b contact.Record) int {
	if c := cmp.Compare(a.BinX, b.BinX); c != 0 {
		return c
	}

	return cmp.Compare(a.BinY, b.BinY)
}

// Records merges spilled runs and in-memory cells into one sequence sorted by
// (BinX, BinY) with one record per cell. Check Err after iterating.
//
// Cell sums are float32 in memory and on disk. They are exact for integer
// counts below 2^24; fractional scores may round differently depending on
// where spill runs split a cell's contributions.
func (a *Accumulator) Records() iter.Seq[contact.Record] {
	return func(yield func(contact.Record) bool) {
		streams := make([]contact.RecordStream, 0, len(a.runs)+1)
		for _, run := range a.runs {
			streams = append(streams, spill.OpenAll(run))
		}
		streams = append(streams, contact.NewSliceStream(a.sortedCells()))

		a.err = merge(streams, yield)
	}
}

// Err returns the fault that ended the last Records iteration.
func (a *Accumulator) Err() error {
	return a.err
}

// Matrix builds the sparse matrix of all accumulated cells. A k <= 0 sizes it
// to the largest bin plus one.
func (a *Accumulator) Matrix(k int) (*balance.SparseMatrix, error) {
	if k <= 0 {
		k = int(a.maxBin) + 1
	}

	m, err := balance.FromRecords(a.Records(), k)
	if a.err != nil {
		return nil, a.err
	}

	return m, err
}

// Resolution returns the bin width in base pairs.
func (a *Accumulator) Resolution() int {
	return a.resolution
}

// Bins returns the largest bin index plus one.
func (a *Accumulator) Bins() int {
	return int(a.maxBin) + 1
}

// Added returns the number of contacts binned.
func (a *Accumulator) Added() int64 {
	return a.added
}

// Skipped returns the number of contacts filtered out.
func (a *Accumulator) Skipped() int64 {
	return a.skipped
}

// InMemory returns the number of distinct cells currently held in memory.
func (a *Accumulator) InMemory() int {
	return len(a.cells)
}

// SpillFiles returns the files written so far, in creation order.
func (a *Accumulator) SpillFiles() []string {
	var out []string
	for _, run := range a.runs {
		out = append(out, run...)
	}

	return out
}

// Cleanup removes the spill files. The accumulator must not be used afterwards.
func (a *Accumulator) Cleanup() error {
	err := spill.Remove(a.SpillFiles())
	a.runs = nil
	clear(a.cells)

	return err
}
