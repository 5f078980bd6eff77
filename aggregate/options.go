package aggregate

import (
	"fmt"

	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/internal/options"
	"github.com/arloliu/hicnorm/spill"
)

// Option configures an Accumulator.
type Option = options.Option[*Accumulator]

// WithRandomizer sets the position randomization applied before binning.
func WithRandomizer(r Randomizer) Option {
	return options.NoError(func(a *Accumulator) {
		if r != nil {
			a.randomizer = r
		}
	})
}

// WithSpill enables spilling to dir once more than memLimit distinct cells are
// held in memory. Each spilled run is split into files of at most fileLimit records.
func WithSpill(dir string, memLimit, fileLimit int, opts ...spill.WriterOption) Option {
	return options.New(func(a *Accumulator) error {
		if memLimit < 1 {
			return fmt.Errorf("aggregate: memory limit must be positive, got %d", memLimit)
		}
		if fileLimit < 1 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidLimit, fileLimit)
		}

		w, err := spill.NewWriter(dir, opts...)
		if err != nil {
			return err
		}
		a.writer = w
		a.memLimit = memLimit
		a.fileLimit = fileLimit

		return nil
	})
}

// WithChromosome keeps only intra-chromosomal contacts of chr.
func WithChromosome(chr int) Option {
	return options.NoError(func(a *Accumulator) {
		a.chr = chr
		a.filterChr = true
	})
}

// WithMinScore drops contacts scoring below score.
func WithMinScore(score float32) Option {
	return options.NoError(func(a *Accumulator) {
		a.minScore = score
	})
}
