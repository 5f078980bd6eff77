package contact

import (
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/errs"
)

// State is the lifecycle state of an iterator.
type State uint8

const (
	// StateActive means the iterator may still produce contacts.
	StateActive State = iota
	// StateExhausted means the sources are drained or a fault stopped iteration.
	StateExhausted
	// StateClosed means Close was called.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Iterator is a forward-only, single-consumer sequence of contacts.
//
// HasNext reports whether Next will return a contact. Calling Next after HasNext
// returned false is an error. Err returns the fault that ended iteration early,
// or nil when the sources were simply exhausted.
type Iterator interface {
	HasNext() bool
	Next() (Contact, error)
	Err() error
	Close() error
}

// All adapts an iterator to a range-over-func sequence. Iteration stops at the
// first fault; check it.Err afterwards.
func All(it Iterator) iter.Seq[Contact] {
	return func(yield func(Contact) bool) {
		for it.HasNext() {
			c, err := it.Next()
			if err != nil || !yield(c) {
				return
			}
		}
	}
}

// cursor holds the state shared by both iterator variants.
type cursor struct {
	state      State
	pending    Contact
	hasPending bool
	err        error
}

func (c *cursor) next(advance func() bool) (Contact, error) {
	if !c.hasPending && (c.state != StateActive || !advance()) {
		switch {
		case c.err != nil:
			return Contact{}, c.err
		case c.state == StateClosed:
			return Contact{}, errs.ErrIteratorClosed
		default:
			return Contact{}, errs.ErrIteratorExhausted
		}
	}
	c.hasPending = false

	return c.pending, nil
}

// PairIterator produces contacts for a single chromosome pair from one record stream.
type PairIterator struct {
	cursor
	stream     RecordStream
	chr1       int
	chr2       int
	resolution int
}

var _ Iterator = (*PairIterator)(nil)

// NewPairIterator wraps stream. Every record (binX, binY, count) becomes
// (chr1, binX*resolution, chr2, binY*resolution, count).
func NewPairIterator(stream RecordStream, chr1, chr2, resolution int) *PairIterator {
	return &PairIterator{
		stream:     stream,
		chr1:       chr1,
		chr2:       chr2,
		resolution: resolution,
	}
}

// State returns the current lifecycle state.
func (it *PairIterator) State() State {
	return it.state
}

func (it *PairIterator) HasNext() bool {
	if it.hasPending {
		return true
	}
	if it.state != StateActive {
		return false
	}

	return it.advance()
}

func (it *PairIterator) advance() bool {
	r, ok := it.stream.Next()
	if ok {
		it.pending = FromRecord(r, it.chr1, it.chr2, it.resolution)
		it.hasPending = true

		return true
	}

	if err := it.stream.Err(); err != nil {
		it.err = err
		logrus.WithFields(logrus.Fields{
			"chr1": it.chr1,
			"chr2": it.chr2,
		}).WithError(err).Warn("contact stream ended on fault")
	}
	it.release(StateExhausted)

	return false
}

func (it *PairIterator) Next() (Contact, error) {
	return it.next(it.advance)
}

func (it *PairIterator) Err() error {
	return it.err
}

// Close releases the underlying stream. Pending contacts are discarded.
func (it *PairIterator) Close() error {
	if it.state == StateClosed {
		return nil
	}
	it.hasPending = false

	return it.release(StateClosed)
}

func (it *PairIterator) release(next State) error {
	var err error
	if it.state == StateActive {
		err = it.stream.Close()
	}
	it.state = next

	return err
}

// GenomeIterator walks the whole-genome stream of each dataset in order.
//
// Contacts are tagged with chromosome WholeGenome and scaled by the resolution
// of the dataset they came from. Records are yielded in dataset order, then in
// stream order; datasets never interleave.
type GenomeIterator struct {
	cursor
	sources    []Dataset
	pos        int // index of the next dataset to open
	current    RecordStream
	resolution int
}

var _ Iterator = (*GenomeIterator)(nil)

// NewGenomeIterator creates an iterator over the whole-genome streams of sources.
// Each dataset is read at its first resolution; datasets without resolutions are skipped.
func NewGenomeIterator(sources []Dataset) *GenomeIterator {
	return &GenomeIterator{sources: sources}
}

// State returns the current lifecycle state.
func (it *GenomeIterator) State() State {
	return it.state
}

func (it *GenomeIterator) HasNext() bool {
	if it.hasPending {
		return true
	}
	if it.state != StateActive {
		return false
	}

	return it.advance()
}

func (it *GenomeIterator) advance() bool {
	for {
		if it.current != nil {
			if r, ok := it.current.Next(); ok {
				it.pending = FromRecord(r, WholeGenome, WholeGenome, it.resolution)
				it.hasPending = true

				return true
			}

			err := it.current.Err()
			it.closeCurrent()
			if err != nil {
				it.fail(err)
				return false
			}
		}

		if it.pos >= len(it.sources) {
			it.state = StateExhausted
			return false
		}

		src := it.sources[it.pos]
		it.pos++

		resolutions := src.Resolutions()
		if len(resolutions) == 0 {
			logrus.WithField("source", it.pos-1).Debug("skipping dataset without resolutions")
			continue
		}

		stream, err := src.Stream(WholeGenome, WholeGenome, resolutions[0])
		if err != nil {
			it.fail(err)
			return false
		}
		it.current = stream
		it.resolution = resolutions[0]
	}
}

func (it *GenomeIterator) fail(err error) {
	it.err = err
	it.state = StateExhausted
	logrus.WithField("source", it.pos-1).WithError(err).Warn("whole-genome stream ended on fault")
}

func (it *GenomeIterator) closeCurrent() {
	if it.current == nil {
		return
	}
	if err := it.current.Close(); err != nil {
		logrus.WithField("source", it.pos-1).WithError(err).Debug("closing whole-genome stream failed")
	}
	it.current = nil
}

func (it *GenomeIterator) Next() (Contact, error) {
	return it.next(it.advance)
}

func (it *GenomeIterator) Err() error {
	return it.err
}

// Close releases the current stream. Remaining datasets are never opened.
func (it *GenomeIterator) Close() error {
	if it.state == StateClosed {
		return nil
	}
	it.hasPending = false
	var err error
	if it.current != nil {
		err = it.current.Close()
		it.current = nil
	}
	it.state = StateClosed

	return err
}
