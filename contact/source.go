package contact

import (
	"fmt"
	"iter"

	"github.com/arloliu/hicnorm/errs"
)

// RecordStream is a forward-only sequence of records from an upstream source.
//
// Next returns false at the end of the stream or on a fault; Err tells the two
// apart and returns nil for a clean end. Close releases the underlying handle and
// is safe to call more than once.
type RecordStream interface {
	Next() (Record, bool)
	Err() error
	Close() error
}

// Dataset is an upstream source of record streams keyed by chromosome pair.
//
// Resolutions lists the available bin widths, preferred first. The whole-genome
// stream is addressed with chr1 == chr2 == WholeGenome.
type Dataset interface {
	Resolutions() []int
	Stream(chr1, chr2, resolution int) (RecordStream, error)
}

// Records adapts a RecordStream to an iterator. The stream is not closed.
func Records(s RecordStream) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			r, ok := s.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// SliceStream is an in-memory RecordStream.
type SliceStream struct {
	records []Record
	pos     int
	closed  bool
}

var _ RecordStream = (*SliceStream)(nil)

// NewSliceStream creates a stream over records. The slice is not copied.
func NewSliceStream(records []Record) *SliceStream {
	return &SliceStream{records: records}
}

func (s *SliceStream) Next() (Record, bool) {
	if s.closed || s.pos >= len(s.records) {
		return Record{}, false
	}
	r := s.records[s.pos]
	s.pos++

	return r, true
}

func (s *SliceStream) Err() error { return nil }

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

type streamKey struct {
	chr1, chr2, resolution int
}

// MemoryDataset is an in-memory Dataset, mainly for tests and small inputs.
type MemoryDataset struct {
	resolutions []int
	streams     map[streamKey][]Record
}

var _ Dataset = (*MemoryDataset)(nil)

// NewMemoryDataset creates an empty dataset with the given resolutions.
func NewMemoryDataset(resolutions ...int) *MemoryDataset {
	return &MemoryDataset{
		resolutions: resolutions,
		streams:     make(map[streamKey][]Record),
	}
}

// Put registers the records for a chromosome pair at a resolution.
func (d *MemoryDataset) Put(chr1, chr2, resolution int, records []Record) {
	d.streams[streamKey{chr1, chr2, resolution}] = records
}

func (d *MemoryDataset) Resolutions() []int {
	return d.resolutions
}

func (d *MemoryDataset) Stream(chr1, chr2, resolution int) (RecordStream, error) {
	records, ok := d.streams[streamKey{chr1, chr2, resolution}]
	if !ok {
		return nil, fmt.Errorf("%w: chr %d-%d at %d bp", errs.ErrStreamNotFound, chr1, chr2, resolution)
	}

	return NewSliceStream(records), nil
}
