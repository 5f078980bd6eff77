package spill

import (
	"github.com/arloliu/hicnorm/contact"
)

// MultiReader replays several spill files as one record stream, in the given order.
// Files are opened one at a time.
type MultiReader struct {
	paths []string
	opts  []ReaderOption
	pos   int
	cur   *Reader
	count int64
	err   error
	done  bool
}

var _ contact.RecordStream = (*MultiReader)(nil)

// OpenAll chains the files at paths. Nothing is opened until the first Next.
func OpenAll(paths []string, opts ...ReaderOption) *MultiReader {
	return &MultiReader{paths: paths, opts: opts}
}

func (m *MultiReader) Next() (contact.Record, bool) {
	for !m.done {
		if m.cur == nil {
			if m.pos >= len(m.paths) {
				m.done = true
				break
			}

			r, err := Open(m.paths[m.pos], m.opts...)
			if err != nil {
				m.err = err
				m.done = true

				break
			}
			m.cur = r
			m.pos++
		}

		if rec, ok := m.cur.Next(); ok {
			m.count++
			return rec, true
		}

		m.err = m.cur.Err()
		_ = m.cur.Close()
		m.cur = nil
		if m.err != nil {
			m.done = true
		}
	}

	return contact.Record{}, false
}

// Count returns the number of records returned so far across all files.
func (m *MultiReader) Count() int64 {
	return m.count
}

func (m *MultiReader) Err() error {
	return m.err
}

func (m *MultiReader) Close() error {
	m.done = true
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil

	return err
}
