package spill

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/compress"
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/endian"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/internal/hash"
	"github.com/arloliu/hicnorm/internal/metrics"
	"github.com/arloliu/hicnorm/internal/options"
)

const readBufferSize = DefaultBlockRecords * format.RecordSize

// Reader replays the records of one spill file, lazily and exactly once.
//
// Reader implements contact.RecordStream. The file handle is released as soon
// as the file ends or a fault occurs; Close is still safe to call.
//
// Note: a Reader is NOT thread-safe.
type Reader struct {
	path        string
	compression format.CompressionType
	codec       compress.Codec
	engine      endian.EndianEngine

	file *os.File
	br   *bufio.Reader

	rec   [format.RecordSize]byte
	hdr   [frameHeaderSize]byte
	block []byte // decoded records of the current frame
	off   int

	count  int64
	err    error
	done   bool
	closed bool
}

var _ contact.RecordStream = (*Reader)(nil)

// Open opens a spill file for replay. The layout is inferred from the file
// extension unless WithReaderCompression overrides it.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		path:        path,
		compression: format.CompressionFromPath(path),
		engine:      endian.GetSpillEngine(),
	}

	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(r.compression)
	if err != nil {
		return nil, err
	}
	r.codec = codec

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spill: %w", err)
	}
	r.file = f
	r.br = bufio.NewReaderSize(f, readBufferSize)

	return r, nil
}

// Path returns the file being replayed.
func (r *Reader) Path() string {
	return r.path
}

// Count returns the number of records returned so far.
func (r *Reader) Count() int64 {
	return r.count
}

// Next returns the next record. It returns false at the end of the file, on a
// fault and after Close.
func (r *Reader) Next() (contact.Record, bool) {
	if r.done {
		return contact.Record{}, false
	}

	var (
		rec contact.Record
		ok  bool
	)
	if r.compression.Framed() {
		rec, ok = r.nextFramed()
	} else {
		rec, ok = r.nextRaw()
	}
	if !ok {
		return contact.Record{}, false
	}

	r.count++
	metrics.SpillRecordsRead.Inc()

	return rec, true
}

func (r *Reader) nextRaw() (contact.Record, bool) {
	_, err := io.ReadFull(r.br, r.rec[:])
	switch {
	case err == nil:
		return decodeRecord(r.engine, r.rec[:]), true
	case errors.Is(err, io.EOF):
		r.finish(nil)
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.finish(fmt.Errorf("%w after %d records", errs.ErrTruncatedRecord, r.count))
	default:
		r.finish(err)
	}

	return contact.Record{}, false
}

func (r *Reader) nextFramed() (contact.Record, bool) {
	if r.off >= len(r.block) {
		if !r.readFrame() {
			return contact.Record{}, false
		}
	}

	rec := decodeRecord(r.engine, r.block[r.off:])
	r.off += format.RecordSize

	return rec, true
}

func (r *Reader) readFrame() bool {
	_, err := io.ReadFull(r.br, r.hdr[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.finish(nil)
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.finish(fmt.Errorf("%w: short header after %d records", errs.ErrTruncatedFrame, r.count))
		return false
	default:
		r.finish(err)
		return false
	}

	hdr := parseFrameHeader(r.engine, r.hdr[:])
	if !hdr.valid() {
		r.finish(fmt.Errorf("%w: raw %d, payload %d", errs.ErrInvalidFrameSize, hdr.rawLen, hdr.payloadLen))
		return false
	}

	payload := make([]byte, hdr.payloadLen)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: short payload after %d records", errs.ErrTruncatedFrame, r.count)
		}
		r.finish(err)

		return false
	}

	raw, err := r.codec.Decompress(payload, int(hdr.rawLen))
	if err != nil {
		r.finish(err)
		return false
	}
	if !hash.Verify(raw, hdr.checksum) {
		r.finish(fmt.Errorf("%w after %d records", errs.ErrChecksumMismatch, r.count))
		return false
	}

	r.block = raw
	r.off = 0

	return true
}

// finish ends the replay. A nil fault is a clean end of file.
func (r *Reader) finish(fault error) {
	r.done = true
	r.block = nil

	if fault != nil {
		r.err = fmt.Errorf("spill: %s: %w", r.path, fault)
		metrics.SpillReadFaults.Inc()
		logrus.WithFields(logrus.Fields{
			"path":    r.path,
			"records": r.count,
		}).WithError(fault).Warn("spill replay stopped early")
	}

	r.release()
}

func (r *Reader) release() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.br = nil

	return err
}

// Err returns the fault that ended the replay, or nil after a clean end of file.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the file. Subsequent calls to Next return false.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true

	return r.release()
}

// All returns the remaining records as a sequence. Check Err afterwards.
func (r *Reader) All() iter.Seq[contact.Record] {
	return contact.Records(r)
}

// ReadAll replays a whole file into memory.
func ReadAll(path string, opts ...ReaderOption) ([]contact.Record, error) {
	r, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []contact.Record
	for rec := range r.All() {
		out = append(out, rec)
	}

	return out, r.Err()
}
