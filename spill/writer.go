package spill

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/hicnorm/compress"
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/endian"
	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/internal/hash"
	"github.com/arloliu/hicnorm/internal/metrics"
	"github.com/arloliu/hicnorm/internal/options"
	"github.com/arloliu/hicnorm/internal/pool"
)

// Writer is a spill session writing record files into one directory.
//
// File names are <prefix>-<session>-<seq><ext>, where seq counts files created
// by this session starting at 1. The Writer never deletes files.
//
// Note: a Writer is NOT thread-safe.
type Writer struct {
	dir          string
	prefix       string
	session      string
	compression  format.CompressionType
	blockRecords int
	codec        compress.Codec
	engine       endian.EndianEngine
	seq          int
}

// NewWriter creates a spill session writing into dir. The directory must exist.
//
// Parameters:
//   - dir: Directory receiving the spill files
//   - opts: Optional prefix, compression and block size
//
// Returns:
//   - *Writer: New session with its own file counter
//   - error: Invalid options or unusable directory
func NewWriter(dir string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dir:          dir,
		prefix:       DefaultPrefix,
		session:      uuid.NewString(),
		compression:  format.CompressionNone,
		blockRecords: DefaultBlockRecords,
		engine:       endian.GetSpillEngine(),
	}

	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spill: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spill: %s is not a directory", dir)
	}

	codec, err := compress.GetCodec(w.compression)
	if err != nil {
		return nil, err
	}
	w.codec = codec

	return w, nil
}

// Session returns the session id embedded in every file name.
func (w *Writer) Session() string {
	return w.session
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Compression returns the layout of the files this session writes.
func (w *Writer) Compression() format.CompressionType {
	return w.compression
}

// Write consumes records until the sequence ends, starting a new file after
// every limit records.
//
// Every returned file except possibly the last holds exactly limit records and
// the files together hold every input record in order. An empty sequence
// creates no files. On error the paths created so far are returned with it;
// the partially written file is among them.
func (w *Writer) Write(records iter.Seq[contact.Record], limit int) ([]string, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidLimit, limit)
	}

	var (
		paths []string
		sink  *fileSink
		err   error
	)

	for r := range records {
		if sink == nil {
			sink, err = w.create()
			if err != nil {
				break
			}
			paths = append(paths, sink.path)
		}

		if err = sink.add(r); err != nil {
			break
		}

		if sink.count == limit {
			err = sink.close()
			sink = nil
			if err != nil {
				break
			}
		}
	}

	if sink != nil {
		err = errors.Join(err, sink.close())
	}

	return paths, err
}

func (w *Writer) create() (*fileSink, error) {
	w.seq++
	name := fmt.Sprintf("%s-%s-%06d%s", w.prefix, w.session, w.seq, w.compression.Extension())
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("spill: %w", err)
	}

	metrics.SpillFilesCreated.WithLabelValues(w.compression.String()).Inc()

	return &fileSink{
		w:    w,
		path: path,
		file: f,
		buf:  pool.GetSpillBuffer(),
	}, nil
}

// fileSink is one open spill file.
type fileSink struct {
	w     *Writer
	path  string
	file  *os.File
	buf   *pool.ByteBuffer
	count int
}

func (s *fileSink) add(r contact.Record) error {
	s.buf.Grow(format.RecordSize)
	s.buf.B = appendRecord(s.w.engine, s.buf.B, r)
	s.count++

	if s.buf.Len() >= s.w.blockRecords*format.RecordSize {
		return s.flush()
	}

	return nil
}

func (s *fileSink) flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	defer s.buf.Reset()

	if !s.w.compression.Framed() {
		if _, err := s.buf.WriteTo(s.file); err != nil {
			return fmt.Errorf("spill: write %s: %w", s.path, err)
		}
		metrics.SpillRecordsWritten.Add(float64(s.buf.Len() / format.RecordSize))

		return nil
	}

	raw := s.buf.Bytes()
	payload, err := s.w.codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("spill: compress %s: %w", s.path, err)
	}

	hdr := frameHeader{
		rawLen:     uint32(len(raw)),     //nolint:gosec
		payloadLen: uint32(len(payload)), //nolint:gosec
		checksum:   hash.Checksum(raw),
	}
	// Header and payload go out in one write.
	frame := pool.GetSpillBuffer()
	defer pool.PutSpillBuffer(frame)

	frame.Grow(frameHeaderSize + len(payload))
	frame.B = hdr.appendTo(s.w.engine, frame.B)
	_, _ = frame.Write(payload)
	if _, err := frame.WriteTo(s.file); err != nil {
		return fmt.Errorf("spill: write %s: %w", s.path, err)
	}
	metrics.SpillRecordsWritten.Add(float64(len(raw) / format.RecordSize))

	return nil
}

func (s *fileSink) close() error {
	err := s.flush()
	pool.PutSpillBuffer(s.buf)
	s.buf = nil

	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("spill: close %s: %w", s.path, cerr)
	}

	logrus.WithFields(logrus.Fields{
		"path":    s.path,
		"records": s.count,
	}).Debug("spill file closed")

	return err
}

// Remove deletes spill files. Missing files are ignored.
func Remove(paths []string) error {
	var err error
	for _, p := range paths {
		if rerr := os.Remove(p); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = errors.Join(err, rerr)
		}
	}

	return err
}
