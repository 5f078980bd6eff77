package spill

import (
	"fmt"

	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/internal/options"
)

const (
	// DefaultPrefix is the file name prefix used when none is configured.
	DefaultPrefix = "contacts"

	// DefaultBlockRecords is the number of records buffered per write or per frame.
	DefaultBlockRecords = 4096
)

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// ReaderOption configures a Reader.
type ReaderOption = options.Option[*Reader]

// WithPrefix sets the file name prefix of the session.
func WithPrefix(prefix string) WriterOption {
	return options.New(func(w *Writer) error {
		if prefix == "" {
			return fmt.Errorf("spill: empty file prefix")
		}
		w.prefix = prefix

		return nil
	})
}

// WithCompression selects the spill file layout.
// format.CompressionNone writes raw records; any other type writes checksummed frames.
func WithCompression(compression format.CompressionType) WriterOption {
	return options.New(func(w *Writer) error {
		switch compression {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			w.compression = compression
			return nil
		default:
			return fmt.Errorf("%w: %s", errs.ErrUnknownCompression, compression)
		}
	})
}

// WithBlockRecords sets how many records are buffered before a write.
// For compressed files this is also the number of records per frame.
func WithBlockRecords(n int) WriterOption {
	return options.New(func(w *Writer) error {
		if n < 1 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidBlockRecords, n)
		}
		w.blockRecords = n

		return nil
	})
}

// WithReaderCompression overrides the layout inferred from the file extension.
func WithReaderCompression(compression format.CompressionType) ReaderOption {
	return options.New(func(r *Reader) error {
		switch compression {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			r.compression = compression
			return nil
		default:
			return fmt.Errorf("%w: %s", errs.ErrUnknownCompression, compression)
		}
	})
}
