package compress

import (
	"fmt"

	"github.com/arloliu/hicnorm/errs"
	"github.com/arloliu/hicnorm/format"
)

// Compressor compresses one spill block.
type Compressor interface {
	// Compress returns the compressed form of data.
	// The returned slice may alias data for the no-op codec.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores one spill block.
type Decompressor interface {
	// Decompress restores data. size is the decoded size recorded in the frame
	// header; codecs use it to size their output buffer and must return an error
	// when the decoded block has a different length.
	Decompress(data []byte, size int) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the built-in Codec for the compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnknownCompression, compressionType)
}

func checkSize(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: decoded %d bytes, frame header says %d", name, got, want)
	}

	return nil
}
