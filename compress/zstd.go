package compress

// ZstdCompressor provides Zstandard compression for spill blocks.
//
// The pure Go implementation (klauspost/compress/zstd) is used by default;
// building with the cgozstd tag switches to the cgo binding (valyala/gozstd).
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
