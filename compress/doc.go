// Package compress provides the block codecs used by framed spill files.
//
// A framed spill file stores contact records in blocks; each block is encoded
// by one of the codecs in this package before it is written:
//   - None: no compression, the raw 12-byte record layout
//   - Zstd: best ratio, moderate speed (klauspost/compress, or valyala/gozstd with the cgozstd tag)
//   - S2: balanced speed and ratio (klauspost/compress/s2)
//   - LZ4: fastest decompression (pierrec/lz4)
//
// Spilled contact records compress well because bins are written in sorted
// runs: neighbouring records share most of their binX/binY bytes.
//
// All codecs are safe for concurrent use.
package compress
