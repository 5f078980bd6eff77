// Package format defines the small enum types shared by the spill codec and
// its configuration.
package format

import (
	"fmt"
	"strings"
)

type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone writes raw 12-byte records.
	CompressionZstd CompressionType = 0x2 // CompressionZstd writes zstd-compressed frames.
	CompressionS2   CompressionType = 0x3 // CompressionS2 writes S2-compressed frames.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 writes LZ4 block frames.
)

// RecordSize is the size in bytes of one serialized contact record:
// int32 binX, int32 binY, float32 count.
const RecordSize = 12

// SpillExtension is the file extension of raw spill files.
const SpillExtension = ".bin"

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Framed reports whether files written with this compression use the framed layout.
func (c CompressionType) Framed() bool {
	return c != CompressionNone
}

// Extension returns the spill file extension for the compression type.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionZstd:
		return SpillExtension + ".zst"
	case CompressionS2:
		return SpillExtension + ".s2"
	case CompressionLZ4:
		return SpillExtension + ".lz4"
	default:
		return SpillExtension
	}
}

// CompressionFromPath infers the compression type from a spill file name.
// Unknown extensions are treated as raw files.
func CompressionFromPath(path string) CompressionType {
	switch {
	case strings.HasSuffix(path, CompressionZstd.Extension()):
		return CompressionZstd
	case strings.HasSuffix(path, CompressionS2.Extension()):
		return CompressionS2
	case strings.HasSuffix(path, CompressionLZ4.Extension()):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// ParseCompression parses a case-insensitive compression name such as "zstd".
func ParseCompression(name string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "raw":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}
