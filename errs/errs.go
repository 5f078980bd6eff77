// Package errs defines the sentinel errors shared across hicnorm packages.
//
// Callers should compare with errors.Is, since most functions wrap these
// sentinels with additional context.
package errs

import "errors"

// Spill codec errors.
var (
	ErrInvalidLimit        = errors.New("spill: record limit must be positive")
	ErrInvalidBlockRecords = errors.New("spill: block record count must be positive")
	ErrTruncatedRecord     = errors.New("spill: truncated record")
	ErrTruncatedFrame      = errors.New("spill: truncated frame")
	ErrInvalidFrameSize    = errors.New("spill: invalid frame size")
	ErrChecksumMismatch    = errors.New("spill: frame checksum mismatch")
	ErrUnknownCompression  = errors.New("spill: unknown compression type")
)

// Iterator errors.
var (
	ErrIteratorExhausted = errors.New("contact: iterator exhausted")
	ErrIteratorClosed    = errors.New("contact: iterator closed")
	ErrStreamNotFound    = errors.New("contact: stream not found")
)

// Cutoff estimator errors.
var (
	ErrInvalidLevel = errors.New("cutoff: invalid severity level range")
)

// Matrix and balancer errors.
var (
	ErrDimensionMismatch = errors.New("balance: coordinate array length mismatch")
	ErrInvalidDimension  = errors.New("balance: matrix dimension must be positive")
	ErrIndexOutOfRange   = errors.New("balance: bin index out of range")
	ErrLowerTriangle     = errors.New("balance: entry below diagonal")
	ErrBufferSize        = errors.New("balance: buffer size does not match dimension")
	ErrInvalidParameter  = errors.New("balance: invalid parameter")
)

// Aggregation errors.
var (
	ErrInvalidResolution = errors.New("aggregate: resolution must be positive")
	ErrInvalidSites      = errors.New("aggregate: fragment sites must be sorted ascending")
)
