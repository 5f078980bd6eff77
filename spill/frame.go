package spill

import (
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/endian"
	"github.com/arloliu/hicnorm/format"
)

const (
	// frameHeaderSize is rawLen(4) + payloadLen(4) + checksum(8).
	frameHeaderSize = 16

	// maxFrameSize bounds both lengths of a frame header. Anything larger is
	// treated as corruption rather than an allocation request.
	maxFrameSize = 1 << 30
)

type frameHeader struct {
	rawLen     uint32
	payloadLen uint32
	checksum   uint64
}

func (h frameHeader) appendTo(engine endian.EndianEngine, b []byte) []byte {
	b = engine.AppendUint32(b, h.rawLen)
	b = engine.AppendUint32(b, h.payloadLen)

	return engine.AppendUint64(b, h.checksum)
}

func parseFrameHeader(engine endian.EndianEngine, b []byte) frameHeader {
	return frameHeader{
		rawLen:     engine.Uint32(b[0:4]),
		payloadLen: engine.Uint32(b[4:8]),
		checksum:   engine.Uint64(b[8:16]),
	}
}

func (h frameHeader) valid() bool {
	return h.rawLen > 0 &&
		h.rawLen%format.RecordSize == 0 &&
		h.rawLen <= maxFrameSize &&
		h.payloadLen <= maxFrameSize
}

// appendRecord serializes r in spill byte order.
func appendRecord(engine endian.EndianEngine, b []byte, r contact.Record) []byte {
	b = endian.AppendInt32(engine, b, r.BinX)
	b = endian.AppendInt32(engine, b, r.BinY)

	return endian.AppendFloat32(engine, b, r.Count)
}

// decodeRecord reads one record from the first format.RecordSize bytes of b.
func decodeRecord(engine endian.EndianEngine, b []byte) contact.Record {
	return contact.Record{
		BinX:  endian.Int32(engine, b[0:4]),
		BinY:  endian.Int32(engine, b[4:8]),
		Count: endian.Float32(engine, b[8:12]),
	}
}
