// Package spill streams contact records to and from temporary disk files.
//
// A Writer is a spill session: it owns the file-naming counter and a session
// id, so several sessions can share a directory. Write consumes a record
// sequence and rolls over to a new file every limit records:
//
//	w, err := spill.NewWriter(dir, spill.WithCompression(format.CompressionS2))
//	paths, err := w.Write(records, 1_000_000)
//
// Raw files (format.CompressionNone) hold back-to-back 12-byte little-endian
// records {int32 binX, int32 binY, float32 count} with no header or footer.
// Compressed files hold a sequence of frames:
//
//	+------------+----------------+----------------+-----------------+
//	| rawLen u32 | payloadLen u32 | xxhash64(raw)  | payload         |
//	+------------+----------------+----------------+-----------------+
//
// where raw is a whole number of records and payload is raw after compression.
//
// A Reader replays one file lazily and exactly once. Next returns false at a
// clean end of file and on any fault; Err tells them apart. OpenAll chains
// several files into one contact.RecordStream in the given order.
package spill
