package contact

import "fmt"

// WholeGenome is the synthetic chromosome id used for whole-genome streams.
const WholeGenome = 0

// Record is one observed or aggregated contact between two bins.
type Record struct {
	BinX  int32
	BinY  int32
	Count float32
}

// Upper returns the record with BinX <= BinY.
func (r Record) Upper() Record {
	if r.BinX > r.BinY {
		r.BinX, r.BinY = r.BinY, r.BinX
	}

	return r
}

func (r Record) String() string {
	return fmt.Sprintf("(%d, %d, %g)", r.BinX, r.BinY, r.Count)
}

// Contact is a chromosome-tagged contact in base-pair coordinates.
type Contact struct {
	Chr1  int
	Pos1  int
	Chr2  int
	Pos2  int
	Score float32
}

// FromRecord scales a record by resolution and tags it with a chromosome pair.
func FromRecord(r Record, chr1, chr2, resolution int) Contact {
	return Contact{
		Chr1:  chr1,
		Pos1:  int(r.BinX) * resolution,
		Chr2:  chr2,
		Pos2:  int(r.BinY) * resolution,
		Score: r.Count,
	}
}
