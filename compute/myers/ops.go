// Package myers implements a banded bit-parallel edit-distance kernel
// (Myers' block recurrence restricted to a diagonal band) together with the
// traceback that turns its compact per-position trace into alignment
// operations, and an unbanded reference routine used for verification.
package myers

// Op is one alignment operation between a query and a target.
type Op uint8

const (
	// Match consumes one base of each sequence, the bases are equal.
	Match Op = iota
	// Mismatch consumes one base of each sequence, the bases differ.
	Mismatch
	// Insertion consumes a query base that is absent from the target.
	Insertion
	// Deletion consumes a target base that is absent from the query.
	Deletion
)

func (o Op) String() string {
	switch o {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// Cost returns the edit cost of the operation.
func (o Op) Cost() int {
	if o == Match {
		return 0
	}
	return 1
}

// Status is the verification outcome of a banded computation.
type Status uint8

const (
	// Verified means the banded distance equals the unbanded optimum.
	Verified Status = iota
	// BandTooNarrow means the optimum may leave the band; the distance is
	// only an upper bound and must not be reported.
	BandTooNarrow
)

func (s Status) String() string {
	if s == Verified {
		return "verified"
	}
	return "band_too_narrow"
}
