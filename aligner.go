package bandalign

import (
	"github.com/LynnColeArt/bandalign/device"
)

// Aligner is the batch alignment capability shared by all strategies.
type Aligner interface {
	// AddAlignment enqueues a pair without touching the device.
	AddAlignment(query, target []byte, rcQuery, rcTarget bool) error
	// AlignAll schedules pending pairs; work may still run when it returns.
	AlignAll() error
	// SyncAlignments waits for scheduled work and publishes results.
	SyncAlignments() error
	// Reset drops all requests and results.
	Reset()
	// Alignments returns the published results in insertion order.
	Alignments() []*Alignment
	// Destroy releases device memory.
	Destroy()
}

// FixedBandAligner is an Aligner whose kernel is restricted to a band.
type FixedBandAligner interface {
	Aligner
	AddAlignmentWithBandwidth(band int, query, target []byte, rcQuery, rcTarget bool) error
	ResetMaxBandwidth(maxBandwidth int) error
	MaxBandwidth() int
	AlignmentsDevice() (*DeviceAlignments, error)
}

// AlignerType selects an alignment strategy.
type AlignerType int

const (
	// GlobalMyersBanded is the banded bit-parallel global aligner.
	GlobalMyersBanded AlignerType = iota
	// GlobalMyers is the unbanded bit-parallel global aligner.
	GlobalMyers
	// GlobalHirschbergMyers is the linear-memory global aligner.
	GlobalHirschbergMyers
	// UngappedXDrop is the seed extension strategy.
	UngappedXDrop
)

func (t AlignerType) String() string {
	switch t {
	case GlobalMyersBanded:
		return "global_myers_banded"
	case GlobalMyers:
		return "global_myers"
	case GlobalHirschbergMyers:
		return "global_hirschberg_myers"
	case UngappedXDrop:
		return "ungapped_xdrop"
	default:
		return "unknown"
	}
}

// NewAligner creates an aligner of the given type. Only GlobalMyersBanded is
// available; other types return an error matching ErrNotImplemented.
func NewAligner(t AlignerType, maxDeviceMemory int64, maxBandwidth int, alloc device.Allocator, stream *device.Stream, deviceID int, opts ...Option) (Aligner, error) {
	switch t {
	case GlobalMyersBanded:
		a, err := NewGlobalBandedAligner(maxDeviceMemory, maxBandwidth, alloc, stream, deviceID, opts...)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, NewNotImplementedError("NewAligner", "aligner type "+t.String())
	}
}
