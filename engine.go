package bandalign

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LynnColeArt/bandalign/compute/myers"
	"github.com/LynnColeArt/bandalign/device"
	"github.com/LynnColeArt/bandalign/logging"
	"github.com/LynnColeArt/bandalign/planner"
)

// GlobalBandedAligner computes global edit-distance alignments of batches
// of pairs with the banded bit-parallel kernel. Work is chunked to fit a
// device memory budget and every chunk runs on the aligner's stream; pairs
// whose band proves too narrow are retried with a wider band up to the
// maximum bandwidth.
//
// An aligner is not safe for concurrent use. Independent aligners on
// independent streams may run concurrently and may share an allocator.
type GlobalBandedAligner struct {
	id       string
	budget   int64
	alloc    device.Allocator
	stream   *device.Stream
	deviceID int
	opts     options
	log      logging.Logger

	controller *BandwidthController
	batch      *RequestBatch

	// results is indexed by request index; nil while in flight.
	results   []*Alignment
	jobs      []*job
	published []*Alignment
	dirty     bool

	// Touched by stream tasks only, or after the stream was drained.
	scratch    device.DevicePtr
	scratchCap int64

	devAligns *DeviceAlignments
	deviceErr error
	destroyed bool

	// chunkHook observes every computed chunk; set by tests.
	chunkHook func(planner.Chunk)
}

var _ FixedBandAligner = (*GlobalBandedAligner)(nil)

// NewGlobalBandedAligner creates an aligner that never uses more than
// maxDeviceMemory bytes of scratch from alloc per chunk, never widens a band
// beyond maxBandwidth and issues all device work on stream.
func NewGlobalBandedAligner(maxDeviceMemory int64, maxBandwidth int, alloc device.Allocator, stream *device.Stream, deviceID int, opts ...Option) (*GlobalBandedAligner, error) {
	const op = "NewGlobalBandedAligner"
	if maxDeviceMemory <= 0 {
		return nil, NewInvalidInputError(op, fmt.Sprintf("device memory budget must be positive, got %d", maxDeviceMemory))
	}
	if maxBandwidth < MinMaxBandwidth {
		return nil, NewInvalidInputError(op, fmt.Sprintf("maximum bandwidth must be at least %d, got %d", MinMaxBandwidth, maxBandwidth))
	}
	if alloc == nil || stream == nil {
		return nil, NewInvalidInputError(op, "allocator and stream are required")
	}
	if _, err := device.GetDeviceProperties(deviceID); err != nil {
		return nil, NewDeviceError(op, "unknown device", err)
	}

	o := buildOptions(opts)
	if o.initialBandwidth <= 0 {
		return nil, NewInvalidInputError(op, fmt.Sprintf("initial bandwidth must be positive, got %d", o.initialBandwidth))
	}

	id := uuid.NewString()
	a := &GlobalBandedAligner{
		id:         id,
		budget:     maxDeviceMemory,
		alloc:      alloc,
		stream:     stream,
		deviceID:   deviceID,
		opts:       o,
		log:        o.logger.With(zap.String("aligner", id), zap.Int("device", deviceID)),
		controller: NewBandwidthController(o.growth, maxBandwidth),
		batch:      NewRequestBatch(o.maxSequenceLen, o.maxAlignments),
	}
	a.log.Debug("aligner created",
		zap.Int64("max_device_memory", maxDeviceMemory),
		zap.Int("max_bandwidth", maxBandwidth))
	return a, nil
}

// AddAlignment enqueues a pair with the aligner's initial bandwidth. The
// sequences are copied; with rcQuery or rcTarget set the reverse complement
// is aligned instead.
func (a *GlobalBandedAligner) AddAlignment(query, target []byte, rcQuery, rcTarget bool) error {
	return a.AddAlignmentWithBandwidth(a.controller.Clamp(a.opts.initialBandwidth), query, target, rcQuery, rcTarget)
}

// AddAlignmentWithBandwidth enqueues a pair whose first attempt uses band
// instead of the initial bandwidth.
func (a *GlobalBandedAligner) AddAlignmentWithBandwidth(band int, query, target []byte, rcQuery, rcTarget bool) error {
	if a.destroyed {
		return NewInvalidInputError("AddAlignment", "aligner destroyed")
	}
	_, err := a.batch.Add(query, target, rcQuery, rcTarget, band)
	return err
}

// AlignAll schedules every pending request on the stream and returns
// without waiting for the device. Requests that cannot fit the memory
// budget even alone are marked failed and reported with an error matching
// ErrOutOfMemory; the other requests are scheduled regardless.
func (a *GlobalBandedAligner) AlignAll() error {
	const op = "AlignAll"
	if a.destroyed {
		return NewInvalidInputError(op, "aligner destroyed")
	}
	if a.deviceErr != nil {
		return a.deviceErr
	}

	indices := a.batch.take()
	if len(indices) == 0 {
		return nil
	}
	a.dirty = true

	j := newJob(indices, a.controller.Limit(), a.opts.growth)
	oversized := 0
	for k, idx := range indices {
		r := *a.batch.get(idx)
		r.band = a.controller.Clamp(r.band)
		j.reqs[k] = &r
		if cost(&r) > a.budget {
			j.finish(k, failedAlignment(&r, StatusFailed))
			oversized++
		}
	}

	a.jobs = append(a.jobs, j)
	if err := a.stream.Submit(func() error { return a.run(j) }); err != nil {
		a.deviceErr = NewDeviceError(op, "submit to stream", err)
		a.log.Error("submit failed", zap.Error(err))
		return a.deviceErr
	}

	if oversized > 0 {
		a.log.Warn("requests exceed device memory budget",
			zap.Int("requests", oversized), zap.Int64("budget", a.budget))
		return &AlignError{
			Type:    ErrTypeOutOfMemory,
			Op:      op,
			Message: fmt.Sprintf("%d requests exceed the budget of %d bytes", oversized, a.budget),
		}
	}
	return nil
}

// SyncAlignments schedules requests added since the last AlignAll, waits
// for all device work of the aligner and publishes the results in insertion
// order. Calling it again without an intervening change returns the same
// results.
func (a *GlobalBandedAligner) SyncAlignments() error {
	if a.destroyed {
		return NewInvalidInputError("SyncAlignments", "aligner destroyed")
	}

	var flushErr error
	if a.batch.Pending() > 0 && a.deviceErr == nil {
		flushErr = a.AlignAll()
	}
	a.drain()
	a.publish()

	if a.deviceErr != nil {
		return a.deviceErr
	}
	return flushErr
}

// drain waits for the stream and merges finished jobs into results.
func (a *GlobalBandedAligner) drain() {
	if err := a.stream.Synchronize(); err != nil && a.deviceErr == nil {
		if !IsDeviceError(err) {
			err = NewDeviceError("SyncAlignments", "device work failed", err)
		}
		a.deviceErr = err
		a.log.Error("device work failed", zap.Error(err))
	}

	if n := a.batch.Len(); len(a.results) < n {
		a.results = append(a.results, make([]*Alignment, n-len(a.results))...)
	}
	for _, j := range a.jobs {
		for k, idx := range j.indices {
			res := j.results[k]
			if res == nil {
				res = failedAlignment(j.reqs[k], StatusFailed)
			}
			a.results[idx] = res
		}
	}
	a.jobs = nil
}

func (a *GlobalBandedAligner) publish() {
	if !a.dirty {
		return
	}
	a.releaseDeviceAlignments()

	out := make([]*Alignment, 0, len(a.results))
	for _, r := range a.results {
		if r != nil {
			out = append(out, r)
		}
	}
	a.published = out
	a.dirty = false
}

// Alignments returns the results published by the last SyncAlignments in
// insertion order.
func (a *GlobalBandedAligner) Alignments() []*Alignment {
	return slices.Clone(a.published)
}

// AlignmentsDevice returns the published results as a device-resident
// descriptor. The descriptor is owned by the aligner and valid until the
// next SyncAlignments that changes results, Reset or Destroy.
func (a *GlobalBandedAligner) AlignmentsDevice() (*DeviceAlignments, error) {
	if a.destroyed {
		return nil, NewInvalidInputError("AlignmentsDevice", "aligner destroyed")
	}
	if a.devAligns != nil {
		return a.devAligns, nil
	}
	d, err := newDeviceAlignments(a.alloc, a.published)
	if err != nil {
		return nil, NewDeviceError("AlignmentsDevice", "export alignments", err)
	}
	a.devAligns = d
	return d, nil
}

// Reset drops all requests and results. Outstanding device work is waited
// for and discarded together with any device error.
func (a *GlobalBandedAligner) Reset() {
	if err := a.stream.Synchronize(); err != nil {
		a.log.Debug("discarding device error on reset", zap.Error(err))
	}
	a.jobs = nil
	a.freeScratch()
	a.releaseDeviceAlignments()

	a.batch.Reset()
	a.results = nil
	a.published = nil
	a.dirty = false
	a.deviceErr = nil
}

// ResetMaxBandwidth changes the maximum bandwidth. Scratch storage is
// released and reallocated for the new limit by the next AlignAll. Finished
// results stay; requests that ended band_exceeded, band_too_narrow or
// failed are attempted again by the next AlignAll.
func (a *GlobalBandedAligner) ResetMaxBandwidth(maxBandwidth int) error {
	if maxBandwidth < MinMaxBandwidth {
		return NewInvalidInputError("ResetMaxBandwidth", fmt.Sprintf("maximum bandwidth must be at least %d, got %d", MinMaxBandwidth, maxBandwidth))
	}
	a.drain()
	a.freeScratch()
	a.controller.SetLimit(maxBandwidth)

	requeued := 0
	for idx, res := range a.results {
		if res == nil || res.status == StatusSuccess {
			continue
		}
		r := a.batch.get(idx)
		a.batch.requeue(idx, a.controller.Clamp(max(r.initialBand, res.bandwidth)))
		a.results[idx] = nil
		requeued++
	}
	if requeued > 0 {
		a.dirty = true
	}
	a.log.Info("maximum bandwidth changed",
		zap.Int("max_bandwidth", maxBandwidth), zap.Int("requeued", requeued))
	return nil
}

// Destroy waits for outstanding work and releases device memory. The
// stream is not owned by the aligner and stays usable.
func (a *GlobalBandedAligner) Destroy() {
	if a.destroyed {
		return
	}
	a.Reset()
	a.destroyed = true
}

// ID returns the aligner instance identifier used in logs and traces.
func (a *GlobalBandedAligner) ID() string { return a.id }

// Stream returns the stream the aligner issues its work on.
func (a *GlobalBandedAligner) Stream() *device.Stream { return a.stream }

// DeviceID returns the device the aligner was created for.
func (a *GlobalBandedAligner) DeviceID() int { return a.deviceID }

// Allocator returns the device memory allocator.
func (a *GlobalBandedAligner) Allocator() device.Allocator { return a.alloc }

// MaxBandwidth returns the current maximum bandwidth.
func (a *GlobalBandedAligner) MaxBandwidth() int { return a.controller.Limit() }

// MaxDeviceMemory returns the per-chunk device memory budget in bytes.
func (a *GlobalBandedAligner) MaxDeviceMemory() int64 { return a.budget }

func (a *GlobalBandedAligner) freeScratch() {
	if a.scratch.IsNil() {
		return
	}
	if err := a.alloc.Free(a.scratch); err != nil {
		a.log.Warn("releasing scratch failed", zap.Error(err))
	}
	a.scratch = device.DevicePtr{}
	a.scratchCap = 0
}

func (a *GlobalBandedAligner) releaseDeviceAlignments() {
	if a.devAligns == nil {
		return
	}
	if err := a.devAligns.free(); err != nil {
		a.log.Warn("releasing device alignments failed", zap.Error(err))
	}
	a.devAligns = nil
}

// cost is the device footprint of one attempt: the kernel trace plus both
// sequences, padded to a word.
func cost(r *request) int64 {
	return myers.ScratchBytes(len(r.query), len(r.target), r.band) + int64(alignWord(len(r.query)+len(r.target)))
}

func alignWord(n int) int {
	return (n + 7) &^ 7
}
