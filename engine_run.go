package bandalign

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/LynnColeArt/bandalign/compute/myers"
	"github.com/LynnColeArt/bandalign/device"
	"github.com/LynnColeArt/bandalign/planner"
)

// job is the unit of work one AlignAll submits to the stream. It owns
// snapshots of its requests so retries never touch the batch, and is read
// by the caller only after the stream was synchronized.
type job struct {
	indices []int
	reqs    []*request
	results []*Alignment
	ctrl    *BandwidthController
}

func newJob(indices []int, limit int, policy GrowthPolicy) *job {
	return &job{
		indices: indices,
		reqs:    make([]*request, len(indices)),
		results: make([]*Alignment, len(indices)),
		ctrl:    NewBandwidthController(policy, limit),
	}
}

func (j *job) finish(k int, res *Alignment) {
	j.results[k] = res
	alignmentsCounter.WithLabelValues(res.status.String()).Inc()
}

// run computes a job on the stream: plan chunks, run them one after the
// other and re-plan the requests that need a wider band until none is left.
func (a *GlobalBandedAligner) run(j *job) error {
	ctx, span := tracer.Start(context.Background(), "GlobalBandedAligner.AlignAll", trace.WithAttributes(
		attribute.String("aligner", a.id),
		attribute.Int("requests", len(j.indices)),
	))
	defer span.End()

	var queue []int
	for k, res := range j.results {
		if res == nil {
			queue = append(queue, k)
		}
	}

	for round := 0; len(queue) > 0; round++ {
		items := make([]planner.Item, len(queue))
		for n, k := range queue {
			items[n] = planner.Item{Index: k, Bytes: cost(j.reqs[k])}
		}
		chunks, oversized, err := planner.Plan(items, a.budget)
		if err != nil {
			a.log.ErrorWithContext(ctx, "planning failed", zap.Error(err))
			return NewDeviceError("AlignAll", "planning failed", err)
		}
		// Only retries get here: the widened band no longer fits the budget.
		for _, it := range oversized {
			a.log.WarnWithContext(ctx, "widened band exceeds device memory budget",
				zap.Int("request", j.indices[it.Index]), zap.Int("bandwidth", j.reqs[it.Index].band))
			j.finish(it.Index, failedAlignment(j.reqs[it.Index], StatusBandExceeded))
		}
		span.AddEvent("planned", trace.WithAttributes(
			attribute.Int("round", round),
			attribute.Int("chunks", len(chunks)),
		))

		if err := a.ensureScratch(planner.Largest(chunks)); err != nil {
			span.RecordError(err)
			a.log.ErrorWithContext(ctx, "scratch allocation failed", zap.Error(err))
			return err
		}

		var next []int
		for _, c := range chunks {
			narrow, err := a.runChunk(ctx, j, c)
			if err != nil {
				span.RecordError(err)
				a.log.ErrorWithContext(ctx, "chunk failed", zap.Int("pairs", len(c.Items)), zap.Error(err))
				return err
			}
			for _, k := range narrow {
				r := j.reqs[k]
				switch d, band := j.ctrl.Decide(r.band); d {
				case Retry:
					r.band = band
					next = append(next, k)
					bandRetryCounter.Inc()
				case GiveUp:
					j.finish(k, failedAlignment(r, StatusBandTooNarrow))
				case Exceeded:
					a.log.WarnWithContext(ctx, "band exceeded",
						zap.Int("request", j.indices[k]), zap.Int("bandwidth", r.band))
					j.finish(k, failedAlignment(r, StatusBandExceeded))
				}
			}
		}
		queue = next
	}
	return nil
}

// ensureScratch makes the scratch buffer hold at least need bytes. A
// buffer that is too small is released and allocated again at full size.
func (a *GlobalBandedAligner) ensureScratch(need int64) error {
	if need == 0 || need <= a.scratchCap {
		return nil
	}
	if !a.scratch.IsNil() {
		if err := a.alloc.Free(a.scratch); err != nil {
			return NewDeviceError("AlignAll", "release scratch", err)
		}
		a.scratch = device.DevicePtr{}
		a.scratchCap = 0
	}

	p, err := a.alloc.Allocate(int(need))
	if err != nil {
		return NewDeviceError("AlignAll", fmt.Sprintf("allocate %d bytes of scratch", need), err)
	}
	a.scratch = p
	a.scratchCap = need
	scratchReallocationCounter.Inc()
	a.log.Debug("scratch allocated", zap.Int64("bytes", need))
	return nil
}

// slot is the scratch region of one pair in a chunk.
type slot struct {
	trace, query, target device.DevicePtr
}

// runChunk copies the chunk's sequences to the device, runs the kernel with
// one execution unit per pair and then the traceback of verified pairs. It
// returns the job positions of pairs whose band was too narrow.
func (a *GlobalBandedAligner) runChunk(ctx context.Context, j *job, c planner.Chunk) ([]int, error) {
	ctx, span := tracer.Start(ctx, "GlobalBandedAligner.runChunk", trace.WithAttributes(
		attribute.Int("pairs", len(c.Items)),
		attribute.Int64("bytes", c.Bytes),
		attribute.IntSlice("positions", c.Indices()),
	))
	defer span.End()

	slots := make([]slot, len(c.Items))
	off := 0
	for n, it := range c.Items {
		r := j.reqs[it.Index]
		traceBytes := int(myers.ScratchBytes(len(r.query), len(r.target), r.band))
		s := &slots[n]
		s.trace = a.scratch.Slice(off, traceBytes)
		off += traceBytes
		s.query = a.scratch.Slice(off, len(r.query))
		off += len(r.query)
		s.target = a.scratch.Slice(off, len(r.target))
		off = alignWord(off + len(r.target))

		if err := device.Memcpy(s.query, r.query, len(r.query), device.MemcpyHostToDevice); err != nil {
			return nil, NewDeviceError("AlignAll", "copy query", err)
		}
		if err := device.Memcpy(s.target, r.target, len(r.target), device.MemcpyHostToDevice); err != nil {
			return nil, NewDeviceError("AlignAll", "copy target", err)
		}
	}

	grid := device.Dim3{X: (len(c.Items) + pairsPerBlock - 1) / pairsPerBlock}
	block := device.Dim3{X: pairsPerBlock}

	traces := make([]*myers.Trace, len(c.Items))
	err := device.LaunchGrid(grid, block, func(tid device.ThreadID) error {
		n := tid.Global()
		if n >= len(c.Items) {
			return nil
		}
		s := slots[n]
		tr, err := myers.Compute(s.query.Byte(), s.target.Byte(), j.reqs[c.Items[n].Index].band, s.trace.Uint64())
		traces[n] = tr
		return err
	})
	if err != nil {
		return nil, NewDeviceError("AlignAll", "banded kernel failed", err)
	}

	ops := make([][]Op, len(c.Items))
	err = device.LaunchGrid(grid, block, func(tid device.ThreadID) error {
		n := tid.Global()
		if n >= len(c.Items) || traces[n].Status != myers.Verified {
			return nil
		}
		var err error
		ops[n], err = traces[n].Ops()
		return err
	})
	if err != nil {
		return nil, NewDeviceError("AlignAll", "traceback failed", err)
	}

	var narrow []int
	for n, it := range c.Items {
		tr, r := traces[n], j.reqs[it.Index]
		if tr.Status != myers.Verified {
			narrow = append(narrow, it.Index)
			continue
		}
		j.finish(it.Index, &Alignment{
			query:     r.query,
			target:    r.target,
			rcQuery:   r.rcQuery,
			rcTarget:  r.rcTarget,
			distance:  tr.Distance,
			ops:       ops[n],
			status:    StatusSuccess,
			bandwidth: r.band,
		})
	}

	if a.chunkHook != nil {
		a.chunkHook(c)
	}
	chunksLaunchedCounter.Inc()
	pairsComputedCounter.Add(float64(len(c.Items)))
	chunkBytesHistogram.Observe(float64(c.Bytes))
	a.log.DebugWithContext(ctx, "chunk computed",
		zap.Int("pairs", len(c.Items)),
		zap.Int64("bytes", c.Bytes),
		zap.Int("unverified", len(narrow)))
	return narrow, nil
}
