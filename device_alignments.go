package bandalign

import (
	"github.com/LynnColeArt/bandalign/device"
)

// DeviceAlignments describes alignment results in device memory for a
// consumer running on the same device. Row k of Ops starts at byte
// k*Stride and holds Length(k) operations, one byte each; Lengths and
// Distances hold one int32 per alignment. Results that did not succeed have
// length 0 and distance -1.
//
// The descriptor does not own its memory: it belongs to the aligner that
// returned it and must not be used after that aligner is reset, destroyed
// or synchronized with new results.
type DeviceAlignments struct {
	Ops       device.DevicePtr
	Lengths   device.DevicePtr
	Distances device.DevicePtr
	Count     int
	Stride    int

	alloc device.Allocator
}

func newDeviceAlignments(alloc device.Allocator, results []*Alignment) (_ *DeviceAlignments, err error) {
	d := &DeviceAlignments{Count: len(results), alloc: alloc}
	for _, r := range results {
		d.Stride = max(d.Stride, len(r.ops))
	}
	if d.Count == 0 {
		return d, nil
	}
	defer func() {
		if err != nil {
			d.free()
		}
	}()

	ops := make([]byte, d.Count*d.Stride)
	lengths := make([]int32, d.Count)
	distances := make([]int32, d.Count)
	for k, r := range results {
		row := ops[k*d.Stride:]
		for i, op := range r.ops {
			row[i] = byte(op)
		}
		lengths[k] = int32(len(r.ops))
		distances[k] = int32(r.distance)
	}

	if d.Lengths, err = alloc.Allocate(d.Count * 4); err != nil {
		return nil, err
	}
	if err = device.Memcpy(d.Lengths, lengths, d.Count*4, device.MemcpyHostToDevice); err != nil {
		return nil, err
	}
	if d.Distances, err = alloc.Allocate(d.Count * 4); err != nil {
		return nil, err
	}
	if err = device.Memcpy(d.Distances, distances, d.Count*4, device.MemcpyHostToDevice); err != nil {
		return nil, err
	}
	if len(ops) > 0 {
		if d.Ops, err = alloc.Allocate(len(ops)); err != nil {
			return nil, err
		}
		if err = device.Memcpy(d.Ops, ops, len(ops), device.MemcpyHostToDevice); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Length returns the number of operations of alignment k.
func (d *DeviceAlignments) Length(k int) int {
	return int(d.Lengths.Int32()[k])
}

// Distance returns the edit distance of alignment k.
func (d *DeviceAlignments) Distance(k int) int {
	return int(d.Distances.Int32()[k])
}

// Operations reads the operations of alignment k back from the device.
func (d *DeviceAlignments) Operations(k int) []Op {
	n := d.Length(k)
	if n == 0 {
		return nil
	}
	out := make([]Op, n)
	row := d.Ops.Byte()[k*d.Stride : k*d.Stride+n]
	for i, b := range row {
		out[i] = Op(b)
	}
	return out
}

func (d *DeviceAlignments) free() error {
	var first error
	for _, p := range []*device.DevicePtr{&d.Ops, &d.Lengths, &d.Distances} {
		if p.IsNil() {
			continue
		}
		if err := d.alloc.Free(*p); err != nil && first == nil {
			first = err
		}
		*p = device.DevicePtr{}
	}
	return first
}
