package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer.
// All memory is host-accessible, so the kinds are kept for API symmetry and
// only validated.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

// Alignment of every allocation in bytes (cache line).
const Alignment = 64

//go:generate mockgen -destination ../internal/mocks/mock_allocator.go -package mocks github.com/LynnColeArt/bandalign/device Allocator

// Allocator is the device memory capability consumed by the aligner.
// Implementations must be safe for concurrent use when shared by several
// engines.
type Allocator interface {
	Allocate(size int) (DevicePtr, error)
	Free(ptr DevicePtr) error
}

// MemoryPool manages device memory allocation with reuse.
// It keeps a free list of previously allocated blocks to reduce
// allocation overhead.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte
	size int
	used bool
}

// DevicePtr represents a region of device memory. Use the view methods
// (Byte, Int32, Uint64) to access the data and Offset for sub-regions.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

var _ Allocator = (*MemoryPool)(nil)

// NewMemoryPool creates a new memory pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Malloc allocates device memory of the specified size in bytes.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy copies size bytes between host slices and device memory.
// Supported operands are DevicePtr, []byte, []int32 and []uint64.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return Memcpy(dst, src, size, kind)
}

// Memcpy copies size bytes from src to dst. See Context.Memcpy.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	if kind < MemcpyHostToHost || kind > MemcpyDeviceToDevice {
		return NewInvalidArgError("Memcpy", fmt.Sprintf("unknown copy kind %d", kind))
	}
	if size < 0 {
		return ErrInvalidSize
	}
	if size == 0 {
		return nil
	}

	d, err := bytesOf("dst", dst)
	if err != nil {
		return err
	}
	s, err := bytesOf("src", src)
	if err != nil {
		return err
	}
	if len(d) < size || len(s) < size {
		return NewInvalidArgError("Memcpy", fmt.Sprintf("copy of %d bytes exceeds operand (dst %d, src %d)", size, len(d), len(s)))
	}
	copy(d[:size], s[:size])
	return nil
}

func bytesOf(name string, v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case DevicePtr:
		return x.Byte(), nil
	case []byte:
		return x, nil
	case []int32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(&x[0])), len(x)*4), nil
	case []uint64:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(&x[0])), len(x)*8), nil
	default:
		return nil, NewInvalidArgError("Memcpy", fmt.Sprintf("unsupported %s type: %T", name, v))
	}
}

// Allocate allocates memory from the pool.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + Alignment - 1) &^ (Alignment - 1)

	// Reuse the first free block that is large enough.
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			clear(alloc.buf)
			mp.track(int64(alloc.size))
			return DevicePtr{ptr: unsafe.Pointer(&alloc.buf[0]), size: size}, nil
		}
	}

	// Over-allocate so the returned pointer can be moved to the alignment boundary.
	raw := make([]byte, alignedSize+Alignment)
	shift := int((Alignment - uintptr(unsafe.Pointer(&raw[0]))%Alignment) % Alignment)
	buf := raw[shift : shift+alignedSize : shift+alignedSize]
	ptr := unsafe.Pointer(&buf[0])

	mp.allocated[uintptr(ptr)] = &allocation{buf: buf, size: alignedSize, used: true}
	mp.track(int64(alignedSize))

	return DevicePtr{ptr: ptr, size: size}, nil
}

func (mp *MemoryPool) track(n int64) {
	mp.totalAlloc += n
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool. Freeing a zero DevicePtr is a no-op.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}
	if ptr.offset != 0 {
		return NewInvalidArgError("Free", "pointer is an offset view, not an allocation")
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// Stats returns the bytes currently allocated and the peak allocation.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// IsNil reports whether the pointer refers to no memory.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}

// Size returns the size in bytes of the memory region.
func (d DevicePtr) Size() int {
	return d.size
}

// Byte returns a byte view of the device memory.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil || d.size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Int32 returns an int32 view of the device memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil || d.size < 4 {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Uint64 returns a uint64 view of the device memory. The region must start
// on an 8-byte boundary, which holds for allocations and for offsets that
// are multiples of 8.
func (d DevicePtr) Uint64() []uint64 {
	if d.ptr == nil || d.size < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(d.ptr), d.size/8)
}

// Offset returns a DevicePtr offset by the given number of bytes.
// The returned DevicePtr shares the same underlying memory.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	if bytes < 0 || bytes > d.size {
		panic(fmt.Sprintf("device: offset %d out of range [0,%d]", bytes, d.size))
	}
	if bytes == d.size {
		return DevicePtr{}
	}
	return DevicePtr{
		ptr:    unsafe.Add(d.ptr, bytes),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Slice returns a view of n bytes starting at off.
func (d DevicePtr) Slice(off, n int) DevicePtr {
	if n == 0 {
		return DevicePtr{}
	}
	p := d.Offset(off)
	if n > p.size {
		panic(fmt.Sprintf("device: slice of %d bytes exceeds %d", n, p.size))
	}
	p.size = n
	return p
}

// Address returns the numeric address of the region, for descriptors
// consumed by other device stages.
func (d DevicePtr) Address() uintptr {
	return uintptr(d.ptr)
}
