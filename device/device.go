// Package device provides the accelerator runtime consumed by the aligner.
// Kernels run on the CPU: a Context owns a memory pool and a set of ordered
// streams, and a launch spreads execution units over worker goroutines.
//
// Example usage:
//
//	ctx := device.NewContext()
//	defer ctx.Destroy()
//
//	stream := ctx.CreateStream()
//	buf, _ := ctx.Malloc(n * 8)
//	stream.Submit(func() error {
//		return device.LaunchGrid(device.Dim3{X: n}, device.Dim3{X: 1}, kernel)
//	})
//	err := stream.Synchronize()
package device

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Device represents a compute device. Device 0 is the host CPU with its
// cores and available memory.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Total available memory in bytes
	NumCores   int    // Number of CPU cores
	MaxThreads int    // Maximum concurrent execution units
}

// Context represents an execution context. It manages the device memory
// pool and the streams created from it. A Context should be destroyed when
// no longer needed so that stream workers exit.
type Context struct {
	mu       sync.Mutex
	device   *Device
	streams  map[int]*Stream
	streamID int32
	memory   *MemoryPool
}

var (
	defaultDevice *Device
	deviceOnce    sync.Once
)

func hostDevice() *Device {
	deviceOnce.Do(func() {
		defaultDevice = &Device{
			ID:         0,
			Name:       "CPU",
			TotalMem:   getSystemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU() * 2,
		}
	})
	return defaultDevice
}

// NewContext creates a context bound to the host device with a fresh memory pool.
func NewContext() *Context {
	return &Context{
		device:  hostDevice(),
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
}

// GetDevice returns the host device information.
func GetDevice() *Device {
	return hostDevice()
}

// GetDeviceCount returns the number of available devices. Only the CPU is exposed.
func GetDeviceCount() int {
	return 1
}

// GetDeviceProperties returns the properties of device id.
func GetDeviceProperties(id int) (*Device, error) {
	if id != 0 {
		return nil, NewInvalidArgError("GetDeviceProperties", fmt.Sprintf("invalid device ID: %d", id))
	}
	return hostDevice(), nil
}

// Device returns the device this context is bound to.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Allocator returns the context's memory pool.
func (ctx *Context) Allocator() *MemoryPool {
	return ctx.memory
}

// CreateStream creates a new ordered execution stream owned by the context.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := newStream(id)

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// Synchronize waits for all streams of the context and returns the first
// error reported by any of them.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	var first error
	for _, s := range streams {
		if err := s.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy drains and stops every stream created from the context.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	streams := ctx.streams
	ctx.streams = make(map[int]*Stream)
	ctx.mu.Unlock()

	for _, s := range streams {
		s.Destroy()
	}
}

// getSystemMemory returns total system memory in bytes
func getSystemMemory() uint64 {
	// Simplified: the runtime does not query the OS.
	return 16 * 1024 * 1024 * 1024
}
