package device

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies an execution unit within a launch.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// KernelFunc is the body of one execution unit. A non-nil error aborts the
// launch and is reported as an execution error.
type KernelFunc func(tid ThreadID) error

// Size returns the total number of elements. Zero components count as 1.
func (d Dim3) Size() int {
	return max(d.X, 1) * max(d.Y, 1) * max(d.Z, 1)
}

// Global returns the global linear thread index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// LaunchGrid runs kernel for every thread of grid×block and blocks until all
// of them finished. Blocks are distributed over at most NumCPU workers;
// threads within a block run sequentially on the same worker. The first
// error (or recovered panic) cancels the remaining blocks.
func LaunchGrid(grid, block Dim3, kernel KernelFunc) error {
	if kernel == nil {
		return NewInvalidArgError("LaunchGrid", "nil kernel")
	}
	if grid.X < 0 || grid.Y < 0 || grid.Z < 0 || block.X < 0 || block.Y < 0 || block.Z < 0 {
		return NewInvalidArgError("LaunchGrid", fmt.Sprintf("negative dimensions grid=%v block=%v", grid, block))
	}
	if grid.X == 0 || block.X == 0 {
		return nil
	}

	grid = normalize(grid)
	block = normalize(block)
	gridSize := grid.Size()
	blockSize := block.Size()

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())

	for blockID := 0; blockID < gridSize; blockID++ {
		blockIdx := linearTo3D(blockID, grid)
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					err = NewExecutionError("LaunchGrid", fmt.Sprintf("kernel panic in block %v", blockIdx), fmt.Errorf("%v", r))
				}
			}()
			for threadID := 0; threadID < blockSize; threadID++ {
				tid := ThreadID{
					BlockIdx:  blockIdx,
					ThreadIdx: linearTo3D(threadID, block),
					BlockDim:  block,
					GridDim:   grid,
				}
				if err := kernel(tid); err != nil {
					return NewExecutionError("LaunchGrid", fmt.Sprintf("kernel failed in block %v", blockIdx), err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func normalize(d Dim3) Dim3 {
	return Dim3{X: max(d.X, 1), Y: max(d.Y, 1), Z: max(d.Z, 1)}
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
