// Package stage records the per-frame command lists of the simulation.
//
// Two stages share one capability interface: [Compute] records the four
// transfer kernels, [Render] records the particle draw. Both bracket their
// work with the acquire and release halves of the particle buffer's
// ownership transfer, built by [ParticleTransfer].
package stage

import (
	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

// Stage is a pipeline stage whose command lists can be rebuilt after
// swapchain-like changes and fetched per frame slot.
type Stage interface {
	// Recreate rebuilds device objects and re-records every slot's list.
	// The device must be idle.
	Recreate() error

	// Record returns the prerecorded command list for a frame slot.
	Record(slot int) *gpucore.CommandList

	// Destroy releases device objects owned by the stage.
	Destroy()
}

// Buffers are the storage buffers the stages operate on.
type Buffers struct {
	Particles gpucore.BufferID
	Grid      gpucore.BufferID
	F         gpucore.BufferID

	ParticleCount  int
	GridResolution int
}

func (b Buffers) particleSize() uint64 {
	return uint64(b.ParticleCount) * mpm.ParticleStride
}

func (b Buffers) gridSize() uint64 {
	return uint64(b.GridResolution*b.GridResolution) * mpm.CellStride
}

// ParticleTransfer returns the transfer that hands the particle buffer from
// the graphics queue, where it is read as vertex attributes, to the compute
// queue, where kernels write it. Its Reverse hands it back.
func ParticleTransfer(q gpucore.Queues, b Buffers) gpucore.OwnershipTransfer {
	return gpucore.OwnershipTransfer{
		Buffer:    b.Particles,
		Size:      b.particleSize(),
		From:      q.Graphics,
		To:        q.Compute,
		SrcAccess: gpucore.AccessVertexAttributeRead,
		DstAccess: gpucore.AccessShaderWrite,
		SrcStage:  gpucore.StageVertexInput,
		DstStage:  gpucore.StageComputeShader,
	}
}
