package stage

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

// Compute records one simulation tick: ClearGrid, P2G, UpdateGrid and G2P,
// with a barrier on the grid between consecutive kernels. The list acquires
// the particle buffer from the graphics queue first and releases it back
// last.
type Compute struct {
	dev      gpucore.Device
	queues   gpucore.Queues
	bufs     Buffers
	uniforms []gpucore.BufferID
	ex       mpm.Executor
	log      *slog.Logger

	kernels [kernelCount]gpucore.KernelID
	lists   []*gpucore.CommandList
}

var _ Stage = (*Compute)(nil)

// NewCompute creates the kernels and records one list per uniform slot.
func NewCompute(dev gpucore.Device, bufs Buffers, uniforms []gpucore.BufferID, ex mpm.Executor, log *slog.Logger) (*Compute, error) {
	c := &Compute{
		dev:      dev,
		queues:   dev.Queues(),
		bufs:     bufs,
		uniforms: uniforms,
		ex:       ex,
		log:      log,
	}
	if err := c.Recreate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Rebind replaces the storage buffers and uniform slots. Call Recreate
// afterwards.
func (c *Compute) Rebind(bufs Buffers, uniforms []gpucore.BufferID) {
	c.bufs = bufs
	c.uniforms = uniforms
}

// Recreate implements Stage.
func (c *Compute) Recreate() error {
	c.destroyKernels()

	descs := kernelDescs(c.ex)
	for k, desc := range descs {
		id, err := c.dev.CreateKernel(desc)
		if err != nil {
			c.destroyKernels()
			return fmt.Errorf("stage: create %s kernel: %w", Kernel(k), err)
		}
		c.kernels[k] = id
	}

	c.lists = make([]*gpucore.CommandList, len(c.uniforms))
	for slot, ub := range c.uniforms {
		list := gpucore.NewCommandList(fmt.Sprintf("compute[%d]", slot), c.queues.Compute)
		c.RecordInto(list, ub)
		c.lists[slot] = list
	}
	c.log.Debug("stage: compute recorded",
		"slots", len(c.lists),
		"particles", c.bufs.ParticleCount,
		"grid", c.bufs.GridResolution)
	return nil
}

// Record implements Stage.
func (c *Compute) Record(slot int) *gpucore.CommandList {
	return c.lists[slot]
}

// RecordInto records one tick into rec using the given uniform buffer.
func (c *Compute) RecordInto(rec gpucore.Recorder, uniform gpucore.BufferID) {
	toCompute := ParticleTransfer(c.queues, c.bufs)
	toGraphics := toCompute.Reverse()

	cells := c.bufs.GridResolution * c.bufs.GridResolution
	all := []gpucore.Binding{
		{Slot: slotUniforms, Buffer: uniform},
		{Slot: slotParticles, Buffer: c.bufs.Particles},
		{Slot: slotGrid, Buffer: c.bufs.Grid},
		{Slot: slotF, Buffer: c.bufs.F},
	}
	gridOnly := []gpucore.Binding{all[slotUniforms], all[slotGrid]}

	toCompute.Acquire(rec)

	rec.Dispatch(c.kernels[KernelClearGrid], gridOnly, gpucore.Groups(cells, workgroupSize), 1, 1)
	c.gridBarrier(rec)

	rec.Dispatch(c.kernels[KernelP2G], all, 1, 1, 1)
	c.gridBarrier(rec)

	rec.Dispatch(c.kernels[KernelUpdateGrid], gridOnly, gpucore.Groups(cells, workgroupSize), 1, 1)
	c.gridBarrier(rec)

	rec.Dispatch(c.kernels[KernelG2P], all, gpucore.Groups(c.bufs.ParticleCount, workgroupSize), 1, 1)

	toGraphics.Release(rec)
}

func (c *Compute) gridBarrier(rec gpucore.Recorder) {
	rec.Barrier(gpucore.MemoryBarrier(c.bufs.Grid, c.bufs.gridSize(),
		gpucore.AccessShaderWrite, gpucore.AccessShaderRead|gpucore.AccessShaderWrite,
		gpucore.StageComputeShader, gpucore.StageComputeShader))
}

// Destroy implements Stage.
func (c *Compute) Destroy() {
	c.destroyKernels()
	c.lists = nil
}

func (c *Compute) destroyKernels() {
	for k, id := range c.kernels {
		if id != gpucore.InvalidID {
			c.dev.DestroyKernel(id)
			c.kernels[k] = gpucore.InvalidID
		}
	}
}
