package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lava/gpucore"
)

// pendingDraw is a draw whose vertices are read back after the fence.
type pendingDraw struct {
	staging hal.Buffer
	size    uint64
	count   int
	stride  int
	target  gpucore.DrawTarget
}

// Submit implements gpucore.Device.
func (d *Device) Submit(list *gpucore.CommandList, wait, signal []gpucore.SemaphoreID) (gpucore.SubmissionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fail := func(err error) (gpucore.SubmissionID, error) {
		return 0, fmt.Errorf("wgpu: %w: %q: %w", gpucore.ErrSubmission, list.Label, err)
	}

	if d.closed {
		return fail(fmt.Errorf("device closed"))
	}
	if list.Queue() != queue {
		return fail(fmt.Errorf("queue %d does not exist", list.Queue()))
	}
	if err := d.checkSemaphores(wait, signal); err != nil {
		return fail(err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: list.Label})
	if err != nil {
		return fail(fmt.Errorf("create command encoder: %w", err))
	}
	if err := encoder.BeginEncoding(list.Label); err != nil {
		return fail(fmt.Errorf("begin encoding: %w", err))
	}

	var draws []pendingDraw
	defer func() {
		for _, pd := range draws {
			d.device.DestroyBuffer(pd.staging)
		}
	}()

	for i := range list.Commands {
		cmd := &list.Commands[i]
		var err error
		switch cmd.Kind {
		case gpucore.CommandCopy:
			err = d.encodeCopy(encoder, cmd.Copy)
		case gpucore.CommandBarrier:
			err = d.checkBarrier(cmd.Barrier)
		case gpucore.CommandDispatch:
			err = d.encodeDispatch(encoder, cmd.Dispatch)
		case gpucore.CommandDraw:
			var pd pendingDraw
			pd, err = d.encodeDraw(encoder, cmd.Draw)
			if err == nil && pd.staging != nil {
				draws = append(draws, pd)
			}
		default:
			err = fmt.Errorf("unknown command kind %d", cmd.Kind)
		}
		if err != nil {
			// Nothing was submitted; the encoder is dropped with its
			// recorded commands.
			if cb, endErr := encoder.EndEncoding(); endErr == nil {
				d.device.FreeCommandBuffer(cb)
			}
			return fail(fmt.Errorf("command %d (%s): %w", i, cmd.Kind, err))
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fail(fmt.Errorf("end encoding: %w", err))
	}
	fence, err := d.device.CreateFence()
	if err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		return fail(fmt.Errorf("create fence: %w", err))
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		d.device.DestroyFence(fence)
		return fail(err)
	}

	for _, s := range wait {
		d.semaphores[s] = false
	}
	for _, s := range signal {
		d.semaphores[s] = true
	}
	d.lastSubmit++
	id := d.lastSubmit
	sub := submission{fence: fence, cmd: cmdBuf}
	d.submissions[id] = sub

	if len(draws) == 0 {
		return id, nil
	}
	if err := d.waitFence(fence); err != nil {
		return fail(err)
	}
	d.retireLocked(id, sub)
	for _, pd := range draws {
		vertices := make([]byte, pd.size)
		if err := d.queue.ReadBuffer(pd.staging, 0, vertices); err != nil {
			return fail(fmt.Errorf("read vertices: %w", err))
		}
		if err := pd.target.DrawVertices(vertices, pd.count, pd.stride); err != nil {
			return fail(fmt.Errorf("draw: %w", err))
		}
	}
	return id, nil
}

// checkSemaphores rejects waits that could never complete and double
// signals, matching binary semaphore rules.
func (d *Device) checkSemaphores(wait, signal []gpucore.SemaphoreID) error {
	waited := make(map[gpucore.SemaphoreID]bool, len(wait))
	for _, s := range wait {
		signaled, ok := d.semaphores[s]
		if !ok {
			return fmt.Errorf("wait on semaphore %d: %w", s, gpucore.ErrUnknownResource)
		}
		if !signaled || waited[s] {
			return fmt.Errorf("%w: wait on unsignaled semaphore %d", gpucore.ErrSemaphoreState, s)
		}
		waited[s] = true
	}
	for _, s := range signal {
		signaled, ok := d.semaphores[s]
		if !ok {
			return fmt.Errorf("signal semaphore %d: %w", s, gpucore.ErrUnknownResource)
		}
		if signaled && !waited[s] {
			return fmt.Errorf("%w: semaphore %d signaled twice without a wait", gpucore.ErrSemaphoreState, s)
		}
	}
	return nil
}

func (d *Device) encodeCopy(encoder hal.CommandEncoder, c gpucore.CopyCommand) error {
	src, ok := d.buffers[c.Src]
	if !ok {
		return fmt.Errorf("buffer %d: %w", c.Src, gpucore.ErrUnknownResource)
	}
	dst, ok := d.buffers[c.Dst]
	if !ok {
		return fmt.Errorf("buffer %d: %w", c.Dst, gpucore.ErrUnknownResource)
	}
	if c.Size > src.desc.Size() || c.Size > dst.desc.Size() {
		return fmt.Errorf("copy of %d bytes from %q to %q out of range", c.Size, src.desc.Label, dst.desc.Label)
	}
	encoder.CopyBufferToBuffer(src.hal, dst.hal, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: c.Size}})
	return nil
}

// checkBarrier validates a barrier. Compute pass boundaries already order
// storage accesses, so nothing is encoded.
func (d *Device) checkBarrier(b gpucore.BufferBarrier) error {
	if _, ok := d.buffers[b.Buffer]; !ok {
		return fmt.Errorf("buffer %d: %w", b.Buffer, gpucore.ErrUnknownResource)
	}
	if !b.IsTransfer() {
		return nil
	}
	if b.SrcQueue == b.DstQueue {
		return fmt.Errorf("%w: buffer %d on queue %d", gpucore.ErrRedundantTransfer, b.Buffer, b.SrcQueue)
	}
	return fmt.Errorf("%w: transfer %d->%d on a single-queue device", gpucore.ErrOwnership, b.SrcQueue, b.DstQueue)
}

func (d *Device) encodeDispatch(encoder hal.CommandEncoder, dc gpucore.DispatchCommand) error {
	k, ok := d.kernels[dc.Kernel]
	if !ok {
		return fmt.Errorf("kernel %d: %w", dc.Kernel, gpucore.ErrUnknownResource)
	}
	bg, err := d.bindGroupLocked(dc.Kernel, k, dc.Bindings)
	if err != nil {
		return err
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.desc.Label})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(dc.Groups[0], dc.Groups[1], dc.Groups[2])
	pass.End()
	return nil
}

func (d *Device) encodeDraw(encoder hal.CommandEncoder, dc gpucore.DrawCommand) (pendingDraw, error) {
	b, ok := d.buffers[dc.Buffer]
	if !ok {
		return pendingDraw{}, fmt.Errorf("buffer %d: %w", dc.Buffer, gpucore.ErrUnknownResource)
	}
	size := uint64(dc.Count) * uint64(b.desc.Stride)
	if size > b.desc.Size() {
		return pendingDraw{}, fmt.Errorf("draw of %d vertices overflows buffer %q", dc.Count, b.desc.Label)
	}
	if dc.Target == nil || size == 0 {
		return pendingDraw{}, nil
	}
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.desc.Label + "_vertices",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return pendingDraw{}, fmt.Errorf("create vertex staging buffer: %w", err)
	}
	encoder.CopyBufferToBuffer(b.hal, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
	return pendingDraw{staging: staging, size: size, count: dc.Count, stride: b.desc.Stride, target: dc.Target}, nil
}
