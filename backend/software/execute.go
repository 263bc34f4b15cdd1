package software

import (
	"fmt"

	"github.com/gogpu/lava/gpucore"
)

// execution runs one command list on one queue.
type execution struct {
	dev   *Device
	queue gpucore.QueueID
	// dirty holds buffers written since the last barrier on them.
	dirty map[gpucore.BufferID]bool
}

func (x *execution) buffer(id gpucore.BufferID) (*buffer, error) {
	b, ok := x.dev.buffers[id]
	if !ok {
		return nil, fmt.Errorf("buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	return b, nil
}

// use claims b for the executing queue.
func (x *execution) use(b *buffer) error {
	if b.pending != nil {
		return fmt.Errorf("%w: buffer %q released to queue %d but used on queue %d before acquire",
			gpucore.ErrOwnership, b.desc.Label, b.pending.to, x.queue)
	}
	if b.owner == gpucore.QueueIgnored {
		b.owner = x.queue
		return nil
	}
	if b.owner != x.queue {
		return fmt.Errorf("%w: buffer %q owned by queue %d, used on queue %d",
			gpucore.ErrOwnership, b.desc.Label, b.owner, x.queue)
	}
	return nil
}

func (x *execution) read(id gpucore.BufferID, b *buffer) error {
	if x.dirty[id] {
		return fmt.Errorf("%w: buffer %q", gpucore.ErrMissingBarrier, b.desc.Label)
	}
	return x.use(b)
}

func (x *execution) run(cmd *gpucore.Command) error {
	switch cmd.Kind {
	case gpucore.CommandCopy:
		return x.copy(cmd.Copy)
	case gpucore.CommandBarrier:
		return x.barrier(cmd.Barrier)
	case gpucore.CommandDispatch:
		return x.dispatch(cmd.Dispatch)
	case gpucore.CommandDraw:
		return x.draw(cmd.Draw)
	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

func (x *execution) copy(c gpucore.CopyCommand) error {
	src, err := x.buffer(c.Src)
	if err != nil {
		return err
	}
	dst, err := x.buffer(c.Dst)
	if err != nil {
		return err
	}
	if c.Size > uint64(len(src.data)) || c.Size > uint64(len(dst.data)) {
		return fmt.Errorf("copy of %d bytes from %q (%d) to %q (%d) out of range",
			c.Size, src.desc.Label, len(src.data), dst.desc.Label, len(dst.data))
	}
	if err := x.read(c.Src, src); err != nil {
		return err
	}

	// Overwriting the whole destination discards its contents, so any
	// previous owner or pending transfer no longer matters.
	if c.Size == uint64(len(dst.data)) {
		dst.owner = x.queue
		dst.pending = nil
	} else if err := x.use(dst); err != nil {
		return err
	}

	copy(dst.data[:c.Size], src.data[:c.Size])
	x.dirty[c.Dst] = true
	return nil
}

func (x *execution) barrier(bb gpucore.BufferBarrier) error {
	b, err := x.buffer(bb.Buffer)
	if err != nil {
		return err
	}
	delete(x.dirty, bb.Buffer)

	if !bb.IsTransfer() {
		return nil
	}
	if bb.SrcQueue == bb.DstQueue {
		return fmt.Errorf("%w: buffer %q on queue %d", gpucore.ErrRedundantTransfer, b.desc.Label, bb.SrcQueue)
	}

	switch x.queue {
	case bb.SrcQueue:
		if err := x.use(b); err != nil {
			return err
		}
		b.pending = &transit{from: bb.SrcQueue, to: bb.DstQueue}
	case bb.DstQueue:
		if b.pending == nil || b.pending.from != bb.SrcQueue || b.pending.to != bb.DstQueue {
			return fmt.Errorf("%w: acquire of buffer %q on queue %d without matching release",
				gpucore.ErrOwnership, b.desc.Label, x.queue)
		}
		b.pending = nil
		b.owner = x.queue
	default:
		return fmt.Errorf("%w: transfer %d->%d of buffer %q recorded on queue %d",
			gpucore.ErrOwnership, bb.SrcQueue, bb.DstQueue, b.desc.Label, x.queue)
	}
	return nil
}

func (x *execution) dispatch(dc gpucore.DispatchCommand) error {
	k, ok := x.dev.kernels[dc.Kernel]
	if !ok {
		return fmt.Errorf("kernel %d: %w", dc.Kernel, gpucore.ErrUnknownResource)
	}

	bound := make(map[uint32]gpucore.BufferID, len(dc.Bindings))
	for _, b := range dc.Bindings {
		bound[b.Slot] = b.Buffer
	}

	data := make([][]byte, len(k.Bindings))
	for i, layout := range k.Bindings {
		id, ok := bound[layout.Slot]
		if !ok {
			return fmt.Errorf("kernel %q: binding %d not bound", k.Label, layout.Slot)
		}
		b, err := x.buffer(id)
		if err != nil {
			return err
		}
		if err := x.read(id, b); err != nil {
			return fmt.Errorf("kernel %q: %w", k.Label, err)
		}
		data[i] = b.data
	}

	if err := k.Host(data, dc.Groups); err != nil {
		return fmt.Errorf("kernel %q: %w", k.Label, err)
	}

	for _, layout := range k.Bindings {
		if layout.Kind.Writes() {
			x.dirty[bound[layout.Slot]] = true
		}
	}
	return nil
}

func (x *execution) draw(dc gpucore.DrawCommand) error {
	b, err := x.buffer(dc.Buffer)
	if err != nil {
		return err
	}
	if err := x.read(dc.Buffer, b); err != nil {
		return err
	}
	n := dc.Count * b.desc.Stride
	if n > len(b.data) {
		return fmt.Errorf("draw of %d vertices overflows buffer %q", dc.Count, b.desc.Label)
	}
	if dc.Target == nil {
		return nil
	}
	return dc.Target.DrawVertices(b.data[:n], dc.Count, b.desc.Stride)
}
