package stage

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/lava/gpucore"
)

// Render records the particle draw on the graphics queue. The list acquires
// the particle buffer released by the previous compute tick and releases it
// to compute after drawing. Without a target only the ownership barriers are
// recorded.
type Render struct {
	dev    gpucore.Device
	queues gpucore.Queues
	bufs   Buffers
	target gpucore.DrawTarget
	slots  int
	log    *slog.Logger

	lists []*gpucore.CommandList
}

var _ Stage = (*Render)(nil)

// NewRender records one list per frame slot.
func NewRender(dev gpucore.Device, bufs Buffers, target gpucore.DrawTarget, slots int, log *slog.Logger) (*Render, error) {
	r := &Render{
		dev:    dev,
		queues: dev.Queues(),
		bufs:   bufs,
		target: target,
		slots:  slots,
		log:    log,
	}
	if err := r.Recreate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Rebind replaces the storage buffers and slot count. Call Recreate
// afterwards.
func (r *Render) Rebind(bufs Buffers, slots int) {
	r.bufs = bufs
	r.slots = slots
}

// Recreate implements Stage.
func (r *Render) Recreate() error {
	if r.slots <= 0 {
		return fmt.Errorf("stage: render needs at least one slot, got %d", r.slots)
	}
	r.lists = make([]*gpucore.CommandList, r.slots)
	for slot := range r.lists {
		list := gpucore.NewCommandList(fmt.Sprintf("render[%d]", slot), r.queues.Graphics)
		r.RecordInto(list)
		r.lists[slot] = list
	}
	r.log.Debug("stage: render recorded", "slots", r.slots, "target", r.target != nil)
	return nil
}

// Record implements Stage.
func (r *Render) Record(slot int) *gpucore.CommandList {
	return r.lists[slot]
}

// RecordInto records one draw into rec.
func (r *Render) RecordInto(rec gpucore.Recorder) {
	toCompute := ParticleTransfer(r.queues, r.bufs)
	toGraphics := toCompute.Reverse()

	toGraphics.Acquire(rec)
	if r.target != nil {
		rec.Draw(r.bufs.Particles, r.bufs.ParticleCount, r.target)
	}
	toCompute.Release(rec)
}

// Destroy implements Stage.
func (r *Render) Destroy() {
	r.lists = nil
}
