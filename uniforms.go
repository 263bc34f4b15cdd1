package lava

import (
	"fmt"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

// uniformRing holds one host-visible uniform buffer per frame slot. A slot's
// buffer is rewritten only after the submission that last read it has
// completed.
type uniformRing struct {
	dev     gpucore.Device
	buffers []gpucore.BufferID
	fn      UniformFunc
}

func newUniformRing(dev gpucore.Device, slots int, fn UniformFunc) (*uniformRing, error) {
	r := &uniformRing{dev: dev, fn: fn}
	if err := r.recreate(slots); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *uniformRing) recreate(slots int) error {
	r.destroy()
	r.buffers = make([]gpucore.BufferID, 0, slots)
	for i := range slots {
		id, err := r.dev.Allocate(gpucore.BufferDesc{
			Label:  fmt.Sprintf("uniforms[%d]", i),
			Count:  1,
			Stride: mpm.UniformSize,
			Usage:  gpucore.BufferUsageUniform,
			Memory: gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent,
		})
		if err != nil {
			r.destroy()
			return err
		}
		r.buffers = append(r.buffers, id)
	}
	return nil
}

// update writes the uniforms for slot and returns them.
func (r *uniformRing) update(elapsed float32, slot int) (mpm.Uniforms, error) {
	u := r.fn(elapsed, slot)
	if err := r.dev.Upload(r.buffers[slot], u.Bytes()); err != nil {
		return u, fmt.Errorf("lava: write uniforms[%d]: %w", slot, err)
	}
	return u, nil
}

func (r *uniformRing) destroy() {
	for _, id := range r.buffers {
		r.dev.DestroyBuffer(id)
	}
	r.buffers = nil
}
