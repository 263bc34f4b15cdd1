package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lava/gpucore"
)

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func bindingType(k gpucore.BindingKind) gputypes.BufferBindingType {
	switch k {
	case gpucore.BindingUniform:
		return gputypes.BufferBindingTypeUniform
	case gpucore.BindingStorageRead:
		return gputypes.BufferBindingTypeReadOnlyStorage
	default:
		return gputypes.BufferBindingTypeStorage
	}
}

func layoutEntries(bindings []gpucore.BindingLayout) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    b.Slot,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: bindingType(b.Kind)},
		}
	}
	return entries
}

// CreateKernel implements gpucore.Device. A WGSL compile failure is an
// allocation failure.
func (d *Device) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc == nil || desc.Source == "" {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: kernel has no WGSL source", gpucore.ErrResourceAllocation)
	}
	if d.closed {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: device closed", gpucore.ErrResourceAllocation)
	}
	if len(desc.Bindings) > len(bindKey{}.buffers) {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: kernel %q has %d bindings",
			gpucore.ErrResourceAllocation, desc.Label, len(desc.Bindings))
	}

	k := &kernel{desc: *desc}
	if err := d.buildKernelLocked(k); err != nil {
		d.destroyKernelLocked(k)
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: kernel %q: %w", gpucore.ErrResourceAllocation, desc.Label, err)
	}
	id := gpucore.KernelID(d.id())
	d.kernels[id] = k
	d.logger().Debug("wgpu: kernel created", "label", desc.Label, "id", id)
	return id, nil
}

func (d *Device) buildKernelLocked(k *kernel) error {
	spirv, err := compileWGSL(k.desc.Source)
	if err != nil {
		return fmt.Errorf("compile shader: %w", err)
	}
	if k.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.desc.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	}); err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	if k.layout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   k.desc.Label + "_bind_layout",
		Entries: layoutEntries(k.desc.Bindings),
	}); err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	if k.pipeLay, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.layout},
	}); err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	entry := k.desc.EntryPoint
	if entry == "" {
		entry = "main"
	}
	if k.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   k.desc.Label + "_pipeline",
		Layout:  k.pipeLay,
		Compute: hal.ComputeState{Module: k.shader, EntryPoint: entry},
	}); err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	return nil
}

// DestroyKernel implements gpucore.Device.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, ok := d.kernels[id]
	if !ok {
		return
	}
	for key, bg := range d.bindGroups {
		if key.kernel == id {
			d.device.DestroyBindGroup(bg)
			delete(d.bindGroups, key)
		}
	}
	d.destroyKernelLocked(k)
	delete(d.kernels, id)
}

func (d *Device) destroyKernelLocked(k *kernel) {
	if k.pipeline != nil {
		d.device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLay != nil {
		d.device.DestroyPipelineLayout(k.pipeLay)
	}
	if k.layout != nil {
		d.device.DestroyBindGroupLayout(k.layout)
	}
	if k.shader != nil {
		d.device.DestroyShaderModule(k.shader)
	}
}

// bindGroupLocked returns the cached bind group of a dispatch, creating it
// on first use.
func (d *Device) bindGroupLocked(kid gpucore.KernelID, k *kernel, bindings []gpucore.Binding) (hal.BindGroup, error) {
	bound := make(map[uint32]gpucore.BufferID, len(bindings))
	for _, b := range bindings {
		bound[b.Slot] = b.Buffer
	}

	key := bindKey{kernel: kid}
	entries := make([]gputypes.BindGroupEntry, len(k.desc.Bindings))
	for i, layout := range k.desc.Bindings {
		id, ok := bound[layout.Slot]
		if !ok {
			return nil, fmt.Errorf("kernel %q: binding %d not bound", k.desc.Label, layout.Slot)
		}
		b, ok := d.buffers[id]
		if !ok {
			return nil, fmt.Errorf("kernel %q: buffer %d: %w", k.desc.Label, id, gpucore.ErrUnknownResource)
		}
		key.buffers[i] = id
		entries[i] = gputypes.BindGroupEntry{
			Binding:  layout.Slot,
			Resource: gputypes.BufferBinding{Buffer: b.hal.NativeHandle(), Offset: 0, Size: b.desc.Size()},
		}
	}
	if bg, ok := d.bindGroups[key]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   k.desc.Label + "_bind",
		Layout:  k.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel %q: create bind group: %w", k.desc.Label, err)
	}
	d.bindGroups[key] = bg
	return bg, nil
}
