package wgpu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // Vulkan HAL backend

	"github.com/gogpu/lava/backend"
	"github.com/gogpu/lava/gpucore"
)

func init() {
	backend.Register(backend.BackendWGPU, func() backend.Backend { return wgpuBackend{} })
}

type wgpuBackend struct{}

func (wgpuBackend) Name() string { return backend.BackendWGPU }

// Open rejects OpenOptions.SeparateQueues: HAL devices expose one queue.
func (wgpuBackend) Open(opts backend.OpenOptions) (gpucore.Device, error) {
	if opts.SeparateQueues {
		return nil, fmt.Errorf("wgpu: %w: separate queues, the HAL device has one queue", backend.ErrUnsupportedOption)
	}
	return Open()
}

// queue is the only queue of a HAL device.
const queue gpucore.QueueID = 0

// fenceTimeout bounds host waits on a single submission.
const fenceTimeout = 5 * time.Second

// ErrDeviceLost is returned when a fence wait times out.
var ErrDeviceLost = errors.New("wgpu: device lost")

type buffer struct {
	desc gpucore.BufferDesc
	hal  hal.Buffer
}

type kernel struct {
	desc     gpucore.KernelDesc
	shader   hal.ShaderModule
	layout   hal.BindGroupLayout
	pipeLay  hal.PipelineLayout
	pipeline hal.ComputePipeline
}

type submission struct {
	fence hal.Fence
	cmd   hal.CommandBuffer
}

type bindKey struct {
	kernel  gpucore.KernelID
	buffers [4]gpucore.BufferID
}

// Device is a gpucore.Device backed by a HAL device and queue.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
	external bool // device shared by a provider, not destroyed on Close
	closed   bool

	nextID      uint64
	buffers     map[gpucore.BufferID]*buffer
	kernels     map[gpucore.KernelID]*kernel
	semaphores  map[gpucore.SemaphoreID]bool
	bindGroups  map[bindKey]hal.BindGroup
	submissions map[gpucore.SubmissionID]submission
	lastSubmit  gpucore.SubmissionID

	log atomic.Pointer[slog.Logger]
}

var _ gpucore.Device = (*Device)(nil)

func newDevice(instance hal.Instance, dev hal.Device, q hal.Queue, adapter string, external bool) *Device {
	d := &Device{
		instance:    instance,
		device:      dev,
		queue:       q,
		adapter:     adapter,
		external:    external,
		buffers:     make(map[gpucore.BufferID]*buffer),
		kernels:     make(map[gpucore.KernelID]*kernel),
		semaphores:  make(map[gpucore.SemaphoreID]bool),
		bindGroups:  make(map[bindKey]hal.BindGroup),
		submissions: make(map[gpucore.SubmissionID]submission),
	}
	d.log.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d
}

// Open creates a device on the first discrete or integrated Vulkan adapter,
// falling back to the first adapter found.
func Open() (*Device, error) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: %w: vulkan HAL not available", backend.ErrBackendNotAvailable)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: %w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	return newDevice(instance, openDev.Device, openDev.Queue, selected.Info.Name, false), nil
}

// NewFromHAL wraps an open HAL device and queue. The device is not
// destroyed by Close.
func NewFromHAL(dev hal.Device, q hal.Queue) (*Device, error) {
	if dev == nil || q == nil {
		return nil, errors.New("wgpu: nil HAL device or queue")
	}
	return newDevice(nil, dev, q, "", true), nil
}

// NewFromProvider shares the device of a host application. The provider
// must also expose HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("wgpu: provider does not expose HAL types")
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	q, ok := hp.HalQueue().(hal.Queue)
	if !ok || q == nil {
		return nil, errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	return NewFromHAL(dev, q)
}

// SetLogger sets the device logger.
func (d *Device) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log.Store(l)
	}
}

func (d *Device) logger() *slog.Logger { return d.log.Load() }

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.BackendWGPU }

// Adapter returns the adapter name, empty for shared devices.
func (d *Device) Adapter() string { return d.adapter }

// Queues implements gpucore.Device.
func (d *Device) Queues() gpucore.Queues {
	return gpucore.Queues{Graphics: queue, Compute: queue}
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// halUsage maps buffer usage to WebGPU usage. Every buffer can be copied
// from for readback; host-visible buffers are written through the queue.
func halUsage(desc gpucore.BufferDesc) gputypes.BufferUsage {
	u := gputypes.BufferUsageCopySrc
	if desc.Usage.Has(gpucore.BufferUsageStorage) {
		u |= gputypes.BufferUsageStorage
	}
	if desc.Usage.Has(gpucore.BufferUsageUniform) {
		u |= gputypes.BufferUsageUniform
	}
	if desc.Usage.Has(gpucore.BufferUsageVertex) {
		u |= gputypes.BufferUsageVertex
	}
	if desc.Usage.Has(gpucore.BufferUsageTransferDst) || desc.Memory.Has(gpucore.MemoryHostVisible) {
		u |= gputypes.BufferUsageCopyDst
	}
	return u
}

// Allocate implements gpucore.Device.
func (d *Device) Allocate(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: device closed", gpucore.ErrResourceAllocation)
	}
	if desc.Count <= 0 || desc.Stride <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: buffer %q has %d elements of %d bytes",
			gpucore.ErrResourceAllocation, desc.Label, desc.Count, desc.Stride)
	}
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size(),
		Usage: halUsage(desc),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: buffer %q: %w", gpucore.ErrResourceAllocation, desc.Label, err)
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &buffer{desc: desc, hal: hb}
	d.logger().Debug("wgpu: buffer allocated", "label", desc.Label, "id", id, "bytes", desc.Size())
	return id, nil
}

// Upload implements gpucore.Device.
func (d *Device) Upload(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: upload to buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if uint64(len(data)) > b.desc.Size() {
		return fmt.Errorf("wgpu: upload of %d bytes overflows buffer %q (%d bytes)", len(data), b.desc.Label, b.desc.Size())
	}
	d.queue.WriteBuffer(b.hal, 0, data)
	return nil
}

// Size implements gpucore.Device.
func (d *Device) Size(id gpucore.BufferID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.buffers[id]; ok {
		return b.desc.Size()
	}
	return 0
}

// Read implements gpucore.Device. It copies the buffer into a mappable
// staging buffer and waits for the copy.
func (d *Device) Read(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("wgpu: read buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if err := d.waitAllLocked(); err != nil {
		return nil, err
	}
	return d.readbackLocked(b.hal, b.desc.Size(), b.desc.Label)
}

func (d *Device) readbackLocked(src hal.Buffer, size uint64, label string) ([]byte, error) {
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if err := d.submitAndWaitLocked(cmd); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return out, nil
}

func (d *Device) submitAndWaitLocked(cmd hal.CommandBuffer) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: %w: create fence: %w", gpucore.ErrSubmission, err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: %w: %w", gpucore.ErrSubmission, err)
	}
	return d.waitFence(fence)
}

func (d *Device) waitFence(fence hal.Fence) error {
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: fence not signaled after %v", ErrDeviceLost, fenceTimeout)
	}
	return nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return
	}
	for key, bg := range d.bindGroups {
		for _, bid := range key.buffers {
			if bid == id {
				d.device.DestroyBindGroup(bg)
				delete(d.bindGroups, key)
				break
			}
		}
	}
	d.device.DestroyBuffer(b.hal)
	delete(d.buffers, id)
}

// CreateSemaphore implements gpucore.Device. With one queue, submission
// order already serializes the queues, so semaphores only track state.
func (d *Device) CreateSemaphore() (gpucore.SemaphoreID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, fmt.Errorf("wgpu: %w: device closed", gpucore.ErrResourceAllocation)
	}
	id := gpucore.SemaphoreID(d.id())
	d.semaphores[id] = false
	return id, nil
}

// DestroySemaphore implements gpucore.Device.
func (d *Device) DestroySemaphore(id gpucore.SemaphoreID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, id)
}

// Completed implements gpucore.Device.
func (d *Device) Completed(id gpucore.SubmissionID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.submissions[id]
	if !ok {
		return id <= d.lastSubmit
	}
	done, err := d.device.Wait(s.fence, 1, 0)
	if err != nil || !done {
		return false
	}
	d.retireLocked(id, s)
	return true
}

func (d *Device) retireLocked(id gpucore.SubmissionID, s submission) {
	d.device.FreeCommandBuffer(s.cmd)
	d.device.DestroyFence(s.fence)
	delete(d.submissions, id)
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitAllLocked()
}

func (d *Device) waitAllLocked() error {
	var errs []error
	for id, s := range d.submissions {
		if err := d.waitFence(s.fence); err != nil {
			errs = append(errs, fmt.Errorf("submission %d: %w", id, err))
			continue
		}
		d.retireLocked(id, s)
	}
	return errors.Join(errs...)
}

// Close implements gpucore.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	err := d.waitAllLocked()
	d.closed = true

	for key, bg := range d.bindGroups {
		d.device.DestroyBindGroup(bg)
		delete(d.bindGroups, key)
	}
	for id, k := range d.kernels {
		d.destroyKernelLocked(k)
		delete(d.kernels, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.hal)
		delete(d.buffers, id)
	}
	clear(d.semaphores)

	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
	d.logger().Debug("wgpu: device closed", "external", d.external)
	return err
}
