package software

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/lava/backend"
	"github.com/gogpu/lava/gpucore"
)

func init() {
	backend.Register(backend.BackendSoftware, func() backend.Backend { return softwareBackend{} })
}

type softwareBackend struct{}

func (softwareBackend) Name() string { return backend.BackendSoftware }

func (softwareBackend) Open(opts backend.OpenOptions) (gpucore.Device, error) {
	return New(WithSeparateQueues(opts.SeparateQueues)), nil
}

// Queue IDs used by the device.
const (
	graphicsQueue gpucore.QueueID = 0
	computeQueue  gpucore.QueueID = 1
)

// DefaultMaxBufferSize matches the common 256 MiB storage buffer limit.
const DefaultMaxBufferSize = 256 << 20

// Option configures a Device.
type Option func(*Device)

// WithSeparateQueues selects distinct graphics and compute queues.
func WithSeparateQueues(separate bool) Option {
	return func(d *Device) { d.separate = separate }
}

// WithMaxBufferSize limits the size of a single buffer.
func WithMaxBufferSize(n uint64) Option {
	return func(d *Device) { d.maxBufferSize = n }
}

type transit struct {
	from, to gpucore.QueueID
}

type buffer struct {
	desc gpucore.BufferDesc
	data []byte
	// owner is QueueIgnored until the first queue uses the buffer.
	owner   gpucore.QueueID
	pending *transit
}

// Device is a CPU gpucore.Device. It is safe for concurrent use; Submit
// calls are serialized.
type Device struct {
	mu            sync.Mutex
	separate      bool
	maxBufferSize uint64
	closed        bool

	nextID      uint64
	buffers     map[gpucore.BufferID]*buffer
	kernels     map[gpucore.KernelID]*gpucore.KernelDesc
	semaphores  map[gpucore.SemaphoreID]bool
	submissions uint64

	log atomic.Pointer[slog.Logger]
}

var _ gpucore.Device = (*Device)(nil)

// New creates a software device.
func New(opts ...Option) *Device {
	d := &Device{
		maxBufferSize: DefaultMaxBufferSize,
		buffers:       make(map[gpucore.BufferID]*buffer),
		kernels:       make(map[gpucore.KernelID]*gpucore.KernelDesc),
		semaphores:    make(map[gpucore.SemaphoreID]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d
}

// SetLogger sets the device logger.
func (d *Device) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log.Store(l)
	}
}

func (d *Device) logger() *slog.Logger { return d.log.Load() }

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.BackendSoftware }

// Queues implements gpucore.Device.
func (d *Device) Queues() gpucore.Queues {
	if d.separate {
		return gpucore.Queues{Graphics: graphicsQueue, Compute: computeQueue}
	}
	return gpucore.Queues{Graphics: graphicsQueue, Compute: graphicsQueue}
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Allocate implements gpucore.Device.
func (d *Device) Allocate(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, fmt.Errorf("software: %w: device closed", gpucore.ErrResourceAllocation)
	}
	if desc.Count <= 0 || desc.Stride <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: %w: buffer %q has %d elements of %d bytes",
			gpucore.ErrResourceAllocation, desc.Label, desc.Count, desc.Stride)
	}
	if desc.Size() > d.maxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("software: %w: buffer %q needs %d bytes, limit %d",
			gpucore.ErrResourceAllocation, desc.Label, desc.Size(), d.maxBufferSize)
	}

	id := gpucore.BufferID(d.id())
	d.buffers[id] = &buffer{desc: desc, data: make([]byte, desc.Size()), owner: gpucore.QueueIgnored}
	d.logger().Debug("software: buffer allocated", "label", desc.Label, "id", id, "bytes", desc.Size())
	return id, nil
}

// Upload implements gpucore.Device.
func (d *Device) Upload(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("software: upload to buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if !b.desc.Memory.Has(gpucore.MemoryHostVisible) && !b.desc.Usage.Has(gpucore.BufferUsageTransferDst) {
		return fmt.Errorf("software: buffer %q is neither host visible nor a transfer destination", b.desc.Label)
	}
	if len(data) > len(b.data) {
		return fmt.Errorf("software: upload of %d bytes overflows buffer %q (%d bytes)", len(data), b.desc.Label, len(b.data))
	}
	copy(b.data, data)
	return nil
}

// Size implements gpucore.Device.
func (d *Device) Size(id gpucore.BufferID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.buffers[id]; ok {
		return uint64(len(b.data))
	}
	return 0
}

// Read implements gpucore.Device.
func (d *Device) Read(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("software: read buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	return append([]byte(nil), b.data...), nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// CreateKernel implements gpucore.Device.
func (d *Device) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc == nil || desc.Host == nil {
		return gpucore.InvalidID, fmt.Errorf("software: %w: kernel has no host implementation", gpucore.ErrResourceAllocation)
	}
	id := gpucore.KernelID(d.id())
	cp := *desc
	d.kernels[id] = &cp
	d.logger().Debug("software: kernel created", "label", desc.Label, "id", id)
	return id, nil
}

// DestroyKernel implements gpucore.Device.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.kernels, id)
}

// CreateSemaphore implements gpucore.Device.
func (d *Device) CreateSemaphore() (gpucore.SemaphoreID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, fmt.Errorf("software: %w: device closed", gpucore.ErrResourceAllocation)
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

// Submit implements gpucore.Device. The list runs to completion before
// Submit returns.
func (d *Device) Submit(list *gpucore.CommandList, wait, signal []gpucore.SemaphoreID) (gpucore.SubmissionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fail := func(err error) (gpucore.SubmissionID, error) {
		return 0, fmt.Errorf("software: %w: %q: %w", gpucore.ErrSubmission, list.Label, err)
	}

	if d.closed {
		return fail(fmt.Errorf("device closed"))
	}
	q := list.Queue()
	if q != graphicsQueue && (!d.separate || q != computeQueue) {
		return fail(fmt.Errorf("queue %d does not exist", q))
	}
	if err := d.checkSemaphores(wait, signal); err != nil {
		return fail(err)
	}

	x := &execution{dev: d, queue: q, dirty: make(map[gpucore.BufferID]bool)}
	for i := range list.Commands {
		if err := x.run(&list.Commands[i]); err != nil {
			return fail(fmt.Errorf("command %d (%s): %w", i, list.Commands[i].Kind, err))
		}
	}

	for _, s := range wait {
		d.semaphores[s] = false
	}
	for _, s := range signal {
		d.semaphores[s] = true
	}
	d.submissions++
	return gpucore.SubmissionID(d.submissions), nil
}

func (d *Device) checkSemaphores(wait, signal []gpucore.SemaphoreID) error {
	waited := make(map[gpucore.SemaphoreID]bool, len(wait))
	for _, s := range wait {
		signaled, ok := d.semaphores[s]
		if !ok {
			return fmt.Errorf("wait on semaphore %d: %w", s, gpucore.ErrUnknownResource)
		}
		if !signaled || waited[s] {
			return fmt.Errorf("%w: wait on unsignaled semaphore %d would never complete", gpucore.ErrSemaphoreState, s)
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

// Completed implements gpucore.Device.
func (d *Device) Completed(id gpucore.SubmissionID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(id) <= d.submissions
}

// WaitIdle implements gpucore.Device. Submissions complete synchronously,
// so the device is always idle once the lock is free.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return nil
}

// Close implements gpucore.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.logger().Debug("software: device closed",
		"buffers", len(d.buffers), "kernels", len(d.kernels), "submissions", d.submissions)
	clear(d.buffers)
	clear(d.kernels)
	clear(d.semaphores)
	return nil
}
