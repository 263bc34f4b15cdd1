package gpucore

// Device is a GPU (or GPU-like) device with a graphics and a compute queue.
//
// All methods except Submit, Completed and WaitIdle are expected to be
// called from one goroutine. Destroy methods ignore unknown IDs.
type Device interface {
	// Name identifies the backend, e.g. "software" or "wgpu".
	Name() string

	// Queues returns the graphics and compute queues.
	Queues() Queues

	// Allocate creates a zero-initialised buffer.
	Allocate(desc BufferDesc) (BufferID, error)

	// Upload writes data to the start of a host-visible or transfer
	// destination buffer from the host.
	Upload(id BufferID, data []byte) error

	// Size returns the byte size of a buffer, or 0 if unknown.
	Size(id BufferID) uint64

	// Read copies the current contents of a buffer to the host. Pending
	// submissions that write the buffer complete first.
	Read(id BufferID) ([]byte, error)

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// CreateKernel compiles a compute kernel.
	CreateKernel(desc *KernelDesc) (KernelID, error)

	// DestroyKernel releases a kernel.
	DestroyKernel(id KernelID)

	// CreateSemaphore creates an unsignaled binary semaphore.
	CreateSemaphore() (SemaphoreID, error)

	// DestroySemaphore releases a semaphore.
	DestroySemaphore(id SemaphoreID)

	// Submit queues list on list.Queue(). Execution waits for every
	// semaphore in wait and signals every semaphore in signal when done.
	// Submit does not block on GPU completion.
	Submit(list *CommandList, wait, signal []SemaphoreID) (SubmissionID, error)

	// Completed reports, without blocking, whether a submission finished.
	Completed(id SubmissionID) bool

	// WaitIdle blocks until every queue is idle.
	WaitIdle() error

	// Close waits for idle and releases the device and all its resources.
	Close() error
}
