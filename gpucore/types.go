package gpucore

// Resource IDs. Each device maps IDs to its own resources; IDs are never
// reused within a device.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// KernelID is an opaque handle to a compiled compute kernel.
type KernelID uint64

// SemaphoreID is an opaque handle to a binary GPU-GPU semaphore.
type SemaphoreID uint64

// SubmissionID identifies one queue submission.
type SubmissionID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// QueueID names a device queue.
type QueueID uint32

// QueueIgnored marks a barrier that does not transfer queue ownership.
const QueueIgnored QueueID = ^QueueID(0)

// Queues names the graphics and compute queues of a device. They may be
// the same queue.
type Queues struct {
	Graphics QueueID
	Compute  QueueID
}

// Shared reports whether graphics and compute run on the same queue.
func (q Queues) Shared() bool { return q.Graphics == q.Compute }

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageStorage BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageVertex
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

// Has reports whether all flags in f are set.
func (u BufferUsage) Has(f BufferUsage) bool { return u&f == f }

// MemoryFlags select where a buffer lives.
type MemoryFlags uint32

// Memory flags.
const (
	MemoryDeviceLocal MemoryFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

// Has reports whether all flags in f are set.
func (m MemoryFlags) Has(f MemoryFlags) bool { return m&f == f }

// BufferDesc describes a buffer of Count elements of Stride bytes.
type BufferDesc struct {
	Label  string
	Count  int
	Stride int
	Usage  BufferUsage
	Memory MemoryFlags
}

// Size returns the byte size described by d.
func (d BufferDesc) Size() uint64 { return uint64(d.Count) * uint64(d.Stride) }

// Access is a bitmask of memory access types used in barriers.
type Access uint32

// Access flags.
const (
	AccessNone       Access = 0
	AccessShaderRead Access = 1 << (iota - 1)
	AccessShaderWrite
	AccessUniformRead
	AccessVertexAttributeRead
	AccessTransferRead
	AccessTransferWrite
	AccessHostWrite
)

// Stage is a bitmask of pipeline stages used in barriers.
type Stage uint32

// Pipeline stages.
const (
	StageTopOfPipe Stage = 1 << iota
	StageTransfer
	StageVertexInput
	StageVertexShader
	StageComputeShader
	StageBottomOfPipe
)
