package gpucore

// BindingKind is the type of a kernel buffer binding.
type BindingKind uint8

// Binding kinds.
const (
	BindingUniform BindingKind = iota
	BindingStorageRead
	BindingStorageReadWrite
)

// Writes reports whether the kernel may write through a binding of kind k.
func (k BindingKind) Writes() bool { return k == BindingStorageReadWrite }

// BindingLayout declares one buffer binding of a kernel in bind group 0.
type BindingLayout struct {
	Slot uint32
	Kind BindingKind
}

// HostKernel is the CPU implementation of a kernel. buffers holds the
// contents of the bound buffers in binding order and may be modified in
// place. groups is the dispatch size in workgroups.
type HostKernel func(buffers [][]byte, groups [3]uint32) error

// KernelDesc describes a compute kernel. Source is WGSL compiled by GPU
// backends; Host is executed by CPU backends. Both must implement the same
// computation.
type KernelDesc struct {
	Label         string
	Source        string
	EntryPoint    string
	WorkgroupSize uint32
	Bindings      []BindingLayout
	Host          HostKernel
}

// Binding attaches a buffer to a kernel binding slot.
type Binding struct {
	Slot   uint32
	Buffer BufferID
}

// Groups returns the number of workgroups needed to cover n invocations
// with workgroups of size ws.
func Groups(n int, ws uint32) uint32 {
	if n <= 0 {
		return 0
	}
	if ws == 0 {
		ws = 1
	}
	return (uint32(n) + ws - 1) / ws
}
