// Package gpucore defines the device contract shared by the simulation and
// its backends.
//
// The simulation never talks to a graphics API directly. It records work
// into a [CommandList] through the [Recorder] interface and hands the list
// to a [Device] for submission on one of two logical queues: graphics and
// compute. Backends decide how a list executes:
//
//	               +----------------------+
//	               |   lava.Simulation    |
//	               | (stages, frame sync) |
//	               +----------+-----------+
//	                          | CommandList
//	         +----------------+----------------+
//	         |                                 |
//	+--------v---------+             +---------v--------+
//	| backend/software |             |   backend/wgpu   |
//	|  (host kernels)  |             |   (hal.Device)   |
//	+------------------+             +------------------+
//
// # Resources
//
// Buffers, kernels and semaphores are referenced by opaque IDs
// ([BufferID], [KernelID], [SemaphoreID]). The zero value is [InvalidID].
//
// # Queues and ownership
//
// [Queues] names the graphics and compute queue. When both name the same
// queue, buffers never change owner and [OwnershipTransfer] records
// nothing. When they differ, a buffer shared by both must be released by
// the queue that owns it and acquired by the other, with the two halves
// submitted in an order enforced by semaphores.
//
// # Errors
//
// Allocation and submission failures are fatal to the caller; there are no
// retries. Backends that validate usage report protocol violations with
// [ErrOwnership], [ErrSemaphoreState] and [ErrMissingBarrier].
package gpucore
