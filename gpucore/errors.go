package gpucore

import "errors"

// Device errors.
var (
	// ErrResourceAllocation is returned when a buffer, kernel, semaphore or
	// command list cannot be created. Fatal to the caller.
	ErrResourceAllocation = errors.New("gpucore: resource allocation failed")

	// ErrSubmission is returned when a queue rejects a submission. Fatal to
	// the caller.
	ErrSubmission = errors.New("gpucore: submission failed")

	// ErrUnknownResource is returned for IDs the device does not know.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrOwnership is returned when a buffer is used on a queue that does
	// not own it.
	ErrOwnership = errors.New("gpucore: buffer used without queue ownership")

	// ErrRedundantTransfer is returned for an ownership transfer whose
	// source and destination queues are the same.
	ErrRedundantTransfer = errors.New("gpucore: ownership transfer between identical queues")

	// ErrSemaphoreState is returned when a submission waits on an
	// unsignaled binary semaphore or signals one that is already signaled.
	ErrSemaphoreState = errors.New("gpucore: invalid semaphore state")

	// ErrMissingBarrier is returned when a dispatch reads a buffer written
	// earlier in the same command list without an intervening barrier.
	ErrMissingBarrier = errors.New("gpucore: missing barrier between dependent dispatches")
)
