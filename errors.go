package lava

import (
	"errors"

	"github.com/gogpu/lava/gpucore"
)

// Errors returned by the simulation. Allocation and submission failures are
// fatal: the Simulation must be closed.
var (
	// ErrResourceAllocation reports a failed buffer, kernel, semaphore or
	// command list creation.
	ErrResourceAllocation = gpucore.ErrResourceAllocation

	// ErrSubmission reports a queue submission failure.
	ErrSubmission = gpucore.ErrSubmission

	// ErrClosed is returned by operations on a closed Simulation.
	ErrClosed = errors.New("lava: simulation closed")

	// ErrInvalidConfig reports construction parameters out of range.
	ErrInvalidConfig = errors.New("lava: invalid configuration")
)
