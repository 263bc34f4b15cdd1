package backend

import (
	"errors"

	"github.com/gogpu/lava/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the CPU device that runs the host kernels.
	BackendSoftware = "software"
	// BackendWGPU is the GPU device built on gogpu/wgpu HAL.
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnsupportedOption is returned by Open when the backend cannot
	// honour an OpenOptions field.
	ErrUnsupportedOption = errors.New("backend: unsupported option")
)

// OpenOptions configure a device at open time.
type OpenOptions struct {
	// SeparateQueues asks for distinct graphics and compute queues.
	// Backends with a single hardware queue reject it with
	// ErrUnsupportedOption.
	SeparateQueues bool
}

// Backend opens devices.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Open creates a device. The caller owns the device and must Close it.
	Open(opts OpenOptions) (gpucore.Device, error)
}
