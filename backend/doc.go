// Package backend provides the pluggable device backends of the simulation.
//
// A backend opens a [gpucore.Device]. Backends register themselves from
// init() functions and are selected by name or by priority:
//
//	import (
//	    _ "github.com/gogpu/lava/backend/software"
//	    _ "github.com/gogpu/lava/backend/wgpu"
//	)
//
//	dev, err := backend.OpenDefault(backend.OpenOptions{})
//
// Priority order is wgpu, then software. OpenDefault skips backends that
// fail to open (for example wgpu on a machine without a Vulkan driver) and
// falls back to the next one.
package backend
