// Package wgpu provides a gpucore.Device on top of the gogpu/wgpu HAL.
//
// Kernels are compiled from WGSL to SPIR-V with gogpu/naga and run as
// compute pipelines, one compute pass per dispatch. Pass boundaries order
// storage buffer accesses, so recorded memory barriers need no encoding.
//
// # Queues
//
// The HAL exposes one queue per device. Graphics and compute therefore
// alias and ownership transfers are never recorded against this device.
//
// # Submissions
//
// Every submission gets its own fence. Completed polls the fence without
// blocking; WaitIdle waits on every outstanding fence. A list containing
// draws is the exception: the drawn buffer is copied into a mappable
// staging buffer, and Submit waits for the fence and hands the vertices to
// the draw target on the host.
//
// # Backend Registration
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/lava/backend/wgpu"
//
//	dev, err := backend.Open("wgpu", backend.OpenOptions{})
//
// An application that already owns a device shares it through
// [NewFromProvider].
package wgpu
