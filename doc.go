// Package lava simulates a 2D elastic continuum with MLS-MPM on a two-queue
// GPU pipeline.
//
// # Overview
//
// Particles carry position, velocity, an affine momentum matrix C, mass and
// a rest volume. Every frame a compute queue runs four kernels over a
// square grid (ClearGrid, P2G, UpdateGrid, G2P) and a graphics queue draws
// the particles as points. The particle buffer is shared: when the two
// queues differ, it is released and acquired across the queue boundary each
// frame, and a pair of binary semaphores keeps the submissions in
// ping-pong order.
//
// # Quick Start
//
//	dev, err := backend.OpenDefault(backend.OpenOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	sim, err := lava.New(dev, lava.DefaultSimulationConfig(),
//	    lava.WithRenderer(render.NewPointRenderer(512, 512, 64)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	for i := range 600 {
//	    if _, err := sim.Frame(float32(i) / 60); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Tunables
//
// [SimulationConfig] holds the Lamé parameters, gravity, time step and the
// pause flag. The simulation keeps a pointer to it and reads it once per
// frame, so a UI can change it between frames. Presets "solid" and
// "liquid" set both Lamé parameters at once.
//
// # Errors
//
// Allocation and submission failures are fatal: the Simulation must be
// closed. There are no retries and no degraded mode.
//
// # Architecture
//
//   - mpm: data model, byte layouts, CPU reference kernels, seeding
//   - gpucore: device, recorder and barrier contracts
//   - backend: device registry with software and wgpu implementations
//   - render: headless point renderer
//   - telemetry, config: per-frame statistics and YAML configuration
package lava

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
