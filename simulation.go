package lava

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/internal/parallel"
	"github.com/gogpu/lava/internal/stage"
	"github.com/gogpu/lava/mpm"
)

// Simulation runs the MLS-MPM transfer kernel on a device's compute queue
// and hands the particle buffer to the graphics queue for drawing every
// frame.
//
// A Simulation is driven from a single goroutine. It does not own the
// device: Close releases the simulation's resources and leaves the device
// open.
type Simulation struct {
	dev  gpucore.Device
	cfg  *SimulationConfig
	opts options
	pool *parallel.WorkerPool

	storage  *Storage
	uniforms *uniformRing
	sync     *FrameSync
	compute  *stage.Compute
	render   *stage.Render

	stats  Stats
	closed bool
}

// Stats counts frame outcomes since creation.
type Stats struct {
	// Frames is the number of submitted frames.
	Frames uint64
	// Skipped is the number of frames skipped because their slot was still
	// in flight.
	Skipped uint64
	// Restarts is the number of completed restarts.
	Restarts uint64
}

// resizer is implemented by draw targets whose size follows the surface.
type resizer interface {
	Resize(width, height int) error
}

// New seeds the particle block, uploads it to dev and records the per-slot
// command lists. A nil cfg uses DefaultSimulationConfig. Any failure is
// fatal and releases whatever was created.
func New(dev gpucore.Device, cfg *SimulationConfig, opts ...Option) (*Simulation, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidConfig)
	}
	if cfg == nil {
		cfg = DefaultSimulationConfig()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	s := &Simulation{dev: dev, cfg: cfg, opts: o}
	if s.opts.uniformFunc == nil {
		s.opts.uniformFunc = s.configUniforms
	}
	trackDevice(dev)
	if err := s.init(); err != nil {
		s.destroy()
		return nil, err
	}
	Logger().Info("lava: simulation created",
		"device", dev.Name(),
		"separateQueues", !dev.Queues().Shared(),
		"particles", s.storage.Buffers().ParticleCount,
		"grid", s.storage.Buffers().GridResolution,
		"slots", o.framesInFlight)
	return s, nil
}

func (s *Simulation) init() error {
	log := Logger()
	s.pool = parallel.NewWorkerPool(s.opts.workers)

	var err error
	if s.storage, err = NewStorage(s.dev, s.opts.seed, s.pool, log); err != nil {
		return err
	}
	if s.uniforms, err = newUniformRing(s.dev, s.opts.framesInFlight, s.opts.uniformFunc); err != nil {
		return err
	}
	bufs := s.storage.Buffers()
	if s.compute, err = stage.NewCompute(s.dev, bufs, s.uniforms.buffers, s.pool, log); err != nil {
		return err
	}
	if s.render, err = stage.NewRender(s.dev, bufs, s.opts.target, s.opts.framesInFlight, log); err != nil {
		return err
	}
	if s.sync, err = NewFrameSync(s.dev, s.opts.framesInFlight); err != nil {
		return err
	}
	return s.sync.Seed()
}

func (s *Simulation) configUniforms(float32, int) mpm.Uniforms {
	b := s.storage.Buffers()
	return s.cfg.Uniforms(b.ParticleCount, b.GridResolution)
}

// Config returns the live tunables. Changes apply from the next frame.
func (s *Simulation) Config() *SimulationConfig { return s.cfg }

// Device returns the device the simulation runs on.
func (s *Simulation) Device() gpucore.Device { return s.dev }

// Stats returns frame counters.
func (s *Simulation) Stats() Stats { return s.stats }

// Frame writes the uniforms of the current slot and submits the render
// list followed by the compute list. elapsed is the time since start and is
// passed to the uniform callback.
//
// Frame never blocks on the device. If the slot's previous submission has
// not finished, the frame is skipped and Frame returns false.
func (s *Simulation) Frame(elapsed float32) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if !s.sync.Acquire() {
		s.stats.Skipped++
		Logger().Warn("lava: frame skipped, slot in flight", "slot", s.sync.Slot())
		return false, nil
	}

	slot := s.sync.Slot()
	if _, err := s.uniforms.update(elapsed, slot); err != nil {
		return false, err
	}
	if err := s.sync.SubmitGraphics(s.render.Record(slot)); err != nil {
		return false, err
	}
	if err := s.sync.SubmitCompute(s.compute.Record(slot)); err != nil {
		return false, err
	}
	s.sync.Advance()
	s.stats.Frames++
	return true, nil
}

// Restart drains the device, re-seeds the particle block and re-records
// the stages against the new buffers.
func (s *Simulation) Restart() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.dev.WaitIdle(); err != nil {
		return fmt.Errorf("lava: restart: %w", err)
	}
	if err := s.storage.Recreate(); err != nil {
		return err
	}
	if err := s.rebind(); err != nil {
		return err
	}
	s.stats.Restarts++
	Logger().Info("lava: simulation restarted", "restarts", s.stats.Restarts)
	return nil
}

// Resize drains the device, resizes the draw target when it supports it
// and recreates the uniform slots, kernels, command lists and semaphores.
// Particle state is kept.
func (s *Simulation) Resize(width, height int) error {
	if s.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: surface %dx%d", ErrInvalidConfig, width, height)
	}
	if err := s.dev.WaitIdle(); err != nil {
		return fmt.Errorf("lava: resize: %w", err)
	}
	if r, ok := s.opts.target.(resizer); ok {
		if err := r.Resize(width, height); err != nil {
			return fmt.Errorf("lava: resize target: %w", err)
		}
	}
	if err := s.uniforms.recreate(s.opts.framesInFlight); err != nil {
		return err
	}
	if err := s.rebind(); err != nil {
		return err
	}
	if err := s.sync.Reset(s.opts.framesInFlight); err != nil {
		return err
	}
	if err := s.sync.Seed(); err != nil {
		return err
	}
	Logger().Info("lava: simulation resized", "width", width, "height", height)
	return nil
}

func (s *Simulation) rebind() error {
	bufs := s.storage.Buffers()
	s.compute.Rebind(bufs, s.uniforms.buffers)
	if err := s.compute.Recreate(); err != nil {
		return err
	}
	s.render.Rebind(bufs, s.opts.framesInFlight)
	return s.render.Recreate()
}

// Particles drains the device and reads the particle buffer back.
func (s *Simulation) Particles() ([]mpm.Particle, error) {
	if err := s.drain(); err != nil {
		return nil, err
	}
	return s.storage.Particles()
}

// DeformationGradients drains the device and reads F back.
func (s *Simulation) DeformationGradients() ([]mpm.Mat2, error) {
	if err := s.drain(); err != nil {
		return nil, err
	}
	return s.storage.DeformationGradients()
}

// Grid drains the device and reads the grid back. It holds the state left
// by the last UpdateGrid: cell velocities, not momenta.
func (s *Simulation) Grid() (*mpm.Grid, error) {
	if err := s.drain(); err != nil {
		return nil, err
	}
	return s.storage.Grid()
}

func (s *Simulation) drain() error {
	if s.closed {
		return ErrClosed
	}
	return s.dev.WaitIdle()
}

// Close drains the device and releases every resource of the simulation.
// Closing twice is a no-op.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	err := s.dev.WaitIdle()
	s.destroy()
	s.closed = true
	Logger().Info("lava: simulation closed",
		slog.Uint64("frames", s.stats.Frames),
		slog.Uint64("skipped", s.stats.Skipped))
	if err != nil {
		return fmt.Errorf("lava: close: %w", err)
	}
	return nil
}

// destroy releases partially or fully created resources in reverse order.
func (s *Simulation) destroy() {
	if s.sync != nil {
		s.sync.Destroy()
	}
	if s.render != nil {
		s.render.Destroy()
	}
	if s.compute != nil {
		s.compute.Destroy()
	}
	if s.uniforms != nil {
		s.uniforms.destroy()
	}
	if s.storage != nil {
		s.storage.Destroy()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	untrackDevice(s.dev)
}

// IsFatal reports whether err leaves the simulation unusable.
func IsFatal(err error) bool {
	return errors.Is(err, ErrResourceAllocation) || errors.Is(err, ErrSubmission) || errors.Is(err, ErrClosed)
}
