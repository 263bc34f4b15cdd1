package lava

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/internal/stage"
	"github.com/gogpu/lava/mpm"
)

// Storage owns the device-local particle, grid and deformation gradient
// buffers. Creating it seeds the particle block on the CPU, estimates rest
// volumes and uploads everything through staging buffers. The upload ends
// with the particle buffer owned by the graphics queue, ready for the first
// frame's acquire.
type Storage struct {
	dev  gpucore.Device
	cfg  mpm.SeedConfig
	ex   mpm.Executor
	log  *slog.Logger
	bufs stage.Buffers
}

// NewStorage allocates, seeds and uploads the storage buffers.
func NewStorage(dev gpucore.Device, cfg mpm.SeedConfig, ex mpm.Executor, log *slog.Logger) (*Storage, error) {
	s := &Storage{dev: dev, cfg: cfg, ex: ex, log: log}
	if err := s.create(); err != nil {
		return nil, err
	}
	return s, nil
}

// Buffers returns the current storage buffers.
func (s *Storage) Buffers() stage.Buffers { return s.bufs }

// Recreate destroys the buffers and seeds fresh ones. The device must be
// idle. Stages holding the old buffers must be rebound.
func (s *Storage) Recreate() error {
	s.Destroy()
	return s.create()
}

// Destroy releases the storage buffers.
func (s *Storage) Destroy() {
	for _, id := range []gpucore.BufferID{s.bufs.Particles, s.bufs.Grid, s.bufs.F} {
		if id != gpucore.InvalidID {
			s.dev.DestroyBuffer(id)
		}
	}
	s.bufs = stage.Buffers{}
}

func (s *Storage) create() error {
	st, err := mpm.Seed(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	mpm.EstimateVolumes(s.ex, st, mpm.Uniforms{
		ParticleCount:  uint32(len(st.Particles)),
		GridResolution: uint32(st.Grid.Resolution),
	})

	bufs := stage.Buffers{
		ParticleCount:  len(st.Particles),
		GridResolution: st.Grid.Resolution,
	}
	storage := gpucore.BufferUsageStorage | gpucore.BufferUsageTransferDst | gpucore.BufferUsageTransferSrc
	allocs := []struct {
		id   *gpucore.BufferID
		desc gpucore.BufferDesc
	}{
		{&bufs.Particles, gpucore.BufferDesc{Label: "particles", Count: bufs.ParticleCount, Stride: mpm.ParticleStride,
			Usage: storage | gpucore.BufferUsageVertex, Memory: gpucore.MemoryDeviceLocal}},
		{&bufs.Grid, gpucore.BufferDesc{Label: "grid", Count: len(st.Grid.Cells), Stride: mpm.CellStride,
			Usage: storage, Memory: gpucore.MemoryDeviceLocal}},
		{&bufs.F, gpucore.BufferDesc{Label: "deformation", Count: len(st.F), Stride: mpm.MatStride,
			Usage: storage, Memory: gpucore.MemoryDeviceLocal}},
	}
	for _, a := range allocs {
		id, err := s.dev.Allocate(a.desc)
		if err != nil {
			s.bufs = bufs
			s.Destroy()
			return err
		}
		*a.id = id
	}
	s.bufs = bufs

	if err := s.upload(st); err != nil {
		s.Destroy()
		return err
	}
	s.log.Info("lava: storage seeded",
		"particles", bufs.ParticleCount,
		"grid", bufs.GridResolution,
		"mass", st.Grid.TotalMass())
	return nil
}

// upload copies the seeded state to the device. Particles go through the
// graphics queue and are released to compute. Grid and deformation
// gradients are copied on the compute queue, which then acquires the
// particles and releases them back to graphics.
func (s *Storage) upload(st *mpm.State) error {
	q := s.dev.Queues()
	toCompute := stage.ParticleTransfer(q, s.bufs)

	particles, err := s.staging("particles", mpm.EncodeParticles(st.Particles), mpm.ParticleStride)
	if err != nil {
		return err
	}
	defer s.dev.DestroyBuffer(particles)
	grid, err := s.staging("grid", mpm.EncodeCells(st.Grid.Cells), mpm.CellStride)
	if err != nil {
		return err
	}
	defer s.dev.DestroyBuffer(grid)
	fs, err := s.staging("deformation", mpm.EncodeMatrices(st.F), mpm.MatStride)
	if err != nil {
		return err
	}
	defer s.dev.DestroyBuffer(fs)

	gfx := gpucore.NewCommandList("upload.graphics", q.Graphics)
	gfx.CopyBuffer(particles, s.bufs.Particles, s.dev.Size(s.bufs.Particles))
	if !toCompute.Release(gfx) {
		gfx.Barrier(gpucore.MemoryBarrier(s.bufs.Particles, toCompute.Size,
			gpucore.AccessTransferWrite, gpucore.AccessShaderRead|gpucore.AccessShaderWrite,
			gpucore.StageTransfer, gpucore.StageComputeShader))
	}
	if err := s.submitOnce(gfx); err != nil {
		return err
	}

	comp := gpucore.NewCommandList("upload.compute", q.Compute)
	toCompute.Acquire(comp)
	for _, c := range []struct{ src, dst gpucore.BufferID }{{grid, s.bufs.Grid}, {fs, s.bufs.F}} {
		size := s.dev.Size(c.dst)
		comp.CopyBuffer(c.src, c.dst, size)
		comp.Barrier(gpucore.MemoryBarrier(c.dst, size,
			gpucore.AccessTransferWrite, gpucore.AccessShaderRead|gpucore.AccessShaderWrite,
			gpucore.StageTransfer, gpucore.StageComputeShader))
	}
	toCompute.Reverse().Release(comp)
	return s.submitOnce(comp)
}

func (s *Storage) staging(label string, data []byte, stride int) (gpucore.BufferID, error) {
	id, err := s.dev.Allocate(gpucore.BufferDesc{
		Label:  "staging." + label,
		Count:  len(data) / stride,
		Stride: stride,
		Usage:  gpucore.BufferUsageTransferSrc,
		Memory: gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent,
	})
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := s.dev.Upload(id, data); err != nil {
		s.dev.DestroyBuffer(id)
		return gpucore.InvalidID, fmt.Errorf("lava: stage %s: %w", label, err)
	}
	return id, nil
}

func (s *Storage) submitOnce(list *gpucore.CommandList) error {
	if _, err := s.dev.Submit(list, nil, nil); err != nil {
		return err
	}
	return s.dev.WaitIdle()
}

// Particles reads the particle buffer back. The device must be idle.
func (s *Storage) Particles() ([]mpm.Particle, error) {
	b, err := s.dev.Read(s.bufs.Particles)
	if err != nil {
		return nil, err
	}
	ps := make([]mpm.Particle, s.bufs.ParticleCount)
	if err := mpm.DecodeParticles(b, ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// DeformationGradients reads the deformation gradient buffer back.
func (s *Storage) DeformationGradients() ([]mpm.Mat2, error) {
	b, err := s.dev.Read(s.bufs.F)
	if err != nil {
		return nil, err
	}
	fs := make([]mpm.Mat2, s.bufs.ParticleCount)
	if err := mpm.DecodeMatrices(b, fs); err != nil {
		return nil, err
	}
	return fs, nil
}

// Grid reads the grid buffer back.
func (s *Storage) Grid() (*mpm.Grid, error) {
	b, err := s.dev.Read(s.bufs.Grid)
	if err != nil {
		return nil, err
	}
	g := mpm.NewGrid(s.bufs.GridResolution)
	if err := mpm.DecodeCells(b, g.Cells); err != nil {
		return nil, err
	}
	return g, nil
}
