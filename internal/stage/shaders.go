package stage

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

//go:embed shaders/clear_grid.wgsl
var clearGridWGSL string

//go:embed shaders/p2g.wgsl
var p2gWGSL string

//go:embed shaders/update_grid.wgsl
var updateGridWGSL string

//go:embed shaders/g2p.wgsl
var g2pWGSL string

// Binding slots shared by all kernels.
const (
	slotUniforms  = 0
	slotParticles = 1
	slotGrid      = 2
	slotF         = 3
)

// workgroupSize is the invocation count per workgroup of the parallel kernels.
const workgroupSize = 256

// Kernel identifies one of the four transfer kernel stages, in execution
// order.
type Kernel int

// Kernel stages.
const (
	KernelClearGrid Kernel = iota
	KernelP2G
	KernelUpdateGrid
	KernelG2P
	kernelCount
)

var kernelNames = [kernelCount]string{"clear_grid", "p2g", "update_grid", "g2p"}

func (k Kernel) String() string {
	if k < 0 || k >= kernelCount {
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
	return kernelNames[k]
}

// Sources returns the WGSL source of every kernel keyed by name.
func Sources() map[string]string {
	return map[string]string{
		KernelClearGrid.String():  clearGridWGSL,
		KernelP2G.String():        p2gWGSL,
		KernelUpdateGrid.String(): updateGridWGSL,
		KernelG2P.String():        g2pWGSL,
	}
}

// kernelDescs builds the descriptors of the four kernels. ex parallelizes
// the host implementations and may be nil.
func kernelDescs(ex mpm.Executor) [kernelCount]*gpucore.KernelDesc {
	uniform := gpucore.BindingLayout{Slot: slotUniforms, Kind: gpucore.BindingUniform}
	return [kernelCount]*gpucore.KernelDesc{
		KernelClearGrid: {
			Label:         "clear_grid",
			Source:        clearGridWGSL,
			EntryPoint:    "main",
			WorkgroupSize: workgroupSize,
			Bindings: []gpucore.BindingLayout{
				uniform,
				{Slot: slotGrid, Kind: gpucore.BindingStorageReadWrite},
			},
			Host: hostClearGrid,
		},
		KernelP2G: {
			Label:         "p2g",
			Source:        p2gWGSL,
			EntryPoint:    "main",
			WorkgroupSize: 1,
			Bindings: []gpucore.BindingLayout{
				uniform,
				{Slot: slotParticles, Kind: gpucore.BindingStorageRead},
				{Slot: slotGrid, Kind: gpucore.BindingStorageReadWrite},
				{Slot: slotF, Kind: gpucore.BindingStorageRead},
			},
			Host: hostP2G(ex),
		},
		KernelUpdateGrid: {
			Label:         "update_grid",
			Source:        updateGridWGSL,
			EntryPoint:    "main",
			WorkgroupSize: workgroupSize,
			Bindings: []gpucore.BindingLayout{
				uniform,
				{Slot: slotGrid, Kind: gpucore.BindingStorageReadWrite},
			},
			Host: hostUpdateGrid(ex),
		},
		KernelG2P: {
			Label:         "g2p",
			Source:        g2pWGSL,
			EntryPoint:    "main",
			WorkgroupSize: workgroupSize,
			Bindings: []gpucore.BindingLayout{
				uniform,
				{Slot: slotParticles, Kind: gpucore.BindingStorageReadWrite},
				{Slot: slotGrid, Kind: gpucore.BindingStorageRead},
				{Slot: slotF, Kind: gpucore.BindingStorageReadWrite},
			},
			Host: hostG2P(ex),
		},
	}
}

// Host mirrors of the WGSL kernels. Buffers arrive in binding order.

func decodeGrid(u mpm.Uniforms, b []byte) (*mpm.Grid, error) {
	g := mpm.NewGrid(int(u.GridResolution))
	if err := mpm.DecodeCells(b, g.Cells); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeParticles(u mpm.Uniforms, pb, fb []byte) ([]mpm.Particle, []mpm.Mat2, error) {
	ps := make([]mpm.Particle, u.ParticleCount)
	if err := mpm.DecodeParticles(pb, ps); err != nil {
		return nil, nil, err
	}
	fs := make([]mpm.Mat2, u.ParticleCount)
	if err := mpm.DecodeMatrices(fb, fs); err != nil {
		return nil, nil, err
	}
	return ps, fs, nil
}

func hostClearGrid(bufs [][]byte, _ [3]uint32) error {
	u, err := mpm.DecodeUniforms(bufs[0])
	if err != nil {
		return err
	}
	n := int(u.GridResolution*u.GridResolution) * mpm.CellStride
	if len(bufs[1]) < n {
		return fmt.Errorf("stage: clear_grid: grid buffer holds %d bytes, need %d", len(bufs[1]), n)
	}
	clear(bufs[1][:n])
	return nil
}

func hostP2G(ex mpm.Executor) gpucore.HostKernel {
	return func(bufs [][]byte, _ [3]uint32) error {
		u, err := mpm.DecodeUniforms(bufs[0])
		if err != nil {
			return err
		}
		ps, fs, err := decodeParticles(u, bufs[1], bufs[3])
		if err != nil {
			return err
		}
		g, err := decodeGrid(u, bufs[2])
		if err != nil {
			return err
		}
		mpm.P2G(ex, g, ps, fs, u)
		mpm.EncodeCellsInto(bufs[2], g.Cells)
		return nil
	}
}

func hostUpdateGrid(ex mpm.Executor) gpucore.HostKernel {
	return func(bufs [][]byte, _ [3]uint32) error {
		u, err := mpm.DecodeUniforms(bufs[0])
		if err != nil {
			return err
		}
		g, err := decodeGrid(u, bufs[1])
		if err != nil {
			return err
		}
		mpm.UpdateGrid(ex, g, u)
		mpm.EncodeCellsInto(bufs[1], g.Cells)
		return nil
	}
}

func hostG2P(ex mpm.Executor) gpucore.HostKernel {
	return func(bufs [][]byte, _ [3]uint32) error {
		u, err := mpm.DecodeUniforms(bufs[0])
		if err != nil {
			return err
		}
		ps, fs, err := decodeParticles(u, bufs[1], bufs[3])
		if err != nil {
			return err
		}
		g, err := decodeGrid(u, bufs[2])
		if err != nil {
			return err
		}
		mpm.G2P(ex, g, ps, fs, u)
		mpm.EncodeParticlesInto(bufs[1], ps)
		mpm.EncodeMatricesInto(bufs[3], fs)
		return nil
	}
}
