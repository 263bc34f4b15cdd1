package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lava/backend"
	"github.com/gogpu/lava/gpucore"
)

// createNoopDevice wraps a noop HAL device. Only resource creation is
// meaningful on it.
func createNoopDevice(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	d, err := NewFromHAL(openDev.Device, openDev.Queue)
	require.NoError(t, err)
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return d
}

func TestBackendRegistered(t *testing.T) {
	assert.True(t, backend.IsRegistered(backend.BackendWGPU))
}

func TestOpenRejectsSeparateQueues(t *testing.T) {
	b := backend.Get(backend.BackendWGPU)
	require.NotNil(t, b)

	dev, err := b.Open(backend.OpenOptions{SeparateQueues: true})
	assert.Nil(t, dev)
	assert.ErrorIs(t, err, backend.ErrUnsupportedOption)
}

func TestSingleQueue(t *testing.T) {
	d := createNoopDevice(t)
	q := d.Queues()
	assert.True(t, q.Shared())
	assert.Equal(t, backend.BackendWGPU, d.Name())
}

func TestHALUsage(t *testing.T) {
	tests := []struct {
		name string
		desc gpucore.BufferDesc
		want gputypes.BufferUsage
	}{
		{
			name: "particles",
			desc: gpucore.BufferDesc{Usage: gpucore.BufferUsageStorage | gpucore.BufferUsageVertex | gpucore.BufferUsageTransferDst},
			want: gputypes.BufferUsageCopySrc | gputypes.BufferUsageStorage | gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		},
		{
			name: "uniform",
			desc: gpucore.BufferDesc{Usage: gpucore.BufferUsageUniform, Memory: gpucore.MemoryHostVisible},
			want: gputypes.BufferUsageCopySrc | gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		},
		{
			name: "staging",
			desc: gpucore.BufferDesc{Usage: gpucore.BufferUsageTransferSrc, Memory: gpucore.MemoryHostVisible},
			want: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, halUsage(tt.desc))
		})
	}
}

func TestBindingType(t *testing.T) {
	assert.Equal(t, gputypes.BufferBindingTypeUniform, bindingType(gpucore.BindingUniform))
	assert.Equal(t, gputypes.BufferBindingTypeReadOnlyStorage, bindingType(gpucore.BindingStorageRead))
	assert.Equal(t, gputypes.BufferBindingTypeStorage, bindingType(gpucore.BindingStorageReadWrite))

	entries := layoutEntries([]gpucore.BindingLayout{
		{Slot: 0, Kind: gpucore.BindingUniform},
		{Slot: 2, Kind: gpucore.BindingStorageReadWrite},
	})
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(2), entries[1].Binding)
	assert.Equal(t, gputypes.ShaderStageCompute, entries[1].Visibility)
}

func TestAllocateUploadDestroy(t *testing.T) {
	d := createNoopDevice(t)

	id, err := d.Allocate(gpucore.BufferDesc{
		Label: "grid", Count: 64, Stride: 16,
		Usage: gpucore.BufferUsageStorage | gpucore.BufferUsageTransferDst,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), d.Size(id))

	require.NoError(t, d.Upload(id, make([]byte, 512)))
	assert.Error(t, d.Upload(id, make([]byte, 2048)), "overflowing upload")

	d.DestroyBuffer(id)
	assert.Zero(t, d.Size(id))
	assert.ErrorIs(t, d.Upload(id, nil), gpucore.ErrUnknownResource)

	_, err = d.Allocate(gpucore.BufferDesc{Label: "empty"})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)
}

func TestCreateKernelRejectsBadSource(t *testing.T) {
	d := createNoopDevice(t)

	_, err := d.CreateKernel(&gpucore.KernelDesc{Label: "empty"})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)

	_, err = d.CreateKernel(&gpucore.KernelDesc{Label: "broken", Source: "fn main( {"})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)
}

func TestSubmitRejectsTransfers(t *testing.T) {
	d := createNoopDevice(t)
	id, err := d.Allocate(gpucore.BufferDesc{Label: "particles", Count: 4, Stride: 48, Usage: gpucore.BufferUsageStorage})
	require.NoError(t, err)

	list := gpucore.NewCommandList("bad", queue)
	list.Barrier(gpucore.BufferBarrier{Buffer: id, SrcQueue: 0, DstQueue: 0})
	_, err = d.Submit(list, nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrSubmission)
	assert.ErrorIs(t, err, gpucore.ErrRedundantTransfer)

	list = gpucore.NewCommandList("other queue", 1)
	_, err = d.Submit(list, nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrSubmission)
}

func TestSemaphoreValidation(t *testing.T) {
	d := createNoopDevice(t)
	s, err := d.CreateSemaphore()
	require.NoError(t, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.ErrorIs(t, d.checkSemaphores([]gpucore.SemaphoreID{s}, nil), gpucore.ErrSemaphoreState)
	assert.NoError(t, d.checkSemaphores(nil, []gpucore.SemaphoreID{s}))
	d.semaphores[s] = true
	assert.ErrorIs(t, d.checkSemaphores(nil, []gpucore.SemaphoreID{s}), gpucore.ErrSemaphoreState)
	assert.NoError(t, d.checkSemaphores([]gpucore.SemaphoreID{s}, []gpucore.SemaphoreID{s}))
	assert.ErrorIs(t, d.checkSemaphores([]gpucore.SemaphoreID{99}, nil), gpucore.ErrUnknownResource)
}

func TestNewFromHALRejectsNil(t *testing.T) {
	_, err := NewFromHAL(nil, nil)
	assert.Error(t, err)
}
