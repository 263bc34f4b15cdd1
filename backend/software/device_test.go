package software

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lava/backend"
	"github.com/gogpu/lava/gpucore"
)

func mustBuffer(t *testing.T, d *Device, label string, n int) gpucore.BufferID {
	t.Helper()
	id, err := d.Allocate(gpucore.BufferDesc{
		Label:  label,
		Count:  n,
		Stride: 4,
		Usage:  gpucore.BufferUsageStorage | gpucore.BufferUsageTransferDst | gpucore.BufferUsageTransferSrc,
		Memory: gpucore.MemoryHostVisible,
	})
	require.NoError(t, err)
	return id
}

// incKernel adds one to every byte of binding 1 after checking binding 0 is
// readable.
func incKernel(t *testing.T, d *Device) gpucore.KernelID {
	t.Helper()
	id, err := d.CreateKernel(&gpucore.KernelDesc{
		Label: "inc",
		Bindings: []gpucore.BindingLayout{
			{Slot: 0, Kind: gpucore.BindingStorageRead},
			{Slot: 1, Kind: gpucore.BindingStorageReadWrite},
		},
		Host: func(bufs [][]byte, _ [3]uint32) error {
			for i := range bufs[1] {
				bufs[1][i]++
			}
			return nil
		},
	})
	require.NoError(t, err)
	return id
}

func TestRegisteredAsSoftwareBackend(t *testing.T) {
	dev, err := backend.Open(backend.BackendSoftware, backend.OpenOptions{SeparateQueues: true})
	require.NoError(t, err)
	defer dev.Close()

	assert.Equal(t, "software", dev.Name())
	assert.False(t, dev.Queues().Shared())
}

func TestBufferLifecycle(t *testing.T) {
	d := New()
	id := mustBuffer(t, d, "data", 4)
	assert.Equal(t, uint64(16), d.Size(id))

	require.NoError(t, d.Upload(id, []byte{1, 2, 3}))
	got, err := d.Read(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, got[:4])

	assert.Error(t, d.Upload(id, make([]byte, 17)))

	d.DestroyBuffer(id)
	assert.Zero(t, d.Size(id))
	_, err = d.Read(id)
	assert.ErrorIs(t, err, gpucore.ErrUnknownResource)
}

func TestAllocateFailures(t *testing.T) {
	d := New(WithMaxBufferSize(64))

	_, err := d.Allocate(gpucore.BufferDesc{Label: "empty", Count: 0, Stride: 4})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)

	_, err = d.Allocate(gpucore.BufferDesc{Label: "huge", Count: 17, Stride: 4})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)

	_, err = d.CreateKernel(&gpucore.KernelDesc{Label: "gpu-only", Source: "fn main() {}"})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)
}

func TestUploadRequiresHostAccess(t *testing.T) {
	d := New()
	id, err := d.Allocate(gpucore.BufferDesc{Label: "device-local", Count: 1, Stride: 4, Usage: gpucore.BufferUsageStorage, Memory: gpucore.MemoryDeviceLocal})
	require.NoError(t, err)
	assert.Error(t, d.Upload(id, []byte{1}))
}

func TestSemaphorePingPong(t *testing.T) {
	d := New(WithSeparateQueues(true))
	q := d.Queues()
	graphicsDone, err := d.CreateSemaphore()
	require.NoError(t, err)
	computeDone, err := d.CreateSemaphore()
	require.NoError(t, err)

	g := gpucore.NewCommandList("graphics", q.Graphics)
	c := gpucore.NewCommandList("compute", q.Compute)

	// Without the seed signal the first graphics submission would hang.
	_, err = d.Submit(g, []gpucore.SemaphoreID{computeDone}, []gpucore.SemaphoreID{graphicsDone})
	require.ErrorIs(t, err, gpucore.ErrSemaphoreState)
	require.ErrorIs(t, err, gpucore.ErrSubmission)

	_, err = d.Submit(gpucore.NewCommandList("seed", q.Graphics), nil, []gpucore.SemaphoreID{computeDone})
	require.NoError(t, err)

	for frame := 0; frame < 3; frame++ {
		_, err = d.Submit(g, []gpucore.SemaphoreID{computeDone}, []gpucore.SemaphoreID{graphicsDone})
		require.NoError(t, err, "frame %d graphics", frame)
		id, err := d.Submit(c, []gpucore.SemaphoreID{graphicsDone}, []gpucore.SemaphoreID{computeDone})
		require.NoError(t, err, "frame %d compute", frame)
		assert.True(t, d.Completed(id))
	}

	// Signaling computeDone again without consuming it is invalid.
	_, err = d.Submit(c, nil, []gpucore.SemaphoreID{computeDone})
	assert.ErrorIs(t, err, gpucore.ErrSemaphoreState)
}

func TestOwnershipRequiresTransfer(t *testing.T) {
	d := New(WithSeparateQueues(true))
	q := d.Queues()
	src := mustBuffer(t, d, "src", 4)
	buf := mustBuffer(t, d, "shared", 4)
	k := incKernel(t, d)

	up := gpucore.NewCommandList("upload", q.Graphics)
	up.CopyBuffer(src, buf, 16)
	_, err := d.Submit(up, nil, nil)
	require.NoError(t, err)

	use := gpucore.NewCommandList("compute", q.Compute)
	use.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: src}, {Slot: 1, Buffer: buf}}, 1, 1, 1)
	_, err = d.Submit(use, nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrOwnership)
}

func TestOwnershipTransferRoundTrip(t *testing.T) {
	d := New(WithSeparateQueues(true))
	q := d.Queues()
	in := mustBuffer(t, d, "in", 4)
	buf := mustBuffer(t, d, "shared", 4)
	k := incKernel(t, d)

	tr := gpucore.OwnershipTransfer{Buffer: buf, Size: 16, From: q.Graphics, To: q.Compute,
		SrcAccess: gpucore.AccessVertexAttributeRead, DstAccess: gpucore.AccessShaderWrite}

	g := gpucore.NewCommandList("graphics", q.Graphics)
	g.Draw(buf, 4, nil)
	tr.Release(g)

	c := gpucore.NewCommandList("compute", q.Compute)
	tr.Acquire(c)
	c.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: in}, {Slot: 1, Buffer: buf}}, 1, 1, 1)
	tr.Reverse().Release(c)

	g2 := gpucore.NewCommandList("graphics-acquire", q.Graphics)
	tr.Reverse().Acquire(g2)
	g2.Draw(buf, 4, nil)

	for _, l := range []*gpucore.CommandList{g, c, g2} {
		_, err := d.Submit(l, nil, nil)
		require.NoError(t, err, l.Label)
	}

	data, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(1), data[0])

	// Acquiring again without a matching release fails.
	_, err = d.Submit(g2, nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrOwnership)
}

func TestRedundantTransferRejected(t *testing.T) {
	d := New()
	buf := mustBuffer(t, d, "shared", 4)

	l := gpucore.NewCommandList("bad", 0)
	l.Barrier(gpucore.BufferBarrier{Buffer: buf, SrcQueue: 0, DstQueue: 0})
	_, err := d.Submit(l, nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrRedundantTransfer)
}

func TestMissingBarrierDetected(t *testing.T) {
	d := New()
	in := mustBuffer(t, d, "in", 4)
	mid := mustBuffer(t, d, "mid", 4)
	out := mustBuffer(t, d, "out", 4)
	k := incKernel(t, d)

	bad := gpucore.NewCommandList("no-barrier", 0)
	bad.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: in}, {Slot: 1, Buffer: mid}}, 1, 1, 1)
	bad.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: mid}, {Slot: 1, Buffer: out}}, 1, 1, 1)
	_, err := d.Submit(bad, nil, nil)
	assert.True(t, errors.Is(err, gpucore.ErrMissingBarrier), "got %v", err)

	good := gpucore.NewCommandList("barrier", 0)
	good.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: in}, {Slot: 1, Buffer: mid}}, 1, 1, 1)
	good.Barrier(gpucore.MemoryBarrier(mid, 16, gpucore.AccessShaderWrite, gpucore.AccessShaderRead,
		gpucore.StageComputeShader, gpucore.StageComputeShader))
	good.Dispatch(k, []gpucore.Binding{{Slot: 0, Buffer: mid}, {Slot: 1, Buffer: out}}, 1, 1, 1)
	_, err = d.Submit(good, nil, nil)
	require.NoError(t, err)
}

type captureTarget struct {
	count, stride, bytes int
}

func (c *captureTarget) DrawVertices(v []byte, count, stride int) error {
	c.count, c.stride, c.bytes = count, stride, len(v)
	return nil
}

func TestDrawPassesVertexStream(t *testing.T) {
	d := New()
	buf := mustBuffer(t, d, "verts", 8)
	target := &captureTarget{}

	l := gpucore.NewCommandList("draw", 0)
	l.Draw(buf, 6, target)
	_, err := d.Submit(l, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, target.count)
	assert.Equal(t, 4, target.stride)
	assert.Equal(t, 24, target.bytes)
}

func TestSubmitToMissingQueue(t *testing.T) {
	d := New()
	_, err := d.Submit(gpucore.NewCommandList("compute", computeQueue), nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrSubmission)
}

func TestClosedDevice(t *testing.T) {
	d := New()
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err := d.Allocate(gpucore.BufferDesc{Count: 1, Stride: 4})
	assert.ErrorIs(t, err, gpucore.ErrResourceAllocation)
	_, err = d.Submit(gpucore.NewCommandList("late", 0), nil, nil)
	assert.ErrorIs(t, err, gpucore.ErrSubmission)
}
